package worker

import (
	"context"
	"strings"

	"nichecast/internal/ai"
	"nichecast/internal/lifecycle"
	"nichecast/internal/model"
)

// Editor turns a post's raw content into the two platform captions and
// advances it to designing. Single-shot: one invocation per post id.
type Editor struct {
	Store    Store
	Rewriter ai.Rewriter
}

// RunPost generates captions for the post. A post without raw content
// is a validation failure: no provider call is made and the entity is
// not mutated. Provider degradation is masked inside the rewriter, so
// the only failures surfacing here are validation, lookup, and
// transition conflicts.
func (w *Editor) RunPost(ctx context.Context, postID string) (model.Post, error) {
	p, err := w.Store.GetPost(ctx, postID)
	if err != nil {
		return model.Post{}, err
	}
	if strings.TrimSpace(p.ContentRaw) == "" {
		return model.Post{}, ai.ErrNoContent
	}
	caps, err := w.Rewriter.GenerateCaptions(ctx, p.SourceTitle, p.ContentRaw)
	if err != nil {
		return model.Post{}, err
	}
	return w.Store.TransitionPost(ctx, postID, lifecycle.StatusDesigning, func(p *model.Post) {
		p.CaptionInstagram = caps.Instagram
		p.CopyLinkedIn = caps.LinkedIn
	})
}
