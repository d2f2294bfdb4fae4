package worker

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"nichecast/internal/imagegen"
	"nichecast/internal/lifecycle"
	"nichecast/internal/model"
)

// ErrNoSourceTitle marks a designer invocation on a post with no title
// to build an image context from.
var ErrNoSourceTitle = errors.New("no source title provided")

// Designer generates the post's visual and advances it to
// pending_approval. Unlike the editor, provider failure is not masked:
// the error propagates and the post stays in designing.
type Designer struct {
	Store     Store
	Generator imagegen.Generator
	Cache     *imagegen.Cache
}

func (w *Designer) RunPost(ctx context.Context, postID string) (model.Post, error) {
	p, err := w.Store.GetPost(ctx, postID)
	if err != nil {
		return model.Post{}, err
	}
	if strings.TrimSpace(p.SourceTitle) == "" {
		return model.Post{}, ErrNoSourceTitle
	}
	gen, err := w.Generator.Generate(ctx, p.SourceTitle)
	if err != nil {
		return model.Post{}, err
	}
	updated, err := w.Store.TransitionPost(ctx, postID, lifecycle.StatusPendingApproval, func(p *model.Post) {
		p.ImageURL = gen.ImageURL
		p.ImagePrompt = gen.Prompt
	})
	if err != nil {
		return model.Post{}, err
	}
	// Local webp copy survives provider-side URL expiry; losing it
	// never fails the step.
	if w.Cache != nil {
		if path, err := w.Cache.Store(ctx, gen.ImageURL, postID); err != nil {
			slog.Warn("designer: asset cache failed", "post_id", postID, "err", err)
		} else {
			slog.Info("designer: asset cached", "post_id", postID, "path", path)
		}
	}
	return updated, nil
}
