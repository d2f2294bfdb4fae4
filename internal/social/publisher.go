package social

import (
	"context"
	"fmt"
	"log/slog"

	"nichecast/internal/model"
)

// InstagramPublisher and LinkedInPublisher are the per-platform
// delivery contracts the fan-out depends on.
type InstagramPublisher interface {
	Publish(ctx context.Context, imageURL, caption string) (string, error)
}

type LinkedInPublisher interface {
	Publish(ctx context.Context, imageURL, text string) (string, error)
}

// Result collects per-target outcomes of one publish fan-out. A target
// that succeeded keeps its id even when a sibling failed, for operator
// triage.
type Result struct {
	InstagramID string   `json:"instagram,omitempty"`
	LinkedInID  string   `json:"linkedin,omitempty"`
	Errors      []string `json:"errors"`
}

// OK reports whether every attempted target succeeded.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Publisher fans a finished post out to each configured platform
// independently. A nil platform client means that target is not
// configured and is skipped.
type Publisher struct {
	Instagram InstagramPublisher
	LinkedIn  LinkedInPublisher
}

// Publish attempts delivery to every configured platform. Each
// platform's failure is recorded separately; one branch failing never
// aborts the other.
func (p *Publisher) Publish(ctx context.Context, post model.Post) Result {
	res := Result{Errors: []string{}}

	if p.Instagram != nil {
		id, err := p.Instagram.Publish(ctx, post.ImageURL, post.CaptionInstagram)
		if err != nil {
			slog.Error("publisher: instagram failed", "post_id", post.ID, "err", err)
			res.Errors = append(res.Errors, fmt.Sprintf("Instagram: %v", err))
		} else {
			res.InstagramID = id
		}
	}

	if p.LinkedIn != nil {
		id, err := p.LinkedIn.Publish(ctx, post.ImageURL, post.CopyLinkedIn)
		if err != nil {
			slog.Error("publisher: linkedin failed", "post_id", post.ID, "err", err)
			res.Errors = append(res.Errors, fmt.Sprintf("LinkedIn: %v", err))
		} else {
			res.LinkedInID = id
		}
	}

	return res
}
