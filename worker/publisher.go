package worker

import (
	"context"
	"fmt"
	"time"

	"nichecast/internal/lifecycle"
	"nichecast/internal/model"
	"nichecast/internal/social"
)

// Publisher fans an approved post out to the configured platforms and
// reconciles the per-target results into a final status.
type Publisher struct {
	Store  Store
	Social *social.Publisher
}

// RunPost publishes the post. The final status is published only when
// every attempted platform succeeded; any platform error makes it
// failed while the result payload retains which targets worked. A
// duplicate concurrent invocation loses the approved->published CAS
// and gets a conflict instead of a second status write.
func (w *Publisher) RunPost(ctx context.Context, postID string) (social.Result, error) {
	p, err := w.Store.GetPost(ctx, postID)
	if err != nil {
		return social.Result{}, err
	}
	if p.Status != lifecycle.StatusApproved {
		return social.Result{}, fmt.Errorf("%w: %s -> %s", lifecycle.ErrIllegalTransition, p.Status, lifecycle.StatusPublished)
	}

	res := w.Social.Publish(ctx, p)

	if res.OK() {
		now := time.Now().UTC()
		_, err = w.Store.TransitionPost(ctx, postID, lifecycle.StatusPublished, func(p *model.Post) {
			p.PublishedAt = &now
		})
	} else {
		_, err = w.Store.TransitionPost(ctx, postID, lifecycle.StatusFailed, nil)
	}
	return res, err
}
