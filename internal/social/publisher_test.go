package social

import (
	"context"
	"errors"
	"strings"
	"testing"

	"nichecast/internal/model"
)

type stubPlatform struct {
	id    string
	err   error
	calls int
}

func (s *stubPlatform) Publish(ctx context.Context, imageURL, text string) (string, error) {
	s.calls++
	return s.id, s.err
}

func TestPublishAllTargetsSucceed(t *testing.T) {
	ig := &stubPlatform{id: "ig-1"}
	li := &stubPlatform{id: "li-1"}
	p := &Publisher{Instagram: ig, LinkedIn: li}

	res := p.Publish(context.Background(), model.Post{ID: "post-1", ImageURL: "http://img"})
	if !res.OK() {
		t.Fatalf("expected OK, errors: %v", res.Errors)
	}
	if res.InstagramID != "ig-1" || res.LinkedInID != "li-1" {
		t.Errorf("unexpected ids: %+v", res)
	}
}

func TestPublishPartialFailureKeepsSiblingResult(t *testing.T) {
	ig := &stubPlatform{id: "ig-1"}
	li := &stubPlatform{err: errors.New("register: status=401")}
	p := &Publisher{Instagram: ig, LinkedIn: li}

	res := p.Publish(context.Background(), model.Post{ID: "post-1"})
	if res.OK() {
		t.Fatalf("expected failure recorded")
	}
	if res.InstagramID != "ig-1" {
		t.Errorf("instagram id lost on sibling failure: %+v", res)
	}
	if res.LinkedInID != "" {
		t.Errorf("unexpected linkedin id: %+v", res)
	}
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "LinkedIn:") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
	if ig.calls != 1 || li.calls != 1 {
		t.Errorf("both targets must be attempted, got ig=%d li=%d", ig.calls, li.calls)
	}
}

func TestPublishFirstTargetFailureDoesNotAbortSecond(t *testing.T) {
	ig := &stubPlatform{err: errors.New("container: status=400")}
	li := &stubPlatform{id: "li-1"}
	p := &Publisher{Instagram: ig, LinkedIn: li}

	res := p.Publish(context.Background(), model.Post{ID: "post-1"})
	if li.calls != 1 {
		t.Fatalf("linkedin must still be attempted")
	}
	if res.LinkedInID != "li-1" {
		t.Errorf("unexpected result: %+v", res)
	}
	if len(res.Errors) != 1 || !strings.HasPrefix(res.Errors[0], "Instagram:") {
		t.Errorf("unexpected errors: %v", res.Errors)
	}
}

func TestPublishSkipsUnconfiguredTargets(t *testing.T) {
	li := &stubPlatform{id: "li-1"}
	p := &Publisher{LinkedIn: li}

	res := p.Publish(context.Background(), model.Post{ID: "post-1"})
	if !res.OK() {
		t.Fatalf("expected OK, errors: %v", res.Errors)
	}
	if res.InstagramID != "" || res.LinkedInID != "li-1" {
		t.Errorf("unexpected result: %+v", res)
	}
}
