package engine

import (
	"context"
	"errors"
	"testing"
)

type recordingPublisher struct {
	keys []string
	err  error
}

func (p *recordingPublisher) Publish(_ context.Context, key string, _ any) error {
	p.keys = append(p.keys, key)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func withPublisher(t *testing.T, p Publisher) {
	t.Helper()
	saved := cfg.Events
	cfg.Events = p
	t.Cleanup(func() { cfg.Events = saved })
}

func TestPublishEventDisabled(t *testing.T) {
	withPublisher(t, nil)
	PublishEvent(context.Background(), "application.tailored", map[string]any{"score": 0.9})
}

func TestPublishEventDelegates(t *testing.T) {
	p := &recordingPublisher{}
	withPublisher(t, p)
	PublishEvent(context.Background(), "application.tailored", map[string]any{"score": 0.9})
	if len(p.keys) != 1 || p.keys[0] != "application.tailored" {
		t.Errorf("published keys = %v", p.keys)
	}
}

func TestPublishEventSwallowsErrors(t *testing.T) {
	p := &recordingPublisher{err: errors.New("broker down")}
	withPublisher(t, p)
	PublishEvent(context.Background(), "application.tailored", nil)
	if len(p.keys) != 1 {
		t.Errorf("publish attempts = %d, want 1", len(p.keys))
	}
}
