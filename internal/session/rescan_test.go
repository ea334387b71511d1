package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"burstpick/internal/cluster"
	"burstpick/internal/models"
	"burstpick/internal/scan"
)

// sameHasher gives every photo the same fingerprint. With cancel set it
// cancels the run from inside the batch instead.
type sameHasher struct {
	cancel context.CancelFunc
}

func (h *sameHasher) FingerprintWithTimeout(ctx context.Context, _ string, _ time.Duration) (uint64, error) {
	if h.cancel != nil {
		h.cancel()
		<-ctx.Done()
		return 0, ctx.Err()
	}
	return 0xF0F0F0F0F0F0F0F0, nil
}

func (h *sameHasher) Dimensions(string) (*models.Dimensions, error) {
	return &models.Dimensions{Width: 4000, Height: 3000}, nil
}

func TestSession_CancelledRescanKeepsState(t *testing.T) {
	hasher := &sameHasher{}
	engine := cluster.NewEngine(scan.NewScanner(scan.WithFingerprinter(hasher)), nil)
	s := New(engine, &fakeRemover{}, nil)

	if _, err := s.Group(context.Background(), images("a.jpg", "b.jpg", "c.jpg"), models.DefaultSettings()); err != nil {
		t.Fatalf("Group failed: %v", err)
	}
	if len(s.Groups()) != 1 {
		t.Fatalf("expected one burst, got %d", len(s.Groups()))
	}
	if err := s.SetLeader(1, "b.jpg"); err != nil {
		t.Fatalf("SetLeader failed: %v", err)
	}

	// All three photos fit in the single, final batch
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	hasher.cancel = cancel

	_, err := s.Group(ctx, images("a.jpg", "b.jpg", "c.jpg"), models.DefaultSettings())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}

	view, err := s.GroupByID(1)
	if err != nil {
		t.Fatalf("burst lost after cancelled rescan: %v", err)
	}
	if view.OverridePath != "b.jpg" {
		t.Errorf("override = %q, want b.jpg", view.OverridePath)
	}
	for _, img := range s.Images() {
		if img.Hash == nil {
			t.Errorf("%s lost its fingerprint", img.Path)
		}
	}
}
