// Package cluster runs a full grouping pass: enrichment, burst matching and
// leader selection.
package cluster

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"burstpick/internal/match"
	"burstpick/internal/metrics"
	"burstpick/internal/models"
)

var (
	// ErrNoImages is returned when a run is started on an empty list
	ErrNoImages = errors.New("no images to group")
	// ErrInvalidSettings is returned when settings fail validation
	ErrInvalidSettings = errors.New("invalid settings")
)

// Enricher fills in fingerprint, dimensions and score for each image
type Enricher interface {
	Enrich(ctx context.Context, images []*models.Image) error
}

// Engine groups a list of images into bursts
type Engine struct {
	enricher Enricher
	validate *validator.Validate
	logger   *slog.Logger
}

// NewEngine creates an engine that enriches images with e
func NewEngine(e Enricher, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		enricher: e,
		validate: validator.New(),
		logger:   logger,
	}
}

// ValidateSettings checks settings against their constraints
func (e *Engine) ValidateSettings(s models.Settings) error {
	if err := e.validate.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s must satisfy %s=%s (got %v)", fe.Field(), fe.Tag(), fe.Param(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidSettings, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSettings, err)
	}
	return nil
}

// Group enriches images and clusters them. The returned images are the
// enriched input, in input order. On error nothing is returned and the
// caller's previous state should be kept.
func (e *Engine) Group(ctx context.Context, images []*models.Image, settings models.Settings) (*models.Result, error) {
	if len(images) == 0 {
		metrics.GroupingRunsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrNoImages
	}
	if err := e.ValidateSettings(settings); err != nil {
		metrics.GroupingRunsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	runID := uuid.NewString()
	start := time.Now()
	e.logger.Info("grouping started", "run_id", runID, "images", len(images))

	if err := e.enricher.Enrich(ctx, images); err != nil {
		metrics.GroupingRunsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("enrichment aborted: %w", err)
	}

	var matcher match.Matcher = match.NewBurstMatcher(settings)
	groups := matcher.FindGroups(images)

	elapsed := time.Since(start)
	metrics.GroupingDuration.Observe(elapsed.Seconds())
	metrics.GroupingRunsTotal.WithLabelValues("ok").Inc()
	e.logger.Info("grouping finished",
		"run_id", runID,
		"groups", len(groups),
		"duration", elapsed.Round(time.Millisecond),
	)

	return &models.Result{
		RunID:  runID,
		Images: images,
		Groups: groups,
	}, nil
}
