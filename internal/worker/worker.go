package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sparkbytes/foodfinder/internal/geocode"
	"github.com/sparkbytes/foodfinder/pkg/queue"
)

// Geocoder resolves an address to coordinates. A nil point means no match.
type Geocoder interface {
	Lookup(ctx context.Context, query string) (*geocode.Point, error)
}

// CoordinateStore saves resolved event coordinates.
type CoordinateStore interface {
	SetCoordinates(ctx context.Context, id uuid.UUID, lat, lng float64) error
}

// JobQueue is the job source the processor drains.
type JobQueue interface {
	Dequeue(ctx context.Context) (*queue.Job, error)
	Retry(ctx context.Context, job *queue.Job) error
}

// GeocodeProcessor processes geocode_event jobs: look up the event address and
// store the coordinates on the event.
type GeocodeProcessor struct {
	geocoder Geocoder
	events   CoordinateStore
	queue    JobQueue
	backoff  time.Duration
	logger   *zap.Logger
}

// NewGeocodeProcessor creates a geocoding job processor.
func NewGeocodeProcessor(geocoder Geocoder, events CoordinateStore, q JobQueue, logger *zap.Logger) *GeocodeProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GeocodeProcessor{geocoder: geocoder, events: events, queue: q, backoff: queue.RetryBackoff, logger: logger}
}

// Process executes one geocoding job.
func (p *GeocodeProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeGeocodeEvent {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.GeocodeEventPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	point, err := p.geocoder.Lookup(ctx, payload.Address)
	if err != nil {
		return fmt.Errorf("geocode: %w", err)
	}
	if point == nil {
		p.logger.Info("no geocoding match", zap.String("event_id", payload.EventID.String()), zap.String("address", payload.Address))
		return nil
	}
	if err := p.events.SetCoordinates(ctx, payload.EventID, point.Lat, point.Lng); err != nil {
		return fmt.Errorf("update event: %w", err)
	}

	p.logger.Info("event geocoded", zap.String("event_id", payload.EventID.String()),
		zap.Float64("lat", point.Lat), zap.Float64("lng", point.Lng))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *GeocodeProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("geocode worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			p.sleep(ctx)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			p.sleep(ctx)
		}
	}
}

func (p *GeocodeProcessor) sleep(ctx context.Context) {
	t := time.NewTimer(p.backoff)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
