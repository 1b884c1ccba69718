package core

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/JonMunkholm/ContentImport/internal/logging"
)

// DefaultDeleteTimeout bounds a delete-all operation when none is configured.
const DefaultDeleteTimeout = 30 * time.Second

// Config holds the service's tunables.
type Config struct {
	MaxConcurrent int           // Parallel import submissions
	MaxWait       time.Duration // Wait for an import slot before ErrTooManyImports
	DeleteTimeout time.Duration // Bound on a delete-all operation
}

// Option configures optional Service collaborators.
type Option func(*Service)

// WithPublisher sets where import events are sent. Without it events are
// only logged.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		s.publisher = p
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// Service provides the core business logic for content import operations.
type Service struct {
	backend   Backend
	cfg       Config
	limiter   *ImportLimiter
	publisher Publisher
	now       func() time.Time
}

// NewService creates a new Service instance.
func NewService(backend Backend, cfg Config, opts ...Option) (*Service, error) {
	if backend == nil {
		return nil, errors.New("core: backend is required")
	}
	if cfg.DeleteTimeout <= 0 {
		cfg.DeleteTimeout = DefaultDeleteTimeout
	}

	s := &Service{
		backend: backend,
		cfg:     cfg,
		limiter: NewImportLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.publisher == nil {
		s.publisher = logPublisher{}
	}
	return s, nil
}

// ListModels returns all registered content models.
func (s *Service) ListModels() []ModelDescriptor {
	return All()
}

// GetModel returns one model descriptor.
func (s *Service) GetModel(uid string) (ModelDescriptor, error) {
	return Lookup(uid)
}

// Ping checks the backend connection.
func (s *Service) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// DeleteTimeout returns the bound applied to delete-all operations.
func (s *Service) DeleteTimeout() time.Duration {
	return s.cfg.DeleteTimeout
}

// LimiterStatus reports import slot usage.
func (s *Service) LimiterStatus() ImportLimiterStatus {
	return s.limiter.Status()
}

// Drain blocks until in-flight imports finish or ctx is done.
func (s *Service) Drain(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// publish sends an event; failures are logged, never returned.
func (s *Service) publish(ctx context.Context, evt Event) {
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = s.now().UTC()
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		logging.FromContext(ctx).Warn("publish event failed",
			"type", evt.Type,
			"model", evt.Model,
			"error", err,
		)
	}
}

// logPublisher writes events to the structured log.
type logPublisher struct{}

func (logPublisher) Publish(ctx context.Context, evt Event) error {
	level := slog.LevelInfo
	if evt.Type == EventImportFailed {
		level = slog.LevelWarn
	}
	logging.FromContext(ctx).Log(ctx, level, "event",
		"type", evt.Type,
		"import_id", evt.ImportID,
		"model", evt.Model,
		"count", evt.Count,
		"error", evt.Error,
	)
	return nil
}
