package core

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"

	"leadcrm/internal/infra/persistence/memory"
	"leadcrm/pkg/domain"
)

// Service is the single coordinating owner of the application state. It
// exposes the entity repositories, the settings registry, the pipeline
// coordinator and the dashboard read views.
type Service struct {
	store   domain.PersistentStore
	logger  logrus.FieldLogger
	clock   Clock
	audit   AuditRecorder
	metrics MetricsRecorder
	tracer  Tracer
	policy  domain.StageRemovalPolicy
}

// Option customises a Service.
type Option func(*Service)

// WithLogger routes rule warnings and operation failures to logger.
func WithLogger(logger logrus.FieldLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source.
func WithClock(clock Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithAuditRecorder records every mutating operation.
func WithAuditRecorder(rec AuditRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.audit = rec
		}
	}
}

// WithMetricsRecorder observes operation outcomes.
func WithMetricsRecorder(rec MetricsRecorder) Option {
	return func(s *Service) {
		if rec != nil {
			s.metrics = rec
		}
	}
}

// WithTracer wraps each mutating operation in a span.
func WithTracer(tracer Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// WithStageRemovalPolicy selects how RemoveStage treats leads in the removed stage.
func WithStageRemovalPolicy(policy domain.StageRemovalPolicy) Option {
	return func(s *Service) {
		if policy != "" {
			s.policy = policy
		}
	}
}

// NewService constructs a service backed by the supplied store.
func NewService(store domain.PersistentStore, opts ...Option) *Service {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	svc := &Service{
		store:   store,
		logger:  discard,
		clock:   systemClock{},
		audit:   noopAudit{},
		metrics: noopMetrics{},
		tracer:  noopTracer{},
		policy:  domain.StageRemovalOrphan,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// NewInMemoryService creates a service over a fresh in-memory store. A nil
// engine selects NewDefaultRulesEngine.
func NewInMemoryService(engine *RulesEngine, opts ...Option) *Service {
	if engine == nil {
		engine = NewDefaultRulesEngine()
	}
	return NewService(memory.NewStore(engine), opts...)
}

// Store returns the underlying storage implementation.
func (s *Service) Store() domain.PersistentStore {
	return s.store
}

// StageRemovalPolicy reports the configured policy.
func (s *Service) StageRemovalPolicy() domain.StageRemovalPolicy {
	return s.policy
}

// run executes fn in a store transaction and reports the outcome to the
// tracer, metrics, audit recorder and logger. fn returns the id of the record
// it touched, if any.
func (s *Service) run(ctx context.Context, op string, entity EntityType, fn func(tx domain.Transaction) (string, error)) (Result, error) {
	ctx, span := s.tracer.Start(ctx, op)
	started := s.clock.Now()
	var entityID string
	res, err := s.store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		id, err := fn(tx)
		entityID = id
		return err
	})
	duration := s.clock.Now().Sub(started)

	s.metrics.Observe(ctx, op, err == nil, duration)
	span.End(err)
	entry := AuditEntry{
		Operation: op,
		Entity:    entity,
		EntityID:  entityID,
		Status:    AuditStatusSuccess,
		Duration:  duration,
		Timestamp: started.UTC(),
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
	s.logOutcome(op, res, err)
	return res, err
}

func (s *Service) logOutcome(op string, res Result, err error) {
	for _, v := range res.Violations {
		entry := s.logger.WithFields(logrus.Fields{
			"operation": op,
			"rule":      v.Rule,
			"entity":    v.Entity,
			"entity_id": v.EntityID,
		})
		switch v.Severity {
		case SeverityWarn:
			entry.Warn(v.Message)
		case SeverityLog:
			entry.Info(v.Message)
		}
	}
	if err != nil {
		s.logger.WithField("operation", op).WithError(err).Debug("operation failed")
	}
}

// view runs fn against a read-only snapshot.
func (s *Service) view(fn func(domain.TransactionView)) {
	_ = s.store.View(context.Background(), func(v domain.TransactionView) error {
		fn(v)
		return nil
	})
}
