package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	dErrors "audittrail/pkg/domain-errors"
	"audittrail/pkg/platform/audit/metrics"
	"audittrail/pkg/platform/privacy"
	"audittrail/pkg/principal"
	"audittrail/pkg/requestcontext"
)

// Recorder turns lifecycle events into audit records. It runs synchronously
// on the caller's goroutine so the write joins the caller's transaction.
type Recorder struct {
	store   Store
	policy  Policy
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures the Recorder.
type Option func(*Recorder)

// WithPolicy sets the no-principal policy used when a call does not supply one.
func WithPolicy(p Policy) Option {
	return func(r *Recorder) {
		if p != "" {
			r.policy = p
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithTracer overrides the global tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(r *Recorder) {
		r.tracer = t
	}
}

// WithNow overrides the clock that stamps records.
func WithNow(now func() time.Time) Option {
	return func(r *Recorder) {
		if now != nil {
			r.now = now
		}
	}
}

func NewRecorder(store Store, opts ...Option) *Recorder {
	r := &Recorder{
		store:  store,
		policy: DefaultPolicy,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.tracer == nil {
		r.tracer = otel.Tracer("audittrail/audit")
	}
	return r
}

// Policy returns the recorder's default no-principal policy.
func (r *Recorder) Policy() Policy {
	return r.policy
}

// Record captures action against entity, attributed to the principal resolved
// from ctx. An empty policy falls back to the recorder default.
//
// When no principal is available the policy decides: skip returns nil without
// writing, fail returns a CodePrincipalUnavailable error and record_anonymous
// writes a record with nil principal fields. Store failures are returned
// wrapping ErrWriteFailed.
func (r *Recorder) Record(ctx context.Context, entity Auditable, action Action, policy Policy) error {
	ctx, span := r.tracer.Start(ctx, "audit.record", trace.WithAttributes(
		attribute.String("audit.auditable_type", entity.AuditableType()),
		attribute.String("audit.auditable_id", entity.AuditableID()),
		attribute.String("audit.action", string(action)),
	))
	defer span.End()

	err := r.record(ctx, entity, action, policy)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}

func (r *Recorder) record(ctx context.Context, entity Auditable, action Action, policy Policy) error {
	if !action.IsValid() {
		return dErrors.New(dErrors.CodeInvariantViolation, fmt.Sprintf("unknown audit action %q", action))
	}
	if policy == "" {
		policy = r.policy
	}

	// Stamped when the record is taken, not when the request began, so
	// overlapping requests on one entity keep mutation order.
	now := r.now()
	var rec Record

	p, ok := principal.Resolve(ctx)
	switch {
	case ok:
		rec = NewRecord(entity, action, p.ID, p.IP, now)
	case policy == PolicyRecordAnonymous:
		rec = NewRecord(entity, action, "", "", now)
		if r.metrics != nil {
			r.metrics.IncAnonymous(entity.AuditableType())
		}
	case policy == PolicyFail:
		if r.metrics != nil {
			r.metrics.IncRejected(entity.AuditableType())
		}
		return &dErrors.Error{
			Code:    dErrors.CodePrincipalUnavailable,
			Message: fmt.Sprintf("cannot %s %s %s: no principal available", actionVerb(action), entity.AuditableType(), entity.AuditableID()),
			Err:     principal.ErrUnavailable,
		}
	default:
		if r.logger != nil {
			r.logger.DebugContext(ctx, "audit record skipped: no principal",
				"auditable_type", entity.AuditableType(),
				"auditable_id", entity.AuditableID(),
				"action", string(action),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		if r.metrics != nil {
			r.metrics.IncSkipped(entity.AuditableType())
		}
		return nil
	}

	start := time.Now()
	if err := r.store.Append(ctx, rec); err != nil {
		if r.metrics != nil {
			r.metrics.IncWriteFailures()
		}
		if r.logger != nil {
			r.logger.ErrorContext(ctx, "failed to persist audit record",
				"error", err,
				"auditable_type", rec.AuditableType,
				"auditable_id", rec.AuditableID,
				"action", string(rec.Action),
				privacy.PrincipalIP(stringValue(rec.PrincipalIP)),
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return dErrors.Wrap(fmt.Errorf("%w: %w", ErrWriteFailed, err), dErrors.CodeInternal, "failed to persist audit record")
	}

	if r.metrics != nil {
		r.metrics.ObserveWriteDuration(time.Since(start).Seconds())
		r.metrics.IncWritten(rec.AuditableType, string(rec.Action))
	}
	return nil
}

// Trail returns the records of entity, oldest first.
func (r *Recorder) Trail(ctx context.Context, entity Auditable) ([]Record, error) {
	records, err := r.store.ListByAuditable(ctx, Ref{Type: entity.AuditableType(), ID: entity.AuditableID()})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit trail")
	}
	return records, nil
}

func actionVerb(a Action) string {
	switch a {
	case ActionCreate:
		return "create"
	case ActionUpdate:
		return "update"
	default:
		return "destroy"
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
