// Package guard decides whether a caller may perform an operation. The
// decision is an explicit ordered list of stages; the first denial wins.
package guard

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"hearth/internal/platform/tracer"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/requestcontext"
)

// Pipeline runs authentication, tenant resolution, role authorization and
// suspension enforcement in that order.
type Pipeline struct {
	stages  []Stage
	logger  *slog.Logger
	metrics *Metrics
	tracer  tracer.Tracer
}

type Option func(*Pipeline)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithTracer(t tracer.Tracer) Option {
	return func(p *Pipeline) { p.tracer = t }
}

func New(verifier TokenVerifier, statuses TenantStatusReader, opts ...Option) (*Pipeline, error) {
	if verifier == nil {
		return nil, errors.New("token verifier is required")
	}
	if statuses == nil {
		return nil, errors.New("tenant status reader is required")
	}
	return NewWithStages([]Stage{
		Authenticate(verifier),
		ResolveTenant(),
		AuthorizeRole(),
		EnforceScope(),
		CheckSuspension(statuses),
	}, opts...), nil
}

// NewWithStages builds a pipeline from an explicit stage list.
func NewWithStages(stages []Stage, opts ...Option) *Pipeline {
	p := &Pipeline{stages: stages, tracer: tracer.NewNoop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// StageNames returns the stage order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name
	}
	return names
}

// Authorize runs every stage against token and op. The error, when non-nil,
// is a *dErrors.Error whose code is the denial reason. Denials are final.
func (p *Pipeline) Authorize(ctx context.Context, token string, op Operation, params Params) (decision *Decision, err error) {
	start := time.Now()
	ctx, span := p.tracer.Start(ctx, "guard.authorize",
		tracer.String("operation", op.Name),
		tracer.Bool("read", op.IsRead()),
	)
	defer func() { span.End(err) }()

	st := State{Token: token, Operation: op, Params: params}
	for _, stage := range p.stages {
		st, err = stage.Run(ctx, st)
		if err != nil {
			reason := dErrors.CodeOf(err)
			span.AddEvent("guard.denied", tracer.String("stage", stage.Name), tracer.String("reason", string(reason)))
			p.metrics.observeDecision(op.Name, string(reason), time.Since(start))
			p.logDenial(ctx, op, stage.Name, st, err)
			return nil, err
		}
		span.AddEvent("guard.passed", tracer.String("stage", stage.Name))
	}

	p.metrics.observeDecision(op.Name, "allow", time.Since(start))
	span.SetAttributes(tracer.String("role", string(st.Principal.Role)))
	return &Decision{Principal: st.Principal, TenantID: st.TenantID, Operation: op}, nil
}

func (p *Pipeline) logDenial(ctx context.Context, op Operation, stage string, st State, err error) {
	if p.logger == nil {
		return
	}
	attrs := []any{
		"operation", op.Name,
		"stage", stage,
		"reason", string(dErrors.CodeOf(err)),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	}
	if st.Principal != nil {
		attrs = append(attrs, "subject_id", st.Principal.SubjectID.String(), "role", string(st.Principal.Role))
	}
	if dErrors.HasCode(err, dErrors.CodeUnavailable) {
		p.logger.ErrorContext(ctx, "authorization failed closed", attrs...)
		return
	}
	p.logger.WarnContext(ctx, "authorization denied", attrs...)
}
