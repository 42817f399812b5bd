package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"condoflow/internal/audit"
	"condoflow/internal/cases"
	casemetrics "condoflow/internal/cases/metrics"
	"condoflow/internal/quota"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/sentinel"
	"condoflow/pkg/requestcontext"
)

// Store is the persistence surface the case registry needs. The quota check
// is executed atomically with the insert inside the store.
type Store interface {
	CreateCaseWithinQuota(ctx context.Context, c *cases.Case, spec quota.Spec) (int, error)
	GetCase(ctx context.Context, caseID id.CaseID) (*cases.Case, error)
	ListCasesByCondominium(ctx context.Context, condoID id.CondominiumID) ([]*cases.Case, error)
	GetDecision(ctx context.Context, caseID id.CaseID) (*cases.Decision, error)
}

// QuotaGuard resolves admission specs and usage reports.
type QuotaGuard interface {
	SpecFor(ctx context.Context, condoID id.CondominiumID, caseType cases.CaseType) (*quota.Spec, error)
	Usage(ctx context.Context, condoID id.CondominiumID) (*quota.Report, error)
}

// Service is the case registry: quota-gated registration plus reads.
type Service struct {
	store   Store
	quota   QuotaGuard
	auditor *audit.Recorder
	metrics *casemetrics.Metrics
	logger  *slog.Logger
	tracer  trace.Tracer
}

func New(store Store, guard QuotaGuard, auditor *audit.Recorder, metrics *casemetrics.Metrics, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		quota:   guard,
		auditor: auditor,
		metrics: metrics,
		logger:  logger,
		tracer:  otel.Tracer("condoflow/cases"),
	}
}

// RegisterInput carries the validated registration payload.
type RegisterInput struct {
	CondominiumID id.CondominiumID
	Type          cases.CaseType
	Title         string
	Description   string
	Location      string
	LegalBasis    string
	OccurredAt    time.Time

	BlockID     *id.BlockID
	ApartmentID *id.ApartmentID
	ResidentID  *id.ResidentID
}

func (in *RegisterInput) validate() error {
	if in.CondominiumID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "condominium_id is required")
	}
	if strings.TrimSpace(in.Title) == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if in.OccurredAt.IsZero() {
		return dErrors.New(dErrors.CodeValidation, "occurred_at is required")
	}
	return nil
}

// Register creates a case in registered status if the condominium's active
// subscription period still has headroom for the type. Only managers register
// cases.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*cases.Case, error) {
	ctx, span := s.tracer.Start(ctx, "cases.Register",
		trace.WithAttributes(attribute.String("case.type", string(in.Type))))
	defer span.End()

	start := time.Now()

	if role := requestcontext.Role(ctx); role != requestcontext.RoleManager {
		return nil, dErrors.New(dErrors.CodeForbidden, "only managers may register cases")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	spec, err := s.quota.SpecFor(ctx, in.CondominiumID, in.Type)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active subscription period for condominium")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve quota")
	}

	now := requestcontext.Now(ctx)
	c := &cases.Case{
		ID:            id.NewCaseID(),
		CondominiumID: in.CondominiumID,
		Type:          in.Type,
		Status:        cases.StatusRegistered,
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Location:      in.Location,
		LegalBasis:    in.LegalBasis,
		OccurredAt:    in.OccurredAt,
		CreatedAt:     now,
		BlockID:       in.BlockID,
		ApartmentID:   in.ApartmentID,
		ResidentID:    in.ResidentID,
	}

	used, err := s.store.CreateCaseWithinQuota(ctx, c, *spec)
	if err != nil {
		if errors.Is(err, sentinel.ErrQuotaExceeded) {
			s.metrics.IncrementQuotaDenied(string(in.Type))
			s.auditor.Emit(ctx, audit.Event{
				Action:        audit.ActionCaseRejectedQuota,
				CondominiumID: in.CondominiumID,
				Reason:        "quota exhausted for " + string(in.Type),
			})
			return nil, dErrors.New(dErrors.CodeQuotaExceeded, "subscription limit reached for case type").
				WithDetails(map[string]any{
					"type":  string(in.Type),
					"limit": spec.Limit,
					"used":  used,
				})
		}
		s.logger.ErrorContext(ctx, "failed to register case",
			"condominium_id", in.CondominiumID,
			"type", in.Type,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register case")
	}

	s.auditor.Emit(ctx, audit.Event{
		Action:        audit.ActionCaseRegistered,
		CondominiumID: c.CondominiumID,
		CaseID:        c.ID,
		Outcome:       string(c.Status),
	})
	s.metrics.IncrementRegistered(string(c.Type))
	s.metrics.ObserveRegisterLatency(time.Since(start))

	return c, nil
}

// Detail is the read model for a single case: the record plus its decision
// once one exists.
type Detail struct {
	Case     *cases.Case
	Decision *cases.Decision
}

func (s *Service) Get(ctx context.Context, caseID id.CaseID) (*Detail, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, wrapCaseErr(err)
	}

	decision, err := s.store.GetDecision(ctx, caseID)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load decision")
	}
	return &Detail{Case: c, Decision: decision}, nil
}

func (s *Service) ListByCondominium(ctx context.Context, condoID id.CondominiumID) ([]*cases.Case, error) {
	if condoID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "condominium_id is required")
	}
	list, err := s.store.ListCasesByCondominium(ctx, condoID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list cases")
	}
	return list, nil
}

// QuotaReport exposes the per-type usage view for the condominium's active
// period.
func (s *Service) QuotaReport(ctx context.Context, condoID id.CondominiumID) (*quota.Report, error) {
	if condoID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "condominium_id is required")
	}
	report, err := s.quota.Usage(ctx, condoID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no active subscription period for condominium")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build quota report")
	}
	return report, nil
}

func wrapCaseErr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "case not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "case lookup failed")
}
