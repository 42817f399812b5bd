// Package timeline assembles the chronological view of a case from the rows
// the other modules wrote. Pure read: the sources are fetched concurrently
// and merged into one ordered list.
package timeline

import (
	"context"
	"errors"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"condoflow/internal/cases"
	id "condoflow/pkg/domain"
	dErrors "condoflow/pkg/domain-errors"
	"condoflow/pkg/platform/sentinel"
)

// Kind classifies a timeline item. Priority breaks timestamp ties so equal
// times still render in causal order.
type Kind string

const (
	KindCreated      Kind = "created"
	KindEvidence     Kind = "evidence"
	KindNotification Kind = "notification"
	KindDefense      Kind = "defense"
	KindDecision     Kind = "decision"
)

var kindPriority = map[Kind]int{
	KindCreated:      0,
	KindEvidence:     1,
	KindNotification: 2,
	KindDefense:      3,
	KindDecision:     4,
}

// Item is one timeline entry.
type Item struct {
	Kind      Kind
	Timestamp time.Time
	Summary   string
	RefID     string
}

// Store is the read surface the synthesizer fans out over.
type Store interface {
	GetCase(ctx context.Context, caseID id.CaseID) (*cases.Case, error)
	ListEvidence(ctx context.Context, caseID id.CaseID) ([]*cases.Evidence, error)
	ListNotificationEvents(ctx context.Context, caseID id.CaseID) ([]*cases.NotificationEvent, error)
	GetDefense(ctx context.Context, caseID id.CaseID) (*cases.Defense, error)
	GetDecision(ctx context.Context, caseID id.CaseID) (*cases.Decision, error)
}

type Service struct {
	store  Store
	tracer trace.Tracer
}

func New(store Store) *Service {
	return &Service{store: store, tracer: otel.Tracer("condoflow/timeline")}
}

// Build returns the case timeline in ascending timestamp order.
func (s *Service) Build(ctx context.Context, caseID id.CaseID) ([]Item, error) {
	ctx, span := s.tracer.Start(ctx, "timeline.Build",
		trace.WithAttributes(attribute.String("case.id", caseID.String())))
	defer span.End()

	var (
		c        *cases.Case
		evidence []*cases.Evidence
		events   []*cases.NotificationEvent
		defense  *cases.Defense
		decision *cases.Decision
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		c, err = s.store.GetCase(gctx, caseID)
		return err
	})
	g.Go(func() (err error) {
		evidence, err = s.store.ListEvidence(gctx, caseID)
		return err
	})
	g.Go(func() (err error) {
		events, err = s.store.ListNotificationEvents(gctx, caseID)
		return err
	})
	g.Go(func() error {
		d, err := s.store.GetDefense(gctx, caseID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return err
		}
		defense = d
		return nil
	})
	g.Go(func() error {
		d, err := s.store.GetDecision(gctx, caseID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return err
		}
		decision = d
		return nil
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "case not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assemble timeline")
	}

	items := make([]Item, 0, 2+len(evidence)+len(events))
	items = append(items, Item{
		Kind:      KindCreated,
		Timestamp: c.CreatedAt,
		Summary:   "case registered: " + c.Title,
		RefID:     c.ID.String(),
	})
	for _, ev := range evidence {
		items = append(items, Item{
			Kind:      KindEvidence,
			Timestamp: ev.AttachedAt,
			Summary:   "evidence attached (" + ev.FileType + ")",
			RefID:     ev.ID.String(),
		})
	}
	for _, ev := range events {
		items = append(items, Item{
			Kind:      KindNotification,
			Timestamp: ev.SentAt,
			Summary:   "notification sent via " + ev.Channel,
			RefID:     ev.ID.String(),
		})
	}
	if defense != nil {
		items = append(items, Item{
			Kind:      KindDefense,
			Timestamp: defense.SubmittedAt,
			Summary:   "defense submitted",
			RefID:     defense.ID.String(),
		})
	}
	if decision != nil {
		items = append(items, Item{
			Kind:      KindDecision,
			Timestamp: decision.DecidedAt,
			Summary:   "decision: " + string(decision.Outcome),
			RefID:     decision.ID.String(),
		})
	}

	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Timestamp.Equal(items[j].Timestamp) {
			return kindPriority[items[i].Kind] < kindPriority[items[j].Kind]
		}
		return items[i].Timestamp.Before(items[j].Timestamp)
	})
	return items, nil
}
