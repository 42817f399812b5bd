package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"condoflow/internal/cases"
	"condoflow/internal/quota"
	id "condoflow/pkg/domain"
	"condoflow/pkg/platform/sentinel"
)

// PostgresStore persists the case aggregate in PostgreSQL. Multi-row
// lifecycle mutations run inside transactions that lock the case row, so the
// state machine cannot race; quota admission runs serializable so two
// concurrent creations cannot both observe headroom.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

// serializationFailure is the SQLSTATE Postgres raises when a serializable
// transaction must be retried.
const serializationFailure = "40001"

const createRetries = 3

// CreateCaseWithinQuota counts admission usage and inserts the case as one
// serializable transaction, retrying on serialization failures. Returns the
// observed usage alongside sentinel.ErrQuotaExceeded when the limit is hit.
func (s *PostgresStore) CreateCaseWithinQuota(ctx context.Context, c *cases.Case, spec quota.Spec) (int, error) {
	var used int
	for attempt := 0; ; attempt++ {
		var err error
		used, err = s.tryCreateCase(ctx, c, spec)
		if err == nil || !isSerializationFailure(err) || attempt >= createRetries {
			return used, err
		}
	}
}

func (s *PostgresStore) tryCreateCase(ctx context.Context, c *cases.Case, spec quota.Spec) (int, error) {
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return 0, fmt.Errorf("begin create case: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var used int
	countQuery := `
		SELECT COUNT(*)
		FROM cases
		WHERE condominium_id = $1
		  AND type = $2
		  AND created_at >= $3
		  AND created_at <= $4
	`
	if err := tx.QueryRow(ctx, countQuery, c.CondominiumID.String(), string(spec.Type), spec.PeriodStart, spec.PeriodEnd).Scan(&used); err != nil {
		return 0, fmt.Errorf("count case usage: %w", err)
	}
	if !spec.Unlimited() && used >= spec.Limit {
		return used, sentinel.ErrQuotaExceeded
	}

	insert := `
		INSERT INTO cases (id, condominium_id, type, status, title, description, location, legal_basis,
			occurred_at, created_at, block_id, apartment_id, resident_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err = tx.Exec(ctx, insert,
		c.ID.String(),
		c.CondominiumID.String(),
		string(c.Type),
		string(c.Status),
		c.Title,
		c.Description,
		c.Location,
		c.LegalBasis,
		c.OccurredAt,
		c.CreatedAt,
		optionalID(c.BlockID),
		optionalID(c.ApartmentID),
		optionalID(c.ResidentID),
	)
	if err != nil {
		return used, fmt.Errorf("insert case: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return used, fmt.Errorf("commit create case: %w", err)
	}
	return used, nil
}

const caseColumns = `id, condominium_id, type, status, title, description, location, legal_basis,
	occurred_at, created_at, block_id, apartment_id, resident_id`

func (s *PostgresStore) GetCase(ctx context.Context, caseID id.CaseID) (*cases.Case, error) {
	row := s.db.QueryRow(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = $1`, caseID.String())
	c, err := scanCase(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get case: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) ListCasesByCondominium(ctx context.Context, condoID id.CondominiumID) ([]*cases.Case, error) {
	rows, err := s.db.Query(ctx, `SELECT `+caseColumns+` FROM cases WHERE condominium_id = $1 ORDER BY created_at`, condoID.String())
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	var out []*cases.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountCases implements the quota reporting count.
func (s *PostgresStore) CountCases(ctx context.Context, condoID id.CondominiumID, caseType cases.CaseType, statuses []cases.CaseStatus, from, to time.Time) (int, error) {
	statusList := make([]string, 0, len(statuses))
	for _, status := range statuses {
		statusList = append(statusList, string(status))
	}
	query := `
		SELECT COUNT(*)
		FROM cases
		WHERE condominium_id = $1
		  AND type = $2
		  AND status = ANY($3)
		  AND created_at >= $4
		  AND created_at <= $5
	`
	var count int
	if err := s.db.QueryRow(ctx, query, condoID.String(), string(caseType), statusList, from, to).Scan(&count); err != nil {
		return 0, fmt.Errorf("count cases: %w", err)
	}
	return count, nil
}

// AppendEvidence attaches an evidence item to an existing case.
func (s *PostgresStore) AppendEvidence(ctx context.Context, ev *cases.Evidence) error {
	query := `
		INSERT INTO evidence (id, case_id, file_url, file_type, description, attached_at)
		SELECT $1, c.id, $3, $4, $5, $6
		FROM cases c
		WHERE c.id = $2
	`
	tag, err := s.db.Exec(ctx, query,
		ev.ID.String(), ev.CaseID.String(), ev.FileURL, ev.FileType, ev.Description, ev.AttachedAt)
	if err != nil {
		return fmt.Errorf("append evidence: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListEvidence(ctx context.Context, caseID id.CaseID) ([]*cases.Evidence, error) {
	query := `
		SELECT id, case_id, file_url, file_type, description, attached_at
		FROM evidence
		WHERE case_id = $1
		ORDER BY attached_at
	`
	rows, err := s.db.Query(ctx, query, caseID.String())
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	defer rows.Close()

	var out []*cases.Evidence
	for rows.Next() {
		var (
			ev           cases.Evidence
			rawID, rawCase string
		)
		if err := rows.Scan(&rawID, &rawCase, &ev.FileURL, &ev.FileType, &ev.Description, &ev.AttachedAt); err != nil {
			return nil, fmt.Errorf("scan evidence: %w", err)
		}
		if ev.ID, err = id.ParseEvidenceID(rawID); err != nil {
			return nil, err
		}
		if ev.CaseID, err = id.ParseCaseID(rawCase); err != nil {
			return nil, err
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

// InsertDefenseAtomic stores the defense and moves the case to in_defense
// inside one transaction holding the case row lock.
func (s *PostgresStore) InsertDefenseAtomic(ctx context.Context, d *cases.Defense) error {
	return s.withCaseLock(ctx, d.CaseID, func(tx pgx.Tx, status cases.CaseStatus) error {
		if status != cases.StatusRegistered && status != cases.StatusNotified {
			return sentinel.ErrInvalidState
		}

		insert := `
			INSERT INTO defenses (id, case_id, resident_id, content, submitted_at, deadline)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.Exec(ctx, insert,
			d.ID.String(), d.CaseID.String(), d.ResidentID.String(), d.Content, d.SubmittedAt, d.Deadline); err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert defense: %w", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE cases SET status = $2 WHERE id = $1`,
			d.CaseID.String(), string(cases.StatusInDefense)); err != nil {
			return fmt.Errorf("transition case to in_defense: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetDefense(ctx context.Context, caseID id.CaseID) (*cases.Defense, error) {
	query := `
		SELECT id, case_id, resident_id, content, submitted_at, deadline
		FROM defenses
		WHERE case_id = $1
	`
	var (
		d                        cases.Defense
		rawID, rawCase, rawResident string
	)
	err := s.db.QueryRow(ctx, query, caseID.String()).Scan(
		&rawID, &rawCase, &rawResident, &d.Content, &d.SubmittedAt, &d.Deadline)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get defense: %w", err)
	}
	if d.ID, err = id.ParseDefenseID(rawID); err != nil {
		return nil, err
	}
	if d.CaseID, err = id.ParseCaseID(rawCase); err != nil {
		return nil, err
	}
	if d.ResidentID, err = id.ParseResidentID(rawResident); err != nil {
		return nil, err
	}
	return &d, nil
}

// RecordSentAtomic appends a notification event and idempotently moves a
// registered case to notified, all under the case row lock.
func (s *PostgresStore) RecordSentAtomic(ctx context.Context, ev *cases.NotificationEvent) error {
	return s.withCaseLock(ctx, ev.CaseID, func(tx pgx.Tx, status cases.CaseStatus) error {
		insert := `
			INSERT INTO notification_events (id, case_id, channel, sent_at)
			VALUES ($1, $2, $3, $4)
		`
		if _, err := tx.Exec(ctx, insert,
			ev.ID.String(), ev.CaseID.String(), ev.Channel, ev.SentAt); err != nil {
			return fmt.Errorf("insert notification event: %w", err)
		}

		if status == cases.StatusRegistered {
			if _, err := tx.Exec(ctx, `UPDATE cases SET status = $2 WHERE id = $1`,
				ev.CaseID.String(), string(cases.StatusNotified)); err != nil {
				return fmt.Errorf("transition case to notified: %w", err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) GetNotificationEvent(ctx context.Context, eventID id.NotificationEventID) (*cases.NotificationEvent, error) {
	query := `
		SELECT id, case_id, channel, sent_at, delivered_at, read_at, acknowledged_at
		FROM notification_events
		WHERE id = $1
	`
	ev, err := scanNotificationEvent(s.db.QueryRow(ctx, query, eventID.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get notification event: %w", err)
	}
	return ev, nil
}

func (s *PostgresStore) ListNotificationEvents(ctx context.Context, caseID id.CaseID) ([]*cases.NotificationEvent, error) {
	query := `
		SELECT id, case_id, channel, sent_at, delivered_at, read_at, acknowledged_at
		FROM notification_events
		WHERE case_id = $1
		ORDER BY sent_at
	`
	rows, err := s.db.Query(ctx, query, caseID.String())
	if err != nil {
		return nil, fmt.Errorf("list notification events: %w", err)
	}
	defer rows.Close()

	var out []*cases.NotificationEvent
	for rows.Next() {
		ev, err := scanNotificationEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// SetDeliveredAt records the delivery timestamp once; repeats are no-ops.
func (s *PostgresStore) SetDeliveredAt(ctx context.Context, eventID id.NotificationEventID, at time.Time) error {
	return s.setEventTimestamp(ctx, eventID, "delivered_at", at)
}

// SetReadAt records the read timestamp once; repeats are no-ops.
func (s *PostgresStore) SetReadAt(ctx context.Context, eventID id.NotificationEventID, at time.Time) error {
	return s.setEventTimestamp(ctx, eventID, "read_at", at)
}

// SetAcknowledgedAt records the acknowledge timestamp once; repeats are no-ops.
func (s *PostgresStore) SetAcknowledgedAt(ctx context.Context, eventID id.NotificationEventID, at time.Time) error {
	return s.setEventTimestamp(ctx, eventID, "acknowledged_at", at)
}

// setEventTimestamp uses COALESCE so only the first write sticks; applying
// the same update twice leaves identical state.
func (s *PostgresStore) setEventTimestamp(ctx context.Context, eventID id.NotificationEventID, column string, at time.Time) error {
	query := fmt.Sprintf(`UPDATE notification_events SET %s = COALESCE(%s, $2) WHERE id = $1`, column, column)
	tag, err := s.db.Exec(ctx, query, eventID.String(), at)
	if err != nil {
		return fmt.Errorf("set %s: %w", column, err)
	}
	if tag.RowsAffected() == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// InsertDecisionAtomic stores the decision and closes the case under the case
// row lock. A second decision fails on the ErrInvalidState check or, at worst,
// the unique constraint on case_id.
func (s *PostgresStore) InsertDecisionAtomic(ctx context.Context, d *cases.Decision) error {
	return s.withCaseLock(ctx, d.CaseID, func(tx pgx.Tx, status cases.CaseStatus) error {
		if status.Terminal() {
			return sentinel.ErrInvalidState
		}

		insert := `
			INSERT INTO decisions (id, case_id, outcome, justification, decided_at, decided_by)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.Exec(ctx, insert,
			d.ID.String(), d.CaseID.String(), string(d.Outcome), d.Justification, d.DecidedAt, d.DecidedBy.String()); err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrConflict
			}
			return fmt.Errorf("insert decision: %w", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE cases SET status = $2 WHERE id = $1`,
			d.CaseID.String(), string(d.Outcome.Status())); err != nil {
			return fmt.Errorf("close case: %w", err)
		}
		return nil
	})
}

func (s *PostgresStore) GetDecision(ctx context.Context, caseID id.CaseID) (*cases.Decision, error) {
	query := `
		SELECT id, case_id, outcome, justification, decided_at, decided_by
		FROM decisions
		WHERE case_id = $1
	`
	var (
		d                     cases.Decision
		rawID, rawCase, rawBy string
		rawOutcome            string
	)
	err := s.db.QueryRow(ctx, query, caseID.String()).Scan(
		&rawID, &rawCase, &rawOutcome, &d.Justification, &d.DecidedAt, &rawBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get decision: %w", err)
	}
	if d.ID, err = id.ParseDecisionID(rawID); err != nil {
		return nil, err
	}
	if d.CaseID, err = id.ParseCaseID(rawCase); err != nil {
		return nil, err
	}
	if d.DecidedBy, err = id.ParseActorID(rawBy); err != nil {
		return nil, err
	}
	if d.Outcome, err = cases.ParseDecisionOutcome(rawOutcome); err != nil {
		return nil, err
	}
	return &d, nil
}

// withCaseLock runs fn inside a transaction holding FOR UPDATE on the case
// row, handing it the current status. Serializes all lifecycle mutations on
// one case.
func (s *PostgresStore) withCaseLock(ctx context.Context, caseID id.CaseID, fn func(tx pgx.Tx, status cases.CaseStatus) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin case mutation: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var rawStatus string
	err = tx.QueryRow(ctx, `SELECT status FROM cases WHERE id = $1 FOR UPDATE`, caseID.String()).Scan(&rawStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return sentinel.ErrNotFound
		}
		return fmt.Errorf("lock case row: %w", err)
	}

	if err := fn(tx, cases.CaseStatus(rawStatus)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit case mutation: %w", err)
	}
	return nil
}

type caseRow interface {
	Scan(dest ...any) error
}

func scanCase(row caseRow) (*cases.Case, error) {
	var (
		c                               cases.Case
		rawID, rawCondo                 string
		rawType, rawStatus              string
		rawBlock, rawApartment, rawRes  *string
	)
	if err := row.Scan(&rawID, &rawCondo, &rawType, &rawStatus, &c.Title, &c.Description,
		&c.Location, &c.LegalBasis, &c.OccurredAt, &c.CreatedAt, &rawBlock, &rawApartment, &rawRes); err != nil {
		return nil, err
	}

	var err error
	if c.ID, err = id.ParseCaseID(rawID); err != nil {
		return nil, err
	}
	if c.CondominiumID, err = id.ParseCondominiumID(rawCondo); err != nil {
		return nil, err
	}
	if c.Type, err = cases.ParseCaseType(rawType); err != nil {
		return nil, err
	}
	c.Status = cases.CaseStatus(rawStatus)

	if rawBlock != nil {
		block, err := id.ParseBlockID(*rawBlock)
		if err != nil {
			return nil, err
		}
		c.BlockID = &block
	}
	if rawApartment != nil {
		apartment, err := id.ParseApartmentID(*rawApartment)
		if err != nil {
			return nil, err
		}
		c.ApartmentID = &apartment
	}
	if rawRes != nil {
		resident, err := id.ParseResidentID(*rawRes)
		if err != nil {
			return nil, err
		}
		c.ResidentID = &resident
	}
	return &c, nil
}

func scanNotificationEvent(row caseRow) (*cases.NotificationEvent, error) {
	var (
		ev             cases.NotificationEvent
		rawID, rawCase string
	)
	if err := row.Scan(&rawID, &rawCase, &ev.Channel, &ev.SentAt,
		&ev.DeliveredAt, &ev.ReadAt, &ev.AcknowledgedAt); err != nil {
		return nil, err
	}
	var err error
	if ev.ID, err = id.ParseNotificationEventID(rawID); err != nil {
		return nil, err
	}
	if ev.CaseID, err = id.ParseCaseID(rawCase); err != nil {
		return nil, err
	}
	return &ev, nil
}

func optionalID[T fmt.Stringer](v *T) *string {
	if v == nil {
		return nil
	}
	s := (*v).String()
	return &s
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == serializationFailure
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
