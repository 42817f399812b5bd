package audit_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"condoflow/internal/audit"
	id "condoflow/pkg/domain"
	"condoflow/pkg/requestcontext"
)

type captureSink struct {
	events chan audit.Event
}

func (s *captureSink) Publish(_ context.Context, event audit.Event) error {
	s.events <- event
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestEmitEnrichesFromContext(t *testing.T) {
	logger := discardLogger()
	recorder := audit.NewRecorder(8, logger)

	actorID := id.ActorID(uuid.New())
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithActor(context.Background(), actorID, requestcontext.RoleManager)
	ctx = requestcontext.WithTime(ctx, now)

	caseID := id.NewCaseID()
	recorder.Emit(ctx, audit.Event{
		Action: audit.ActionCaseRegistered,
		CaseID: caseID,
	})

	event := <-recorder.Inbox()
	assert.Equal(t, audit.ActionCaseRegistered, event.Action)
	assert.Equal(t, caseID, event.CaseID)
	assert.Equal(t, actorID.String(), event.ActorID)
	assert.Equal(t, string(requestcontext.RoleManager), event.ActorRole)
	assert.Equal(t, now, event.Timestamp)
}

func TestEmitFullBufferDropsWithoutBlocking(t *testing.T) {
	recorder := audit.NewRecorder(1, discardLogger())
	ctx := context.Background()

	recorder.Emit(ctx, audit.Event{Action: audit.ActionCaseRegistered})

	done := make(chan struct{})
	go func() {
		recorder.Emit(ctx, audit.Event{Action: audit.ActionCaseRegistered})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full buffer")
	}
}

func TestWorkerDrainsToStoreAndSink(t *testing.T) {
	logger := discardLogger()
	recorder := audit.NewRecorder(8, logger)
	store := audit.NewMemoryStore()
	sink := &captureSink{events: make(chan audit.Event, 8)}

	worker := audit.NewWorker(store, sink, recorder.Inbox(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	caseID := id.NewCaseID()
	recorder.Emit(ctx, audit.Event{
		Action:  audit.ActionDecisionIssued,
		CaseID:  caseID,
		Outcome: "fined",
	})

	select {
	case published := <-sink.events:
		assert.Equal(t, audit.ActionDecisionIssued, published.Action)
	case <-time.After(2 * time.Second):
		t.Fatal("sink never received the event")
	}

	stored, err := store.ListByCase(ctx, caseID)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "fined", stored[0].Outcome)
}

func TestWorkerWithoutSink(t *testing.T) {
	logger := discardLogger()
	recorder := audit.NewRecorder(8, logger)
	store := audit.NewMemoryStore()

	worker := audit.NewWorker(store, nil, recorder.Inbox(), logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = worker.Run(ctx) }()

	caseID := id.NewCaseID()
	recorder.Emit(ctx, audit.Event{Action: audit.ActionEvidenceAttached, CaseID: caseID})

	require.Eventually(t, func() bool {
		stored, err := store.ListByCase(ctx, caseID)
		return err == nil && len(stored) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventSerializesIDsAsStrings(t *testing.T) {
	condoID := id.CondominiumID(uuid.New())
	caseID := id.NewCaseID()

	payload, err := json.Marshal(audit.Event{
		Action:        audit.ActionCaseRegistered,
		CondominiumID: condoID,
		CaseID:        caseID,
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, condoID.String(), decoded["condominium_id"])
	assert.Equal(t, caseID.String(), decoded["case_id"])
}
