package defense

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"condoflow/internal/cases"
)

// AuthorityNotifier tells the adjudicating authority a defense was filed.
type AuthorityNotifier interface {
	DefenseSubmitted(ctx context.Context, c *cases.Case, d *cases.Defense) error
}

// NoopNotifier is used when no authority endpoint is configured.
type NoopNotifier struct{}

func (NoopNotifier) DefenseSubmitted(context.Context, *cases.Case, *cases.Defense) error {
	return nil
}

// WebhookNotifier posts a JSON summary to the authority's endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

func NewWebhookNotifier(url string) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

type defenseSubmittedPayload struct {
	CaseID        string    `json:"case_id"`
	CondominiumID string    `json:"condominium_id"`
	CaseType      string    `json:"case_type"`
	Title         string    `json:"title"`
	DefenseID     string    `json:"defense_id"`
	ResidentID    string    `json:"resident_id"`
	SubmittedAt   time.Time `json:"submitted_at"`
	Deadline      time.Time `json:"deadline"`
}

func (n *WebhookNotifier) DefenseSubmitted(ctx context.Context, c *cases.Case, d *cases.Defense) error {
	payload, err := json.Marshal(defenseSubmittedPayload{
		CaseID:        c.ID.String(),
		CondominiumID: c.CondominiumID.String(),
		CaseType:      string(c.Type),
		Title:         c.Title,
		DefenseID:     d.ID.String(),
		ResidentID:    d.ResidentID.String(),
		SubmittedAt:   d.SubmittedAt,
		Deadline:      d.Deadline,
	})
	if err != nil {
		return fmt.Errorf("marshal authority payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build authority request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post to authority: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("authority endpoint returned %d", resp.StatusCode)
	}
	return nil
}
