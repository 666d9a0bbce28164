package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/registrar-docs-api/internal/models"
)

// WizardStateRepository stores the in-flight wizard aggregate and the durable
// payment snapshot in Redis. The aggregate is keyed by student so at most one
// submission can be in flight per requester; the payment snapshot is keyed the
// same way and deliberately outlives the aggregate so a full-page redirect to
// the payment provider cannot lose it.
type WizardStateRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewWizardStateRepository constructs the repository. A non-positive ttl
// falls back to 24 hours.
func NewWizardStateRepository(client *redis.Client, ttl time.Duration) *WizardStateRepository {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &WizardStateRepository{client: client, ttl: ttl}
}

func wizardStateKey(studentID string) string {
	return "wizard:state:" + studentID
}

func preservedPaymentKey(studentID string) string {
	return "wizard:payment:" + studentID
}

// Load returns the stored aggregate, or nil when no submission is in flight.
func (r *WizardStateRepository) Load(ctx context.Context, studentID string) (*models.WizardState, error) {
	raw, err := r.client.Get(ctx, wizardStateKey(studentID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load wizard state: %w", err)
	}
	var state models.WizardState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("decode wizard state: %w", err)
	}
	return &state, nil
}

// Save persists the aggregate, refreshing its TTL on every write so an active
// session never expires under the requester.
func (r *WizardStateRepository) Save(ctx context.Context, state *models.WizardState) error {
	state.UpdatedAt = time.Now().UTC()
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode wizard state: %w", err)
	}
	if err := r.client.Set(ctx, wizardStateKey(state.StudentID), payload, r.ttl).Err(); err != nil {
		return fmt.Errorf("save wizard state: %w", err)
	}
	return nil
}

// Clear removes the aggregate after a completed or abandoned submission.
func (r *WizardStateRepository) Clear(ctx context.Context, studentID string) error {
	if err := r.client.Del(ctx, wizardStateKey(studentID)).Err(); err != nil {
		return fmt.Errorf("clear wizard state: %w", err)
	}
	return nil
}

// SavePreserved writes the payment snapshot. It carries double the aggregate
// TTL because the requester is off-site at the gateway while it matters most.
func (r *WizardStateRepository) SavePreserved(ctx context.Context, studentID string, data *models.PreservedPaymentData) error {
	data.PreservedAt = time.Now().UTC()
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode preserved payment data: %w", err)
	}
	if err := r.client.Set(ctx, preservedPaymentKey(studentID), payload, 2*r.ttl).Err(); err != nil {
		return fmt.Errorf("save preserved payment data: %w", err)
	}
	return nil
}

// LoadPreserved returns the payment snapshot, or nil when none was written.
func (r *WizardStateRepository) LoadPreserved(ctx context.Context, studentID string) (*models.PreservedPaymentData, error) {
	raw, err := r.client.Get(ctx, preservedPaymentKey(studentID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("load preserved payment data: %w", err)
	}
	var data models.PreservedPaymentData
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("decode preserved payment data: %w", err)
	}
	return &data, nil
}

// ClearPreserved drops the payment snapshot once the payment resolved.
func (r *WizardStateRepository) ClearPreserved(ctx context.Context, studentID string) error {
	if err := r.client.Del(ctx, preservedPaymentKey(studentID)).Err(); err != nil {
		return fmt.Errorf("clear preserved payment data: %w", err)
	}
	return nil
}
