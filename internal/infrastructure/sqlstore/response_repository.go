package sqlstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
	"github.com/sngm3741/ashby-forms/api/internal/infrastructure/messenger"
)

// ResponseRepository implements application.ResponseRepository.
type ResponseRepository struct {
	store *Store
}

func NewResponseRepository(store *Store) *ResponseRepository {
	return &ResponseRepository{store: store}
}

func (r *ResponseRepository) Save(ctx context.Context, response *domain.ResponseRecord) error {
	if response == nil {
		return errors.New("response payload is nil")
	}
	submitted := response.Submitted
	if submitted.IsZero() {
		submitted = time.Now()
	}
	submitted = submitted.UTC().Truncate(time.Microsecond)
	answers, err := json.Marshal(response.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}

	id := uuid.NewString()
	query := r.store.rebind(`INSERT INTO responses (id, form_id, answers, submitted_at) VALUES (?, ?, ?, ?)`)
	if _, err := r.store.db.ExecContext(ctx, query, id, strings.TrimSpace(response.FormID), string(answers), toMicros(submitted)); err != nil {
		return fmt.Errorf("insert response: %w", err)
	}

	response.ID = id
	response.Submitted = submitted
	return nil
}

// ListByForm returns the responses of a form newest first.
func (r *ResponseRepository) ListByForm(ctx context.Context, formID string, limit int) ([]domain.ResponseRecord, error) {
	query, args := withLimit(
		`SELECT id, form_id, answers, submitted_at FROM responses WHERE form_id = ? ORDER BY submitted_at DESC`,
		[]any{strings.TrimSpace(formID)}, limit)
	rows, err := r.store.db.QueryContext(ctx, r.store.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := make([]domain.ResponseRecord, 0)
	for rows.Next() {
		var (
			id, form, answers string
			submitted         int64
		)
		if err := rows.Scan(&id, &form, &answers, &submitted); err != nil {
			return nil, err
		}
		record := domain.ResponseRecord{
			ID:        id,
			FormID:    form,
			Submitted: fromMicros(submitted),
		}
		if err := json.Unmarshal([]byte(answers), &record.Answers); err != nil {
			return nil, fmt.Errorf("response %s: decode answers: %w", id, err)
		}
		if record.Answers == nil {
			record.Answers = map[string]domain.TypedValue{}
		}
		responses = append(responses, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return responses, nil
}

// FailedNotificationRepository implements messenger.FailureRecorder.
type FailedNotificationRepository struct {
	store *Store
}

func NewFailedNotificationRepository(store *Store) *FailedNotificationRepository {
	return &FailedNotificationRepository{store: store}
}

func (r *FailedNotificationRepository) RecordFailure(ctx context.Context, failure messenger.Failure) error {
	errText := ""
	if failure.Err != nil {
		errText = failure.Err.Error()
	}
	query := r.store.rebind(`INSERT INTO failed_notifications
        (id, target, form_id, response_id, message, error, attempts, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, 'pending', ?)`)
	_, err := r.store.db.ExecContext(ctx, query,
		uuid.NewString(), failure.Target, failure.FormID, failure.ResponseID,
		failure.Message, errText, failure.Attempts, toMicros(time.Now()))
	if err != nil {
		return fmt.Errorf("insert failed notification: %w", err)
	}
	return nil
}
