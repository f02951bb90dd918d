package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
)

type fieldRecord struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Type          string              `json:"type"`
	Required      bool                `json:"required"`
	AllowedValues []domain.TypedValue `json:"allowedValues,omitempty"`
	DependsOn     []dependencyRecord  `json:"dependsOn,omitempty"`
}

type dependencyRecord struct {
	Field string            `json:"field"`
	Value domain.TypedValue `json:"value"`
}

// FormRepository implements application.FormRepository.
type FormRepository struct {
	store *Store
}

func NewFormRepository(store *Store) *FormRepository {
	return &FormRepository{store: store}
}

func (r *FormRepository) Save(ctx context.Context, form *domain.FormSchema) error {
	if form == nil {
		return errors.New("form payload is nil")
	}
	created := form.Created
	if created.IsZero() {
		created = time.Now()
	}
	created = created.UTC().Truncate(time.Microsecond)

	id := uuid.NewString()
	fieldIDs := make([]string, len(form.Fields))
	records := make([]fieldRecord, len(form.Fields))
	for i, field := range form.Fields {
		fieldIDs[i] = uuid.NewString()
		records[i] = fieldToRecord(field)
		records[i].ID = fieldIDs[i]
	}
	fields, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode fields: %w", err)
	}

	query := r.store.rebind(`INSERT INTO forms (id, title, fields, created_at) VALUES (?, ?, ?, ?)`)
	if _, err := r.store.db.ExecContext(ctx, query, id, form.Title, string(fields), toMicros(created)); err != nil {
		return fmt.Errorf("insert form: %w", err)
	}

	form.ID = id
	form.Created = created
	for i := range form.Fields {
		form.Fields[i].ID = fieldIDs[i]
	}
	return nil
}

func (r *FormRepository) FindByID(ctx context.Context, id string) (*domain.FormSchema, error) {
	id = strings.TrimSpace(id)
	query := r.store.rebind(`SELECT id, title, fields, created_at FROM forms WHERE id = ?`)
	form, err := scanForm(r.store.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("form %q: %w", id, domain.ErrFormNotFound)
		}
		return nil, err
	}
	return &form, nil
}

// List returns forms newest first; limit <= 0 returns all of them.
func (r *FormRepository) List(ctx context.Context, limit int) ([]domain.FormSchema, error) {
	query, args := withLimit(`SELECT id, title, fields, created_at FROM forms ORDER BY created_at DESC`, nil, limit)
	rows, err := r.store.db.QueryContext(ctx, r.store.rebind(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	forms := make([]domain.FormSchema, 0)
	for rows.Next() {
		form, err := scanForm(rows)
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return forms, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanForm(row rowScanner) (domain.FormSchema, error) {
	var (
		id, title, fields string
		created           int64
	)
	if err := row.Scan(&id, &title, &fields, &created); err != nil {
		return domain.FormSchema{}, err
	}

	var records []fieldRecord
	if err := json.Unmarshal([]byte(fields), &records); err != nil {
		return domain.FormSchema{}, fmt.Errorf("form %s: decode fields: %w", id, err)
	}
	form := domain.FormSchema{
		ID:      id,
		Title:   title,
		Created: fromMicros(created),
		Fields:  make([]domain.FieldSchema, 0, len(records)),
	}
	for _, record := range records {
		field, err := fieldFromRecord(record)
		if err != nil {
			return domain.FormSchema{}, fmt.Errorf("form %s: %w", id, err)
		}
		form.Fields = append(form.Fields, field)
	}
	return form, nil
}

func fieldToRecord(field domain.FieldSchema) fieldRecord {
	deps := make([]dependencyRecord, 0, len(field.DependsOn))
	for _, dep := range field.DependsOn {
		deps = append(deps, dependencyRecord{Field: dep.Field, Value: dep.Value})
	}
	return fieldRecord{
		Name:          field.Name,
		Type:          field.Type.String(),
		Required:      field.Required,
		AllowedValues: field.AllowedValues,
		DependsOn:     deps,
	}
}

func fieldFromRecord(record fieldRecord) (domain.FieldSchema, error) {
	fieldType, err := domain.ParseFieldType(record.Type)
	if err != nil {
		return domain.FieldSchema{}, fmt.Errorf("field %s: %w", record.Name, err)
	}
	deps := make([]domain.Dependency, 0, len(record.DependsOn))
	for _, dep := range record.DependsOn {
		deps = append(deps, domain.Dependency{Field: dep.Field, Value: dep.Value})
	}
	return domain.FieldSchema{
		ID:            record.ID,
		Name:          record.Name,
		Type:          fieldType,
		Required:      record.Required,
		AllowedValues: append([]domain.TypedValue{}, record.AllowedValues...),
		DependsOn:     deps,
	}, nil
}
