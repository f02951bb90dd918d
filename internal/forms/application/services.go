package application

import (
	"context"

	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
)

// FormRepository persists form definitions.
// FormRepository はフォーム定義を保存・取得するためのポート。
type FormRepository interface {
	// Save assigns the form id, field ids and, when zero, the creation time.
	Save(ctx context.Context, form *domain.FormSchema) error
	// FindByID returns domain.ErrFormNotFound for unknown ids.
	FindByID(ctx context.Context, id string) (*domain.FormSchema, error)
	// List returns at most limit forms, newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]domain.FormSchema, error)
}

// ResponseRepository persists responses.
type ResponseRepository interface {
	Save(ctx context.Context, response *domain.ResponseRecord) error
	ListByForm(ctx context.Context, formID string, limit int) ([]domain.ResponseRecord, error)
}

// ResponseNotifier is told about every response that was stored.
type ResponseNotifier interface {
	NotifyResponse(ctx context.Context, form domain.FormSchema, response domain.ResponseRecord)
}

// FormService describes form management use-cases.
type FormService interface {
	Create(ctx context.Context, cmd CreateFormCommand) (*domain.FormSchema, error)
	Detail(ctx context.Context, id string) (*domain.FormSchema, error)
	List(ctx context.Context, limit int) ([]domain.FormSchema, error)
}

// ResponseService describes response submission use-cases.
type ResponseService interface {
	Submit(ctx context.Context, cmd SubmitResponseCommand) (*domain.ResponseRecord, error)
	ListByForm(ctx context.Context, formID string, limit int) ([]domain.ResponseRecord, error)
}

// CreateFormCommand contains inputs for creating a form.
type CreateFormCommand struct {
	Title  string
	Fields []FieldCommand
}

// FieldCommand describes one field of a CreateFormCommand.
type FieldCommand struct {
	Name          string
	Type          domain.FieldType
	Required      bool
	AllowedValues []domain.TypedValue
	DependsOn     []domain.Dependency
}

// SubmitResponseCommand contains the answers submitted for a form.
type SubmitResponseCommand struct {
	FormID  string
	Answers map[string]domain.TypedValue
}
