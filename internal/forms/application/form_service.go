package application

import (
	"context"
	"strings"

	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
)

type formService struct {
	repo FormRepository
}

func NewFormService(repo FormRepository) FormService {
	return &formService{repo: repo}
}

// Create validates the form and stores it only when it is valid. Validation
// failures are returned as *domain.ValidationError.
func (s *formService) Create(ctx context.Context, cmd CreateFormCommand) (*domain.FormSchema, error) {
	form := buildFormFromCommand(cmd)
	if err := domain.ValidateForm(*form); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, form); err != nil {
		return nil, err
	}
	return form, nil
}

func (s *formService) Detail(ctx context.Context, id string) (*domain.FormSchema, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, domain.ErrFormNotFound
	}
	return s.repo.FindByID(ctx, id)
}

func (s *formService) List(ctx context.Context, limit int) ([]domain.FormSchema, error) {
	return s.repo.List(ctx, limit)
}

func buildFormFromCommand(cmd CreateFormCommand) *domain.FormSchema {
	fields := make([]domain.FieldSchema, 0, len(cmd.Fields))
	for _, field := range cmd.Fields {
		fields = append(fields, domain.FieldSchema{
			Name:          field.Name,
			Type:          field.Type,
			Required:      field.Required,
			AllowedValues: append([]domain.TypedValue{}, field.AllowedValues...),
			DependsOn:     append([]domain.Dependency{}, field.DependsOn...),
		})
	}
	return &domain.FormSchema{
		Title:  cmd.Title,
		Fields: fields,
	}
}
