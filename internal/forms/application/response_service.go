package application

import (
	"context"
	"strings"
	"time"

	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
)

type responseService struct {
	forms     FormRepository
	responses ResponseRepository
	notifier  ResponseNotifier
	sanitizer *answerSanitizer
	now       func() time.Time
}

// NewResponseService wires the response use-cases. notifier may be nil.
func NewResponseService(forms FormRepository, responses ResponseRepository, notifier ResponseNotifier) ResponseService {
	return &responseService{
		forms:     forms,
		responses: responses,
		notifier:  notifier,
		sanitizer: newAnswerSanitizer(),
		now:       time.Now,
	}
}

// Submit validates the answers against the stored form and persists them.
// An unknown form surfaces as domain.ErrFormNotFound, a rejected response as
// *domain.ValidationError.
func (s *responseService) Submit(ctx context.Context, cmd SubmitResponseCommand) (*domain.ResponseRecord, error) {
	formID := strings.TrimSpace(cmd.FormID)
	if formID == "" {
		return nil, domain.ErrFormNotFound
	}
	loaded, err := s.forms.FindByID(ctx, formID)
	if err != nil {
		return nil, err
	}

	// 保存する回答そのものを検証する
	response := &domain.ResponseRecord{
		FormID:  formID,
		Answers: s.sanitizer.sanitize(*loaded, cmd.Answers),
	}
	lookup := domain.FormLookupFunc(func(context.Context, string) (*domain.FormSchema, error) {
		return loaded, nil
	})
	if err := domain.ValidateResponse(ctx, *response, lookup); err != nil {
		return nil, err
	}

	response.Submitted = s.now().UTC()

	if err := s.responses.Save(ctx, response); err != nil {
		return nil, err
	}

	if s.notifier != nil {
		form := *loaded
		stored := *response
		go s.notifier.NotifyResponse(context.Background(), form, stored)
	}

	return response, nil
}

// ListByForm returns the stored responses of an existing form.
func (s *responseService) ListByForm(ctx context.Context, formID string, limit int) ([]domain.ResponseRecord, error) {
	formID = strings.TrimSpace(formID)
	if formID == "" {
		return nil, domain.ErrFormNotFound
	}
	if _, err := s.forms.FindByID(ctx, formID); err != nil {
		return nil, err
	}
	return s.responses.ListByForm(ctx, formID, limit)
}
