package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
)

type memoryForms struct {
	mu    sync.Mutex
	forms map[string]domain.FormSchema
	saves int
}

func newMemoryForms() *memoryForms {
	return &memoryForms{forms: make(map[string]domain.FormSchema)}
}

func (m *memoryForms) Save(_ context.Context, form *domain.FormSchema) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	form.ID = fmt.Sprintf("form-%d", m.saves)
	if form.Created.IsZero() {
		form.Created = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	m.forms[form.ID] = *form
	return nil
}

func (m *memoryForms) FindByID(_ context.Context, id string) (*domain.FormSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	form, ok := m.forms[id]
	if !ok {
		return nil, fmt.Errorf("form %s: %w", id, domain.ErrFormNotFound)
	}
	return &form, nil
}

func (m *memoryForms) List(_ context.Context, limit int) ([]domain.FormSchema, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.FormSchema, 0, len(m.forms))
	for _, form := range m.forms {
		result = append(result, form)
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type memoryResponses struct {
	mu    sync.Mutex
	saved []domain.ResponseRecord
}

func (m *memoryResponses) Save(_ context.Context, response *domain.ResponseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	response.ID = fmt.Sprintf("response-%d", len(m.saved)+1)
	m.saved = append(m.saved, *response)
	return nil
}

func (m *memoryResponses) ListByForm(_ context.Context, formID string, limit int) ([]domain.ResponseRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]domain.ResponseRecord, 0)
	for _, response := range m.saved {
		if response.FormID == formID {
			result = append(result, response)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

type recordingNotifier struct {
	got chan domain.ResponseRecord
}

func (n *recordingNotifier) NotifyResponse(_ context.Context, _ domain.FormSchema, response domain.ResponseRecord) {
	n.got <- response
}

func TestFormServiceCreate(t *testing.T) {
	repo := newMemoryForms()
	svc := NewFormService(repo)

	form, err := svc.Create(context.Background(), CreateFormCommand{
		Title:  "Survey",
		Fields: []FieldCommand{{Name: "age", Type: domain.FieldTypeBoolean, Required: true}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if form.ID == "" || form.Created.IsZero() {
		t.Fatalf("expected storage-assigned id and timestamp, got %+v", form)
	}
	if repo.saves != 1 {
		t.Fatalf("expected 1 save, got %d", repo.saves)
	}
}

func TestFormServiceCreateRejectsInvalidForm(t *testing.T) {
	repo := newMemoryForms()
	svc := NewFormService(repo)

	_, err := svc.Create(context.Background(), CreateFormCommand{
		Title:  "",
		Fields: []FieldCommand{{Name: "age", Type: domain.FieldTypeBoolean}},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) || verr.Message != "Title must be a non-empty string." {
		t.Fatalf("unexpected error %v", err)
	}
	if repo.saves != 0 {
		t.Fatal("invalid form must not be persisted")
	}
}

func TestFormServiceDetail(t *testing.T) {
	svc := NewFormService(newMemoryForms())
	if _, err := svc.Detail(context.Background(), "  "); !errors.Is(err, domain.ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound for blank id, got %v", err)
	}
	if _, err := svc.Detail(context.Background(), "nope"); !errors.Is(err, domain.ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
}

func seedForm(t *testing.T, repo *memoryForms, cmd CreateFormCommand) *domain.FormSchema {
	t.Helper()
	form, err := NewFormService(repo).Create(context.Background(), cmd)
	if err != nil {
		t.Fatalf("seed form: %v", err)
	}
	return form
}

func TestResponseServiceSubmit(t *testing.T) {
	forms := newMemoryForms()
	responses := &memoryResponses{}
	notifier := &recordingNotifier{got: make(chan domain.ResponseRecord, 1)}
	form := seedForm(t, forms, CreateFormCommand{
		Title: "Contact",
		Fields: []FieldCommand{
			{Name: "email", Type: domain.FieldTypeEmail, Required: true},
			{Name: "note", Type: domain.FieldTypeText},
		},
	})

	svc := NewResponseService(forms, responses, notifier).(*responseService)
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("JST", 9*60*60))
	svc.now = func() time.Time { return fixed }

	stored, err := svc.Submit(context.Background(), SubmitResponseCommand{
		FormID: form.ID,
		Answers: map[string]domain.TypedValue{
			"email": domain.StringValue("a@b.com"),
			"note":  domain.StringValue("<b>hello</b> & bye"),
		},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if stored.ID == "" {
		t.Fatal("expected storage-assigned id")
	}
	if !stored.Submitted.Equal(fixed) || stored.Submitted.Location() != time.UTC {
		t.Fatalf("expected UTC submission time, got %v", stored.Submitted)
	}

	gotAnswers := map[string]string{}
	for name, value := range stored.Answers {
		gotAnswers[name] = value.String()
	}
	wantAnswers := map[string]string{"email": "a@b.com", "note": "hello & bye"}
	if diff := cmp.Diff(wantAnswers, gotAnswers); diff != "" {
		t.Fatalf("unexpected stored answers (-want +got):\n%s", diff)
	}

	select {
	case notified := <-notifier.got:
		if notified.ID != stored.ID {
			t.Fatalf("notified response %q, want %q", notified.ID, stored.ID)
		}
	case <-time.After(time.Second):
		t.Fatal("notifier was not called")
	}
}

func TestResponseServiceSubmitRejectsInvalidResponse(t *testing.T) {
	forms := newMemoryForms()
	responses := &memoryResponses{}
	form := seedForm(t, forms, CreateFormCommand{
		Title:  "Contact",
		Fields: []FieldCommand{{Name: "email", Type: domain.FieldTypeEmail, Required: true}},
	})

	_, err := NewResponseService(forms, responses, nil).Submit(context.Background(), SubmitResponseCommand{
		FormID:  form.ID,
		Answers: map[string]domain.TypedValue{},
	})
	if err == nil || err.Error() != "Required field email does not have an answer." {
		t.Fatalf("unexpected error %v", err)
	}
	if len(responses.saved) != 0 {
		t.Fatal("invalid response must not be persisted")
	}
}

func TestResponseServiceSubmitUnknownForm(t *testing.T) {
	svc := NewResponseService(newMemoryForms(), &memoryResponses{}, nil)
	for _, id := range []string{"", "missing"} {
		_, err := svc.Submit(context.Background(), SubmitResponseCommand{FormID: id})
		if !errors.Is(err, domain.ErrFormNotFound) {
			t.Fatalf("id %q: expected ErrFormNotFound, got %v", id, err)
		}
		if domain.IsValidationError(err) {
			t.Fatalf("id %q: not-found reported as validation error", id)
		}
	}
}

func TestResponseServiceKeepsConstrainedAnswers(t *testing.T) {
	forms := newMemoryForms()
	responses := &memoryResponses{}
	form := seedForm(t, forms, CreateFormCommand{
		Title: "Markup",
		Fields: []FieldCommand{{
			Name:          "snippet",
			Type:          domain.FieldTypeText,
			AllowedValues: []domain.TypedValue{domain.StringValue("<i>x</i>")},
		}},
	})

	stored, err := NewResponseService(forms, responses, nil).Submit(context.Background(), SubmitResponseCommand{
		FormID:  form.ID,
		Answers: map[string]domain.TypedValue{"snippet": domain.StringValue("<i>x</i>")},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := stored.Answers["snippet"].String(); got != "<i>x</i>" {
		t.Fatalf("constrained answer was rewritten to %q", got)
	}
}

func TestResponseServiceStoresValidatedAnswers(t *testing.T) {
	forms := newMemoryForms()
	responses := &memoryResponses{}
	form := seedForm(t, forms, CreateFormCommand{
		Title: "Codes",
		Fields: []FieldCommand{
			{Name: "code", Type: domain.FieldTypeText},
			{Name: "extra", Type: domain.FieldTypeText, DependsOn: []domain.Dependency{
				{Field: "code", Value: domain.StringValue("a<b>c")},
			}},
			{Name: "note", Type: domain.FieldTypeText},
		},
	})

	tests := []struct {
		name    string
		answers map[string]domain.TypedValue
		want    map[string]string
	}{
		{
			name:    "depended-on answer kept verbatim",
			answers: map[string]domain.TypedValue{"code": domain.StringValue("a<b>c")},
			want:    map[string]string{"code": "a<b>c"},
		},
		{
			name: "free text sanitised",
			answers: map[string]domain.TypedValue{
				"code": domain.StringValue("a<b>c"),
				"note": domain.StringValue("<i>hey</i> there"),
			},
			want: map[string]string{"code": "a<b>c", "note": "hey there"},
		},
	}

	svc := NewResponseService(forms, responses, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored, err := svc.Submit(context.Background(), SubmitResponseCommand{FormID: form.ID, Answers: tt.answers})
			if err != nil {
				t.Fatalf("submit: %v", err)
			}
			got := map[string]string{}
			for name, value := range stored.Answers {
				got[name] = value.String()
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Fatalf("unexpected stored answers (-want +got):\n%s", diff)
			}

			saved := responses.saved[len(responses.saved)-1]
			if err := saved.ValidateAgainst(*form); err != nil {
				t.Fatalf("saved response no longer validates: %v", err)
			}
		})
	}
}

func TestResponseServiceValidatesSanitisedAnswers(t *testing.T) {
	forms := newMemoryForms()
	responses := &memoryResponses{}
	form := seedForm(t, forms, CreateFormCommand{
		Title:  "Contact",
		Fields: []FieldCommand{{Name: "email", Type: domain.FieldTypeEmail, Required: true}, {Name: "note", Type: domain.FieldTypeText}},
	})

	answers := map[string]domain.TypedValue{
		"email": domain.StringValue("a@b.com"),
		"note":  domain.StringValue("<b>hi</b>"),
	}
	if _, err := NewResponseService(forms, responses, nil).Submit(context.Background(), SubmitResponseCommand{
		FormID:  form.ID,
		Answers: answers,
	}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := answers["note"].String(); got != "<b>hi</b>" {
		t.Fatalf("caller's answers were modified: %q", got)
	}
	if got := responses.saved[0].Answers["note"].String(); got != "hi" {
		t.Fatalf("expected sanitised note, got %q", got)
	}
}

func TestResponseServiceListByForm(t *testing.T) {
	forms := newMemoryForms()
	responses := &memoryResponses{}
	form := seedForm(t, forms, CreateFormCommand{
		Title:  "Survey",
		Fields: []FieldCommand{{Name: "ok", Type: domain.FieldTypeBoolean}},
	})
	svc := NewResponseService(forms, responses, nil)
	for i := 0; i < 2; i++ {
		if _, err := svc.Submit(context.Background(), SubmitResponseCommand{
			FormID:  form.ID,
			Answers: map[string]domain.TypedValue{"ok": domain.BoolValue(true)},
		}); err != nil {
			t.Fatalf("submit %d: %v", i, err)
		}
	}

	listed, err := svc.ListByForm(context.Background(), form.ID, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 responses, got %d", len(listed))
	}
	if _, err := svc.ListByForm(context.Background(), "missing", 0); !errors.Is(err, domain.ErrFormNotFound) {
		t.Fatalf("expected ErrFormNotFound, got %v", err)
	}
}
