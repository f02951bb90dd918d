package mongo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var valueComparer = cmp.Comparer(func(a, b domain.TypedValue) bool { return a.Equal(b) })

func sampleForm() domain.FormSchema {
	return domain.FormSchema{
		Title:   "Event signup",
		Created: time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC),
		Fields: []domain.FieldSchema{
			{Name: "attending", Type: domain.FieldTypeBoolean, Required: true, AllowedValues: []domain.TypedValue{domain.BoolValue(true)}},
			{Name: "zone", Type: domain.FieldTypeText},
			{
				Name:          "meal",
				Type:          domain.FieldTypeSelect,
				AllowedValues: []domain.TypedValue{domain.StringValue("veg"), domain.StringValue("fish")},
				DependsOn: []domain.Dependency{
					{Field: "zone", Value: domain.StringValue("a")},
					{Field: "attending", Value: domain.BoolValue(true)},
				},
			},
		},
	}
}

func TestFormDocumentRoundTrip(t *testing.T) {
	want := sampleForm()
	fieldIDs := make([]primitive.ObjectID, len(want.Fields))
	for i := range fieldIDs {
		fieldIDs[i] = primitive.NewObjectID()
		want.Fields[i].ID = fieldIDs[i].Hex()
	}

	doc := mapDomainFormToDocument(want, fieldIDs)
	doc.ID = primitive.NewObjectID()
	want.ID = doc.ID.Hex()

	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded FormDocument
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := mapFormDocument(decoded)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if diff := cmp.Diff(want, got, valueComparer, cmpopts.EquateEmpty()); diff != "" {
		t.Fatalf("form mismatch (-want +got):\n%s", diff)
	}
}

func TestFormDocumentStoresNativeValues(t *testing.T) {
	form := sampleForm()
	doc := mapDomainFormToDocument(form, make([]primitive.ObjectID, len(form.Fields)))
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	tests := []struct {
		path []string
		want bsontype.Type
	}{
		{path: []string{"fields", "0", "allowedValues", "0"}, want: bson.TypeBoolean},
		{path: []string{"fields", "2", "allowedValues", "0"}, want: bson.TypeString},
		{path: []string{"fields", "2", "dependsOn", "0", "value"}, want: bson.TypeString},
		{path: []string{"fields", "2", "dependsOn", "1", "value"}, want: bson.TypeBoolean},
	}
	for _, tt := range tests {
		value, err := bson.Raw(raw).LookupErr(tt.path...)
		if err != nil {
			t.Fatalf("lookup %v: %v", tt.path, err)
		}
		if value.Type != tt.want {
			t.Errorf("%v stored as %v, want %v", tt.path, value.Type, tt.want)
		}
	}

	var order []string
	for _, dep := range doc.Fields[2].DependsOn {
		order = append(order, dep.Field)
	}
	if diff := cmp.Diff([]string{"zone", "attending"}, order); diff != "" {
		t.Fatalf("dependsOn order changed (-want +got):\n%s", diff)
	}
}

func TestResponseDocumentRoundTrip(t *testing.T) {
	doc := ResponseDocument{
		ID:          primitive.NewObjectID(),
		FormID:      primitive.NewObjectID(),
		Answers:     answersToDocument(map[string]domain.TypedValue{"ok": domain.BoolValue(false), "name": domain.StringValue("Aki")}),
		SubmittedAt: time.Date(2024, 5, 1, 3, 0, 0, 0, time.UTC),
	}
	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded ResponseDocument
	if err := bson.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	got, err := mapResponseDocument(decoded)
	if err != nil {
		t.Fatalf("map: %v", err)
	}

	want := domain.ResponseRecord{
		ID:        doc.ID.Hex(),
		FormID:    doc.FormID.Hex(),
		Submitted: doc.SubmittedAt,
		Answers:   map[string]domain.TypedValue{"ok": domain.BoolValue(false), "name": domain.StringValue("Aki")},
	}
	if diff := cmp.Diff(want, got, valueComparer); diff != "" {
		t.Fatalf("response mismatch (-want +got):\n%s", diff)
	}
}

func TestMalformedFormIDIsNotFound(t *testing.T) {
	ctx := context.Background()

	if _, err := (&FormRepository{}).FindByID(ctx, "not-a-hex-id"); !errors.Is(err, domain.ErrFormNotFound) {
		t.Fatalf("FindByID: expected ErrFormNotFound, got %v", err)
	}

	response := &domain.ResponseRecord{FormID: "zz", Answers: map[string]domain.TypedValue{}}
	if err := (&ResponseRepository{}).Save(ctx, response); !errors.Is(err, domain.ErrFormNotFound) {
		t.Fatalf("Save: expected ErrFormNotFound, got %v", err)
	}
	if response.ID != "" {
		t.Fatalf("rejected response was assigned id %q", response.ID)
	}

	if _, err := (&ResponseRepository{}).ListByForm(ctx, "zz", 0); !errors.Is(err, domain.ErrFormNotFound) {
		t.Fatalf("ListByForm: expected ErrFormNotFound, got %v", err)
	}
}
