package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FormRepository はフォーム定義を MongoDB で扱う実装リポジトリ。
type FormRepository struct {
	forms *mongo.Collection
}

// NewFormRepository はフォームコレクションを束縛したリポジトリを生成する。
func NewFormRepository(db *mongo.Database, formCollection string) *FormRepository {
	return &FormRepository{forms: db.Collection(formCollection)}
}

// Save はフォームと各設問に ObjectID を採番して新規登録し、採番結果をドメインモデルへ反映する。
func (r *FormRepository) Save(ctx context.Context, form *domain.FormSchema) error {
	if form == nil {
		return errors.New("form payload is nil")
	}

	createdAt := form.Created
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	fieldIDs := make([]primitive.ObjectID, len(form.Fields))
	for i := range fieldIDs {
		fieldIDs[i] = primitive.NewObjectID()
	}
	doc := mapDomainFormToDocument(*form, fieldIDs)
	doc.ID = primitive.NewObjectID()
	doc.CreatedAt = createdAt

	if _, err := r.forms.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert form: %w", err)
	}

	form.ID = doc.ID.Hex()
	form.Created = createdAt
	for i := range form.Fields {
		form.Fields[i].ID = fieldIDs[i].Hex()
	}
	return nil
}

// FindByID は ID を ObjectID 化してフォームを復元する。形式不正・未登録はいずれも ErrFormNotFound とする。
func (r *FormRepository) FindByID(ctx context.Context, id string) (*domain.FormSchema, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("form %q: %w", id, domain.ErrFormNotFound)
	}

	var doc FormDocument
	if err := r.forms.FindOne(ctx, bson.M{"_id": objectID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("form %q: %w", id, domain.ErrFormNotFound)
		}
		return nil, err
	}

	form, err := mapFormDocument(doc)
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// List は作成日時の新しい順にフォームを返す。limit が 0 以下なら件数を絞らない。
func (r *FormRepository) List(ctx context.Context, limit int) ([]domain.FormSchema, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}
	cursor, err := r.forms.Find(ctx, bson.D{}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	forms := make([]domain.FormSchema, 0)
	for cursor.Next(ctx) {
		var doc FormDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		form, err := mapFormDocument(doc)
		if err != nil {
			return nil, err
		}
		forms = append(forms, form)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return forms, nil
}

// mapDomainFormToDocument はドメイン FormSchema を Mongo 保存形式に射影する。
func mapDomainFormToDocument(form domain.FormSchema, fieldIDs []primitive.ObjectID) FormDocument {
	fields := make([]FieldDocument, 0, len(form.Fields))
	for i, field := range form.Fields {
		fields = append(fields, FieldDocument{
			ID:            fieldIDs[i],
			Name:          field.Name,
			Type:          field.Type.String(),
			Required:      field.Required,
			AllowedValues: valuesToDocument(field.AllowedValues),
			DependsOn:     dependenciesToDocument(field.DependsOn),
		})
	}
	return FormDocument{
		Title:     form.Title,
		Fields:    fields,
		CreatedAt: form.Created,
	}
}

// mapFormDocument は Mongo のフォーム文書をドメイン FormSchema へ変換する。
func mapFormDocument(doc FormDocument) (domain.FormSchema, error) {
	fields := make([]domain.FieldSchema, 0, len(doc.Fields))
	for _, fieldDoc := range doc.Fields {
		fieldType, err := domain.ParseFieldType(fieldDoc.Type)
		if err != nil {
			return domain.FormSchema{}, fmt.Errorf("form %s field %s: %w", doc.ID.Hex(), fieldDoc.Name, err)
		}
		allowed, err := valuesFromDocument(fieldDoc.AllowedValues)
		if err != nil {
			return domain.FormSchema{}, fmt.Errorf("form %s field %s: %w", doc.ID.Hex(), fieldDoc.Name, err)
		}
		deps := make([]domain.Dependency, 0, len(fieldDoc.DependsOn))
		for _, depDoc := range fieldDoc.DependsOn {
			value, err := domain.ValueFromAny(depDoc.Value)
			if err != nil {
				return domain.FormSchema{}, fmt.Errorf("form %s field %s: %w", doc.ID.Hex(), fieldDoc.Name, err)
			}
			deps = append(deps, domain.Dependency{Field: depDoc.Field, Value: value})
		}
		fields = append(fields, domain.FieldSchema{
			ID:            fieldDoc.ID.Hex(),
			Name:          fieldDoc.Name,
			Type:          fieldType,
			Required:      fieldDoc.Required,
			AllowedValues: allowed,
			DependsOn:     deps,
		})
	}
	return domain.FormSchema{
		ID:      doc.ID.Hex(),
		Created: doc.CreatedAt,
		Title:   doc.Title,
		Fields:  fields,
	}, nil
}

func valuesToDocument(values []domain.TypedValue) []any {
	if len(values) == 0 {
		return nil
	}
	result := make([]any, 0, len(values))
	for _, value := range values {
		result = append(result, value.Any())
	}
	return result
}

func valuesFromDocument(values []any) ([]domain.TypedValue, error) {
	if len(values) == 0 {
		return nil, nil
	}
	result := make([]domain.TypedValue, 0, len(values))
	for _, raw := range values {
		value, err := domain.ValueFromAny(raw)
		if err != nil {
			return nil, err
		}
		result = append(result, value)
	}
	return result, nil
}

func dependenciesToDocument(deps []domain.Dependency) []DependencyDocument {
	if len(deps) == 0 {
		return nil
	}
	result := make([]DependencyDocument, 0, len(deps))
	for _, dep := range deps {
		result = append(result, DependencyDocument{Field: dep.Field, Value: dep.Value.Any()})
	}
	return result
}
