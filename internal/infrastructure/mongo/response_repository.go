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

// ResponseRepository はフォーム回答を MongoDB に保存するリポジトリ。
type ResponseRepository struct {
	responses *mongo.Collection
}

func NewResponseRepository(db *mongo.Database, responseCollection string) *ResponseRepository {
	return &ResponseRepository{responses: db.Collection(responseCollection)}
}

// Save は回答を Mongo に追加し、採番した ID をドメインモデルへ反映する。
func (r *ResponseRepository) Save(ctx context.Context, response *domain.ResponseRecord) error {
	if response == nil {
		return errors.New("response payload is nil")
	}
	formID, err := primitive.ObjectIDFromHex(strings.TrimSpace(response.FormID))
	if err != nil {
		return fmt.Errorf("form %q: %w", response.FormID, domain.ErrFormNotFound)
	}

	submittedAt := response.Submitted
	if submittedAt.IsZero() {
		submittedAt = time.Now().UTC()
	}

	doc := ResponseDocument{
		ID:          primitive.NewObjectID(),
		FormID:      formID,
		Answers:     answersToDocument(response.Answers),
		SubmittedAt: submittedAt,
	}
	if _, err := r.responses.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert response: %w", err)
	}

	response.ID = doc.ID.Hex()
	response.Submitted = submittedAt
	return nil
}

// ListByForm は指定フォームの回答を新しい順に返す。
func (r *ResponseRepository) ListByForm(ctx context.Context, formID string, limit int) ([]domain.ResponseRecord, error) {
	objectID, err := primitive.ObjectIDFromHex(strings.TrimSpace(formID))
	if err != nil {
		return nil, fmt.Errorf("form %q: %w", formID, domain.ErrFormNotFound)
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "submittedAt", Value: -1}})
	if limit > 0 {
		findOpts.SetLimit(int64(limit))
	}
	cursor, err := r.responses.Find(ctx, bson.M{"formId": objectID}, findOpts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	responses := make([]domain.ResponseRecord, 0)
	for cursor.Next(ctx) {
		var doc ResponseDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		response, err := mapResponseDocument(doc)
		if err != nil {
			return nil, err
		}
		responses = append(responses, response)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return responses, nil
}

func mapResponseDocument(doc ResponseDocument) (domain.ResponseRecord, error) {
	answers := make(map[string]domain.TypedValue, len(doc.Answers))
	for name, raw := range doc.Answers {
		value, err := domain.ValueFromAny(raw)
		if err != nil {
			return domain.ResponseRecord{}, fmt.Errorf("response %s answer %s: %w", doc.ID.Hex(), name, err)
		}
		answers[name] = value
	}
	return domain.ResponseRecord{
		ID:        doc.ID.Hex(),
		FormID:    doc.FormID.Hex(),
		Submitted: doc.SubmittedAt,
		Answers:   answers,
	}, nil
}

func answersToDocument(answers map[string]domain.TypedValue) map[string]any {
	result := make(map[string]any, len(answers))
	for name, value := range answers {
		result[name] = value.Any()
	}
	return result
}
