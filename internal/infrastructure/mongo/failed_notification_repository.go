package mongo

import (
	"context"
	"time"

	"github.com/sngm3741/ashby-forms/api/internal/infrastructure/messenger"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// FailedNotificationRepository は送信できなかった通知を pending 状態で保存する。
type FailedNotificationRepository struct {
	collection *mongo.Collection
}

func NewFailedNotificationRepository(db *mongo.Database, collectionName string) *FailedNotificationRepository {
	return &FailedNotificationRepository{collection: db.Collection(collectionName)}
}

// RecordFailure implements messenger.FailureRecorder.
func (r *FailedNotificationRepository) RecordFailure(ctx context.Context, failure messenger.Failure) error {
	now := time.Now().UTC()
	errText := ""
	if failure.Err != nil {
		errText = failure.Err.Error()
	}
	doc := FailedNotificationDocument{
		ID:          primitive.NewObjectID(),
		Target:      failure.Target,
		FormID:      failure.FormID,
		ResponseID:  failure.ResponseID,
		Message:     failure.Message,
		Error:       errText,
		Attempts:    failure.Attempts,
		Status:      "pending",
		CreatedAt:   now,
		LastTriedAt: now,
	}
	_, err := r.collection.InsertOne(ctx, doc)
	return err
}
