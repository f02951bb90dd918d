package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"
)

// EnsureIndexes は一覧取得で使うインデックスを各コレクションへ並行して作成する。
// 既に存在する場合は何もしない。
func EnsureIndexes(ctx context.Context, db *mongo.Database, formCollection, responseCollection string) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		_, err := db.Collection(formCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "createdAt", Value: -1}},
		})
		if err != nil {
			return fmt.Errorf("create %s index: %w", formCollection, err)
		}
		return nil
	})

	g.Go(func() error {
		_, err := db.Collection(responseCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "formId", Value: 1}, {Key: "submittedAt", Value: -1}},
		})
		if err != nil {
			return fmt.Errorf("create %s index: %w", responseCollection, err)
		}
		return nil
	})

	return g.Wait()
}
