package server

import (
	"context"
	"fmt"

	"github.com/sngm3741/ashby-forms/api/internal/config"
	"github.com/sngm3741/ashby-forms/api/internal/forms/application"
	"github.com/sngm3741/ashby-forms/api/internal/infrastructure/messenger"
	mongodoc "github.com/sngm3741/ashby-forms/api/internal/infrastructure/mongo"
	"github.com/sngm3741/ashby-forms/api/internal/infrastructure/sqlstore"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Storage bundles the repositories of one backend with its lifecycle hooks.
type Storage struct {
	Forms     application.FormRepository
	Responses application.ResponseRepository
	Failures  messenger.FailureRecorder
	Ping      func(ctx context.Context) error
	Close     func(ctx context.Context) error
}

// OpenStorage connects the backend selected by STORE_DRIVER.
func OpenStorage(ctx context.Context, cfg config.Config) (*Storage, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	switch cfg.StoreDriver {
	case "", "mongo", "mongodb":
		return openMongoStorage(ctx, cfg)
	default:
		dialect, err := sqlstore.ParseDialect(cfg.StoreDriver)
		if err != nil {
			return nil, err
		}
		store, err := sqlstore.Open(ctx, dialect, cfg.SQLDSN)
		if err != nil {
			return nil, err
		}
		return &Storage{
			Forms:     sqlstore.NewFormRepository(store),
			Responses: sqlstore.NewResponseRepository(store),
			Failures:  sqlstore.NewFailedNotificationRepository(store),
			Ping:      store.Ping,
			Close:     func(context.Context) error { return store.Close() },
		}, nil
	}
}

func openMongoStorage(ctx context.Context, cfg config.Config) (*Storage, error) {
	clientOptions := options.Client().ApplyURI(cfg.MongoURI).SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1))
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("MongoDB 接続に失敗しました: %w", err)
	}

	db := client.Database(cfg.MongoDatabase)
	if err := mongodoc.EnsureIndexes(ctx, db, cfg.FormCollection, cfg.ResponseCollection); err != nil {
		cfg.ServerLog.Printf("インデックス作成に失敗: %v", err)
	}

	return &Storage{
		Forms:     mongodoc.NewFormRepository(db, cfg.FormCollection),
		Responses: mongodoc.NewResponseRepository(db, cfg.ResponseCollection),
		Failures:  mongodoc.NewFailedNotificationRepository(db, cfg.FailedNotificationCollection),
		Ping: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		Close: client.Disconnect,
	}, nil
}
