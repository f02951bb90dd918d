package main

import (
	"context"
	"log"

	"github.com/sngm3741/ashby-forms/api/internal/config"
	"github.com/sngm3741/ashby-forms/api/internal/server"
)

func main() {
	cfg := config.Load()

	storage, err := server.OpenStorage(context.Background(), cfg)
	if err != nil {
		cfg.ServerLog.Fatalf("ストレージ接続に失敗しました: %v", err)
	}

	app := server.New(cfg, storage)
	if err := app.Run(); err != nil {
		log.Fatalf("サーバー起動に失敗: %v", err)
	}
}
