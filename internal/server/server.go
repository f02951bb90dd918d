package server

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sngm3741/ashby-forms/api/internal/config"
	"github.com/sngm3741/ashby-forms/api/internal/forms/application"
	"github.com/sngm3741/ashby-forms/api/internal/infrastructure/messenger"
	adminhttp "github.com/sngm3741/ashby-forms/api/internal/interfaces/http/admin"
	commonhttp "github.com/sngm3741/ashby-forms/api/internal/interfaces/http/common"
	publichttp "github.com/sngm3741/ashby-forms/api/internal/interfaces/http/public"
)

// Server は HTTP サーバーのライフサイクルを管理し、Public/Admin の各ハンドラへ依存注入するコンポジションルート。
type Server struct {
	logger          *log.Logger
	storage         *Storage
	formService     application.FormService
	responseService application.ResponseService
	location        *time.Location
	jwtConfigs      []config.JWTConfig
	jwtAudience     string
	addr            string
	allowedOrigins  []string
	requestTimeout  time.Duration
	maxRequestBody  int64
}

// New は Config とストレージを受け取り、アプリケーションサービスとハンドラを組み立てた Server を返す。
func New(cfg config.Config, storage *Storage) *Server {
	logger := cfg.ServerLog
	if logger == nil {
		logger = log.New(os.Stdout, "[forms-api] ", log.LstdFlags|log.Lshortfile)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		loc = time.FixedZone("JST", 9*60*60)
		logger.Printf("タイムゾーン %s の読み込みに失敗: %v, JST を使用します", cfg.Timezone, err)
	}

	var notifier application.ResponseNotifier
	if endpoint := strings.TrimSpace(cfg.MessengerEndpoint); endpoint != "" {
		notifier = messenger.New(messenger.Config{
			Logger:      logger,
			HTTPClient:  &http.Client{Timeout: cfg.MessengerTimeout},
			Endpoint:    endpoint,
			Destination: cfg.MessengerDestination,
			Recipient:   cfg.MessengerRecipient,
			AdminURL:    cfg.AdminBaseURL,
			Attempts:    3,
			RetryDelay:  500 * time.Millisecond,
			Failures:    storage.Failures,
		})
	}

	return &Server{
		logger:          logger,
		storage:         storage,
		formService:     application.NewFormService(storage.Forms),
		responseService: application.NewResponseService(storage.Forms, storage.Responses, notifier),
		location:        loc,
		jwtConfigs:      append([]config.JWTConfig(nil), cfg.JWTConfigs...),
		jwtAudience:     cfg.JWTAudience,
		addr:            cfg.Addr,
		allowedOrigins:  append([]string(nil), cfg.AllowedOrigins...),
		requestTimeout:  cfg.RequestTimeout,
		maxRequestBody:  cfg.MaxRequestBody,
	}
}

// Handler は Public/Admin のルーティングとミドルウェアを組み立てる。
func (s *Server) Handler() http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(withCORS(s.allowedOrigins))

	router.Get("/healthz", s.healthHandler())

	publicHandler := publichttp.NewHandler(publichttp.Config{
		Logger:          s.logger,
		FormService:     s.formService,
		ResponseService: s.responseService,
		Location:        s.location,
		RequestTimeout:  s.requestTimeout,
		MaxRequestBody:  s.maxRequestBody,
	})
	publicHandler.Register(router)

	adminHandler := adminhttp.NewHandler(adminhttp.Config{
		Logger:          s.logger,
		FormService:     s.formService,
		ResponseService: s.responseService,
		Location:        s.location,
		RequestTimeout:  s.requestTimeout,
		MaxRequestBody:  s.maxRequestBody,
	})
	router.Route("/admin", func(r chi.Router) {
		if len(s.jwtConfigs) > 0 {
			r.Use(s.authMiddleware)
		}
		adminHandler.Register(r)
	})

	return router
}

// Run は HTTP サーバーを起動し、シグナル受信まで待機する。
func (s *Server) Run() error {
	httpServer := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Printf("HTTP サーバー起動: http://%s", s.addr)
		errChan <- httpServer.ListenAndServe()
	}()

	return waitForShutdown(httpServer, errChan, s)
}

// withCORS は許可されたオリジン情報をもとに CORS ヘッダーを付与するミドルウェアを返す。
func withCORS(origins []string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{})
	allowAll := false
	for _, origin := range origins {
		origin = strings.TrimSpace(origin)
		if origin == "" {
			continue
		}
		if origin == "*" {
			allowAll = true
			continue
		}
		allowed[origin] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || (!allowAll && !originAllowed(origin, allowed)) {
				if r.Method == http.MethodOptions {
					w.WriteHeader(http.StatusNoContent)
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Add("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Authorization,Content-Type,If-None-Match")
			w.Header().Set("Access-Control-Expose-Headers", "ETag")
			w.Header().Set("Access-Control-Max-Age", "300")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed map[string]struct{}) bool {
	_, ok := allowed[origin]
	return ok
}

// healthHandler はストレージへの疎通確認のみを返す。
func (s *Server) healthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if s.storage.Ping != nil {
			if err := s.storage.Ping(ctx); err != nil {
				commonhttp.WriteJSON(s.logger, w, http.StatusServiceUnavailable, map[string]string{
					"status": "degraded",
					"error":  err.Error(),
				})
				return
			}
		}

		commonhttp.WriteJSON(s.logger, w, http.StatusOK, map[string]string{
			"status": "ok",
			"time":   time.Now().In(s.location).Format(time.RFC3339),
		})
	}
}

// shutdown はストレージをタイムアウト付きで閉じる。
func (s *Server) shutdown(ctx context.Context) {
	if s.storage.Close == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.storage.Close(shutdownCtx); err != nil {
		s.logger.Printf("ストレージ切断時にエラー: %v", err)
	}
}

// waitForShutdown は ListenAndServe の終了と OS シグナルを監視し、graceful shutdown を行う。
func waitForShutdown(httpServer *http.Server, errChan <-chan error, srv *Server) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case err := <-errChan:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case sig := <-sigChan:
		srv.logger.Printf("シグナル %s を受信。サーバー停止処理を開始します。", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(ctx); err != nil {
			srv.logger.Printf("サーバー停止時にエラー: %v", err)
		}
	}

	srv.shutdown(context.Background())
	return runErr
}
