package admin

import (
	"io"
	"log"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/ashby-forms/api/internal/forms/application"
)

// Handler wires admin HTTP endpoints to application services.
type Handler struct {
	logger         *log.Logger
	formService    application.FormService
	responses      application.ResponseService
	location       *time.Location
	requestTimeout time.Duration
	maxBody        int64
}

// Config provides dependencies for Handler.
type Config struct {
	Logger          *log.Logger
	FormService     application.FormService
	ResponseService application.ResponseService
	Location        *time.Location
	RequestTimeout  time.Duration
	MaxRequestBody  int64
}

// NewHandler constructs an admin HTTP handler set.
func NewHandler(cfg Config) *Handler {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Handler{
		logger:         logger,
		formService:    cfg.FormService,
		responses:      cfg.ResponseService,
		location:       cfg.Location,
		requestTimeout: timeout,
		maxBody:        cfg.MaxRequestBody,
	}
}

// Register mounts admin routes onto router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/auth/verify", h.authVerifyHandler())
	r.Get("/forms", h.formListHandler())
	r.Post("/forms", h.formCreateHandler())
	r.Get("/forms/{id}", h.formDetailHandler())
	r.Get("/forms/{id}/responses", h.responseListHandler())
}

