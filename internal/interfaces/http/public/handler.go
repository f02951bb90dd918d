package public

import (
	"io"
	"log"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/ashby-forms/api/internal/forms/application"
)

// Handler wires public HTTP endpoints to application services.
type Handler struct {
	logger         *log.Logger
	formService    application.FormService
	responses      application.ResponseService
	location       *time.Location
	requestTimeout time.Duration
	maxBody        int64
}

// Config defines dependencies required by Handler.
type Config struct {
	Logger          *log.Logger
	FormService     application.FormService
	ResponseService application.ResponseService
	Location        *time.Location
	RequestTimeout  time.Duration
	MaxRequestBody  int64
}

// NewHandler constructs a public HTTP handler set.
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

// Register mounts all public routes onto the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/forms/{id}", h.formDetailHandler())
	r.Post("/responses", h.responseSubmitHandler())
}
