package common

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
)

// WriteJSON serializes payload to JSON with status and logs on failure.
func WriteJSON(logger *log.Logger, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && logger != nil {
		logger.Printf("JSON エンコードに失敗: %v", err)
	}
}

// WriteError maps service errors to responses. Validation messages are passed
// through verbatim; anything unexpected is logged and hidden behind fallback.
func WriteError(logger *log.Logger, w http.ResponseWriter, err error, fallback string) {
	var validationErr *domain.ValidationError
	switch {
	case errors.As(err, &validationErr):
		WriteJSON(logger, w, http.StatusBadRequest, map[string]string{"error": validationErr.Message})
	case errors.Is(err, domain.ErrFormNotFound):
		WriteJSON(logger, w, http.StatusNotFound, map[string]string{"error": "フォームが見つかりません"})
	default:
		if logger != nil {
			logger.Printf("%s: %v", fallback, err)
		}
		WriteJSON(logger, w, http.StatusInternalServerError, map[string]string{"error": fallback})
	}
}

// DecodeJSON reads a single JSON document of at most limit bytes into dst.
func DecodeJSON(r *http.Request, limit int64, dst any) error {
	if limit <= 0 {
		limit = MaxRequestBody
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, limit))
	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if decoder.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}
