package public

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/ashby-forms/api/internal/forms/application"
	"github.com/sngm3741/ashby-forms/api/internal/forms/domain"
	"github.com/sngm3741/ashby-forms/api/internal/interfaces/http/common"
	"github.com/zeebo/xxh3"
)

type submitResponseRequest struct {
	FormID  string                       `json:"formId"`
	Answers map[string]domain.TypedValue `json:"answers"`
}

type submitResponseResponse struct {
	ID        string    `json:"id"`
	Submitted time.Time `json:"submitted"`
}

// formDetailHandler serves a form with an ETag derived from its JSON body so
// clients rendering the form can revalidate cheaply.
func (h *Handler) formDetailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if id == "" {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "フォームIDが指定されていません"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		form, err := h.formService.Detail(ctx, id)
		if err != nil {
			common.WriteError(h.logger, w, err, "フォームの取得に失敗しました")
			return
		}

		body, err := json.Marshal(common.NewFormResponse(*form, h.location))
		if err != nil {
			common.WriteError(h.logger, w, err, "フォームの取得に失敗しました")
			return
		}
		etag := formETag(body)
		w.Header().Set("ETag", etag)
		w.Header().Set("Cache-Control", "no-cache")
		if etagMatches(r.Header.Get("If-None-Match"), etag) {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(body); err != nil {
			h.logger.Printf("form detail write failed id=%s: %v", id, err)
		}
	}
}

func (h *Handler) responseSubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitResponseRequest
		if err := common.DecodeJSON(r, h.maxBody, &req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "リクエストの形式が不正です"})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		response, err := h.responses.Submit(ctx, application.SubmitResponseCommand{
			FormID:  req.FormID,
			Answers: req.Answers,
		})
		if err != nil {
			common.WriteError(h.logger, w, err, "回答の登録に失敗しました")
			return
		}

		submitted := response.Submitted
		if h.location != nil {
			submitted = submitted.In(h.location)
		}
		common.WriteJSON(h.logger, w, http.StatusOK, submitResponseResponse{
			ID:        response.ID,
			Submitted: submitted,
		})
	}
}

func formETag(body []byte) string {
	return fmt.Sprintf(`"%016x"`, xxh3.Hash(body))
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == "*" || candidate == etag {
			return true
		}
	}
	return false
}
