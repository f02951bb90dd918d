package admin

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sngm3741/ashby-forms/api/internal/interfaces/http/common"
)

type formCreateResponse struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
}

func (h *Handler) authVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := common.UserFromContext(r.Context())
		if !ok {
			common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{"status": "ok", "auth": "disabled"})
			return
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{
			"status": "ok",
			"user":   user,
		})
	}
}

func (h *Handler) formListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		limit := common.ListLimit(r.URL.Query().Get("limit"))

		forms, err := h.formService.List(ctx, limit)
		if err != nil {
			common.WriteError(h.logger, w, err, "フォーム一覧の取得に失敗しました")
			return
		}

		items := make([]common.FormResponse, 0, len(forms))
		for _, form := range forms {
			items = append(items, common.NewFormResponse(form, h.location))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *Handler) formCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req common.FormPayload
		if err := common.DecodeJSON(r, h.maxBody, &req); err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "リクエストの形式が不正です"})
			return
		}
		cmd, err := req.ToCommand()
		if err != nil {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		form, err := h.formService.Create(ctx, cmd)
		if err != nil {
			common.WriteError(h.logger, w, err, "フォームの登録に失敗しました")
			return
		}

		if user, ok := common.UserFromContext(r.Context()); ok {
			h.logger.Printf("form created id=%s by=%s", form.ID, user.ID)
		}
		common.WriteJSON(h.logger, w, http.StatusOK, formCreateResponse{
			ID:      form.ID,
			Created: form.Created.In(h.displayLocation()),
		})
	}
}

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
		common.WriteJSON(h.logger, w, http.StatusOK, common.NewFormResponse(*form, h.location))
	}
}

func (h *Handler) responseListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(chi.URLParam(r, "id"))
		if id == "" {
			common.WriteJSON(h.logger, w, http.StatusBadRequest, map[string]string{"error": "フォームIDが指定されていません"})
			return
		}
		limit := common.ListLimit(r.URL.Query().Get("limit"))

		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()

		responses, err := h.responses.ListByForm(ctx, id, limit)
		if err != nil {
			common.WriteError(h.logger, w, err, "回答一覧の取得に失敗しました")
			return
		}

		items := make([]common.ResponseRecordResponse, 0, len(responses))
		for _, response := range responses {
			items = append(items, common.NewResponseRecordResponse(response, h.location))
		}
		common.WriteJSON(h.logger, w, http.StatusOK, map[string]any{"items": items})
	}
}

func (h *Handler) displayLocation() *time.Location {
	if h.location == nil {
		return time.UTC
	}
	return h.location
}
