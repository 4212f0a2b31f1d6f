package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/hivelabs/hive-server/internal/api/errors"
	"github.com/hivelabs/hive-server/internal/hive"
	"github.com/hivelabs/hive-server/internal/models"
	"github.com/hivelabs/hive-server/pkg/logger"
)

// MessagesHandler handles message HTTP requests.
type MessagesHandler struct {
	svc    *hive.Service
	logger *logger.Logger
}

// NewMessagesHandler creates a new messages handler.
func NewMessagesHandler(svc *hive.Service, log *logger.Logger) *MessagesHandler {
	return &MessagesHandler{
		svc:    svc,
		logger: log,
	}
}

// ListMessagesResponse carries the gated message listing.
type ListMessagesResponse struct {
	Messages []*models.Message `json:"messages"`
	Revealed bool              `json:"revealed"`
}

// List handles GET /v1/hives/{hiveID}/messages?token=...
// An unrevealed hive is not an error for an authorized caller: they get an
// empty list and revealed=false, preserving the surprise without breaking
// clients that poll until reveal time.
func (h *MessagesHandler) List(w http.ResponseWriter, r *http.Request) {
	hiveID := chi.URLParam(r, "hiveID")
	ctx := logger.ContextWithHiveID(r.Context(), hiveID)
	token := r.URL.Query().Get("token")
	now := time.Now().UTC()

	msgs, err := h.svc.ListMessages(ctx, hiveID, token, now)
	if err != nil {
		if errors.Is(err, hive.ErrNotRevealed) {
			apierrors.WriteJSON(w, http.StatusOK, &ListMessagesResponse{
				Messages: []*models.Message{},
				Revealed: false,
			})
			return
		}
		writeServiceError(w, h.logger.WithContext(ctx).Logger, err)
		return
	}

	if msgs == nil {
		msgs = []*models.Message{}
	}
	apierrors.WriteJSON(w, http.StatusOK, &ListMessagesResponse{
		Messages: msgs,
		Revealed: true,
	})
}

// SubmitMessageRequest represents the request body for contributing a message.
type SubmitMessageRequest struct {
	ContributorName string `json:"contributor_name"`
	Message         string `json:"message"`
}

// Submit handles POST /v1/hives/{hiveID}/messages. No token is required;
// knowing the hive URL is the capability to contribute.
func (h *MessagesHandler) Submit(w http.ResponseWriter, r *http.Request) {
	hiveID := chi.URLParam(r, "hiveID")
	ctx := logger.ContextWithHiveID(r.Context(), hiveID)
	now := time.Now().UTC()

	var req SubmitMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteBadRequest(w, "invalid request body")
		return
	}

	msg, err := h.svc.SubmitMessage(ctx, hiveID, req.ContributorName, req.Message, now)
	if err != nil {
		writeServiceError(w, h.logger.WithContext(ctx).Logger, err)
		return
	}

	apierrors.WriteJSON(w, http.StatusCreated, map[string]any{
		"id":         msg.ID,
		"created_at": msg.CreatedAt,
	})
}
