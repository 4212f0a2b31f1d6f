package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/hivelabs/hive-server/internal/api/errors"
	"github.com/hivelabs/hive-server/internal/hive"
	"github.com/hivelabs/hive-server/pkg/logger"
)

// SubscribersHandler handles harvest notification opt-ins.
type SubscribersHandler struct {
	svc    *hive.Service
	logger *logger.Logger
}

// NewSubscribersHandler creates a new subscribers handler.
func NewSubscribersHandler(svc *hive.Service, log *logger.Logger) *SubscribersHandler {
	return &SubscribersHandler{
		svc:    svc,
		logger: log,
	}
}

// SubscribeRequest represents the request body for a harvest opt-in.
type SubscribeRequest struct {
	Email string `json:"email"`
}

// Create handles POST /v1/hives/{hiveID}/subscribers.
func (h *SubscribersHandler) Create(w http.ResponseWriter, r *http.Request) {
	hiveID := chi.URLParam(r, "hiveID")
	ctx := logger.ContextWithHiveID(r.Context(), hiveID)

	var req SubscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteBadRequest(w, "invalid request body")
		return
	}

	if _, err := h.svc.Subscribe(ctx, hiveID, req.Email); err != nil {
		writeServiceError(w, h.logger.WithContext(ctx).Logger, err)
		return
	}

	apierrors.WriteJSON(w, http.StatusCreated, map[string]string{
		"status": "subscribed",
	})
}
