package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/hivelabs/hive-server/internal/api/errors"
	"github.com/hivelabs/hive-server/internal/harvest"
	"github.com/hivelabs/hive-server/pkg/logger"
)

// HarvestHandler handles the one-time harvest request.
type HarvestHandler struct {
	orchestrator *harvest.Orchestrator
	logger       *logger.Logger
}

// NewHarvestHandler creates a new harvest handler.
func NewHarvestHandler(orc *harvest.Orchestrator, log *logger.Logger) *HarvestHandler {
	return &HarvestHandler{
		orchestrator: orc,
		logger:       log,
	}
}

// HarvestRequest represents the request body for harvesting a hive.
type HarvestRequest struct {
	Token           string `json:"token"`
	ThankYouMessage string `json:"thank_you_message"`
}

// Harvest handles POST /v1/hives/{hiveID}/harvest.
func (h *HarvestHandler) Harvest(w http.ResponseWriter, r *http.Request) {
	hiveID := chi.URLParam(r, "hiveID")
	ctx := logger.ContextWithHiveID(r.Context(), hiveID)
	now := time.Now().UTC()

	var req HarvestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteBadRequest(w, "invalid request body")
		return
	}

	sent, err := h.orchestrator.Harvest(ctx, hiveID, req.Token, req.ThankYouMessage, now)
	if err != nil {
		writeServiceError(w, h.logger.WithContext(ctx).Logger, err)
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, map[string]int{
		"sent": sent,
	})
}
