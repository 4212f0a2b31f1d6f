package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/hivelabs/hive-server/internal/access"
	apierrors "github.com/hivelabs/hive-server/internal/api/errors"
	"github.com/hivelabs/hive-server/internal/hive"
	"github.com/hivelabs/hive-server/internal/lifecycle"
	"github.com/hivelabs/hive-server/internal/models"
	"github.com/hivelabs/hive-server/internal/validation"
	"github.com/hivelabs/hive-server/pkg/logger"
)

// HivesHandler handles hive HTTP requests.
type HivesHandler struct {
	svc     *hive.Service
	access  *access.Service
	siteURL string
	logger  *logger.Logger
}

// NewHivesHandler creates a new hives handler.
func NewHivesHandler(svc *hive.Service, accessSvc *access.Service, siteURL string, log *logger.Logger) *HivesHandler {
	return &HivesHandler{
		svc:     svc,
		access:  accessSvc,
		siteURL: siteURL,
		logger:  log,
	}
}

// CreateHiveRequest represents the request body for creating a hive.
type CreateHiveRequest struct {
	Title         string     `json:"title"`
	RecipientName string     `json:"recipient_name"`
	Mode          string     `json:"mode"`
	RevealAt      *time.Time `json:"reveal_at,omitempty"`
	ClosesAt      *time.Time `json:"closes_at"`
}

// CreateHiveResponse carries the new hive ID, the two bearer tokens and
// the share links. The tokens appear here and nowhere else.
type CreateHiveResponse struct {
	HiveID          string `json:"hive_id"`
	ModeratorToken  string `json:"moderator_token"`
	RecipientToken  string `json:"recipient_token"`
	ContributorLink string `json:"contributor_link"`
	ModeratorLink   string `json:"moderator_link"`
	RecipientLink   string `json:"recipient_link"`
}

// Create handles POST /v1/hives.
func (h *HivesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateHiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteBadRequest(w, "invalid request body")
		return
	}

	result, err := h.svc.Create(r.Context(), &validation.HiveInput{
		Title:         req.Title,
		RecipientName: req.RecipientName,
		Mode:          req.Mode,
		RevealAt:      req.RevealAt,
		ClosesAt:      req.ClosesAt,
	})
	if err != nil {
		writeServiceError(w, h.logger.WithContext(r.Context()).Logger, err)
		return
	}

	contributorLink := fmt.Sprintf("%s/hive/%s", h.siteURL, result.Hive.ID)
	apierrors.WriteJSON(w, http.StatusCreated, &CreateHiveResponse{
		HiveID:          result.Hive.ID,
		ModeratorToken:  result.ModeratorToken,
		RecipientToken:  result.RecipientToken,
		ContributorLink: contributorLink,
		ModeratorLink:   fmt.Sprintf("%s?token=%s", contributorLink, result.ModeratorToken),
		RecipientLink:   fmt.Sprintf("%s?token=%s", contributorLink, result.RecipientToken),
	})
}

// HiveView is the public representation of a hive. It never includes
// secrets or the thank-you message body.
type HiveView struct {
	ID               string                `json:"id"`
	Title            string                `json:"title"`
	RecipientName    string                `json:"recipient_name"`
	Mode             models.VisibilityMode `json:"mode"`
	RevealAt         *time.Time            `json:"reveal_at,omitempty"`
	ClosesAt         time.Time             `json:"closes_at"`
	CreatedAt        time.Time             `json:"created_at"`
	MessageCount     int                   `json:"message_count"`
	Closed           bool                  `json:"closed"`
	Revealed         bool                  `json:"revealed"`
	AlreadyHarvested bool                  `json:"already_harvested"`
}

// Get handles GET /v1/hives/{hiveID}. The hive shell is public so clients
// can render state without a token; message bodies stay gated.
func (h *HivesHandler) Get(w http.ResponseWriter, r *http.Request) {
	hiveID := chi.URLParam(r, "hiveID")
	ctx := logger.ContextWithHiveID(r.Context(), hiveID)
	log := h.logger.WithContext(ctx)
	now := time.Now().UTC()

	hv, err := h.svc.Get(ctx, hiveID)
	if err != nil {
		writeServiceError(w, log.Logger, err)
		return
	}

	count, err := h.svc.MessageCount(ctx, hiveID)
	if err != nil {
		writeServiceError(w, log.Logger, err)
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, &HiveView{
		ID:               hv.ID,
		Title:            hv.Title,
		RecipientName:    hv.RecipientName,
		Mode:             hv.Mode,
		RevealAt:         hv.RevealAt,
		ClosesAt:         hv.ClosesAt,
		CreatedAt:        hv.CreatedAt,
		MessageCount:     count,
		Closed:           lifecycle.IsClosed(hv, now),
		Revealed:         lifecycle.IsRevealed(hv, now),
		AlreadyHarvested: hv.Harvested(),
	})
}

// VerifyAccessRequest represents the request body for token verification.
type VerifyAccessRequest struct {
	Token string `json:"token"`
}

// VerifyAccess handles POST /v1/hives/{hiveID}/access. It never fails for
// a bad token: absence or mismatch simply yields the unauthorized role.
func (h *HivesHandler) VerifyAccess(w http.ResponseWriter, r *http.Request) {
	hiveID := chi.URLParam(r, "hiveID")
	ctx := logger.ContextWithHiveID(r.Context(), hiveID)

	var req VerifyAccessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		apierrors.WriteBadRequest(w, "invalid request body")
		return
	}

	role, err := h.access.Verify(ctx, hiveID, req.Token)
	if err != nil {
		h.logger.WithContext(ctx).WithError(err).Error("access verification failed")
		apierrors.WriteInternalError(w, "internal error")
		return
	}

	apierrors.WriteJSON(w, http.StatusOK, map[string]any{
		"role":       role,
		"authorized": role != models.RoleUnauthorized,
	})
}
