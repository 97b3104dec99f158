package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/interfaces/http/response"
	"paywatch.backend/pkg/logger"
)

// IntentService is the intent usecase surface the HTTP layer consumes
type IntentService interface {
	CreateIntent(ctx context.Context, merchantID uuid.UUID, input *entities.CreateIntentInput) (*entities.CreateIntentResponse, error)
	GetStatus(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error)
	Cancel(ctx context.Context, id uuid.UUID) (*entities.PaymentIntent, error)
	Override(ctx context.Context, id uuid.UUID, next entities.IntentStatus, reason string) (*entities.PaymentIntent, error)
}

// IntentWatcher starts watching a freshly created intent
type IntentWatcher interface {
	WatchByID(ctx context.Context, id uuid.UUID) error
}

// IntentHandler handles payment intent endpoints
type IntentHandler struct {
	intents IntentService
	watcher IntentWatcher
}

// NewIntentHandler creates a new intent handler
func NewIntentHandler(intents IntentService, watcher IntentWatcher) *IntentHandler {
	return &IntentHandler{intents: intents, watcher: watcher}
}

type createIntentRequest struct {
	MerchantID string `json:"merchantId" binding:"required"`
	entities.CreateIntentInput
}

// CreateIntent creates a new payment intent and starts its watcher
// POST /api/v1/intents
func (h *IntentHandler) CreateIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	merchantID, err := uuid.Parse(req.MerchantID)
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid merchant ID"))
		return
	}

	resp, err := h.intents.CreateIntent(c.Request.Context(), merchantID, &req.CreateIntentInput)
	if err != nil {
		response.Error(c, err)
		return
	}

	if h.watcher != nil {
		if err := h.watcher.WatchByID(c.Request.Context(), resp.IntentID); err != nil {
			// The intent exists and is recoverable by Resume, so creation
			// still succeeds, but an unwatched intent needs operator eyes.
			logger.Warn(c.Request.Context(), "failed to start watcher for new intent",
				zap.String("intent_id", resp.IntentID.String()),
				zap.Error(err),
			)
		}
	}

	response.Success(c, http.StatusCreated, resp)
}

type statusResponse struct {
	IntentID         uuid.UUID `json:"intentId"`
	OrderID          string    `json:"orderId"`
	Status           string    `json:"status"`
	OnchainReference string    `json:"onchainReference,omitempty"`
	CreatedAt        string    `json:"createdAt"`
	CompletedAt      string    `json:"completedAt,omitempty"`
}

// GetStatus returns the customer-facing status of an intent
// GET /api/v1/intents/:id
func (h *IntentHandler) GetStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid intent ID"))
		return
	}

	intent, err := h.intents.GetStatus(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			response.Error(c, domainerrors.NotFound("intent not found"))
			return
		}
		response.Error(c, err)
		return
	}

	resp := statusResponse{
		IntentID:  intent.ID,
		OrderID:   intent.OrderID,
		Status:    intent.PublicStatus(),
		CreatedAt: intent.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
	if intent.Status == entities.IntentStatusCompleted {
		resp.OnchainReference = intent.OnchainReference.String
		if intent.CompletedAt != nil {
			resp.CompletedAt = intent.CompletedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
		}
	}

	response.Success(c, http.StatusOK, resp)
}

// Cancel cancels a pending intent
// POST /api/v1/intents/:id/cancel
func (h *IntentHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid intent ID"))
		return
	}

	intent, err := h.intents.Cancel(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			response.Error(c, domainerrors.NotFound("intent not found"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, intent)
}

type overrideRequest struct {
	Status entities.IntentStatus `json:"status" binding:"required"`
	Reason string                `json:"reason" binding:"required"`
}

// Override force-transitions an intent with an audit reason
// POST /api/v1/intents/:id/override
func (h *IntentHandler) Override(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid intent ID"))
		return
	}

	var req overrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, domainerrors.BadRequest(err.Error()))
		return
	}

	intent, err := h.intents.Override(c.Request.Context(), id, req.Status, req.Reason)
	if err != nil {
		if errors.Is(err, domainerrors.ErrNotFound) {
			response.Error(c, domainerrors.NotFound("intent not found"))
			return
		}
		response.Error(c, err)
		return
	}

	response.Success(c, http.StatusOK, intent)
}
