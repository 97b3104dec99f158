package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
	"paywatch.backend/internal/interfaces/http/response"
)

// MetricsService is the rollup read surface exposed to the dashboard
type MetricsService interface {
	GetRollup(ctx context.Context, merchantID uuid.UUID, date string) (*entities.DailyMetricRollup, error)
	GetRange(ctx context.Context, merchantID uuid.UUID, from, to string) ([]*entities.DailyMetricRollup, error)
}

// RollupHandler handles metric rollup endpoints
type RollupHandler struct {
	metrics MetricsService
}

// NewRollupHandler creates a new rollup handler
func NewRollupHandler(metrics MetricsService) *RollupHandler {
	return &RollupHandler{metrics: metrics}
}

const dateLayout = "2006-01-02"

// GetRollups returns daily rollups for a merchant and date range
// GET /api/v1/merchants/:id/rollups?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *RollupHandler) GetRollups(c *gin.Context) {
	merchantID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, domainerrors.BadRequest("invalid merchant ID"))
		return
	}

	today := time.Now().UTC().Format(dateLayout)
	from := c.DefaultQuery("from", today)
	to := c.DefaultQuery("to", today)
	for _, d := range []string{from, to} {
		if _, err := time.Parse(dateLayout, d); err != nil {
			response.Error(c, domainerrors.BadRequest("dates must be YYYY-MM-DD"))
			return
		}
	}

	if from == to {
		rollup, err := h.metrics.GetRollup(c.Request.Context(), merchantID, from)
		if err != nil {
			if errors.Is(err, domainerrors.ErrNotFound) {
				response.Success(c, http.StatusOK, []*entities.DailyMetricRollup{})
				return
			}
			response.Error(c, err)
			return
		}
		response.Success(c, http.StatusOK, []*entities.DailyMetricRollup{rollup})
		return
	}

	rollups, err := h.metrics.GetRange(c.Request.Context(), merchantID, from, to)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, http.StatusOK, rollups)
}
