package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"paywatch.backend/internal/domain/entities"
	domainerrors "paywatch.backend/internal/domain/errors"
)

type MockMetricsService struct {
	mock.Mock
}

func (m *MockMetricsService) GetRollup(ctx context.Context, merchantID uuid.UUID, date string) (*entities.DailyMetricRollup, error) {
	args := m.Called(ctx, merchantID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.DailyMetricRollup), args.Error(1)
}

func (m *MockMetricsService) GetRange(ctx context.Context, merchantID uuid.UUID, from, to string) ([]*entities.DailyMetricRollup, error) {
	args := m.Called(ctx, merchantID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.DailyMetricRollup), args.Error(1)
}

func newRollupRouter(service *MockMetricsService) *gin.Engine {
	h := NewRollupHandler(service)
	r := gin.New()
	r.GET("/api/v1/merchants/:id/rollups", h.GetRollups)
	return r
}

func TestRollupHandler_SingleDay(t *testing.T) {
	merchantID := uuid.New()
	service := new(MockMetricsService)
	service.On("GetRollup", mock.Anything, merchantID, "2026-03-14").
		Return(entities.NewDailyMetricRollup(merchantID, "2026-03-14"), nil)

	w := performRequest(newRollupRouter(service), http.MethodGet,
		"/api/v1/merchants/"+merchantID.String()+"/rollups?from=2026-03-14&to=2026-03-14", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body []entities.DailyMetricRollup
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body, 1)
	assert.Equal(t, "2026-03-14", body[0].Date)
	service.AssertExpectations(t)
}

func TestRollupHandler_DefaultsToToday(t *testing.T) {
	merchantID := uuid.New()
	today := time.Now().UTC().Format("2006-01-02")
	service := new(MockMetricsService)
	service.On("GetRollup", mock.Anything, merchantID, today).
		Return(entities.NewDailyMetricRollup(merchantID, today), nil)

	w := performRequest(newRollupRouter(service), http.MethodGet,
		"/api/v1/merchants/"+merchantID.String()+"/rollups", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	service.AssertExpectations(t)
}

func TestRollupHandler_NoDataIsEmptyList(t *testing.T) {
	merchantID := uuid.New()
	service := new(MockMetricsService)
	service.On("GetRollup", mock.Anything, merchantID, "2026-03-14").
		Return(nil, domainerrors.ErrNotFound)

	w := performRequest(newRollupRouter(service), http.MethodGet,
		"/api/v1/merchants/"+merchantID.String()+"/rollups?from=2026-03-14&to=2026-03-14", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())
}

func TestRollupHandler_Range(t *testing.T) {
	merchantID := uuid.New()
	service := new(MockMetricsService)
	service.On("GetRange", mock.Anything, merchantID, "2026-03-10", "2026-03-14").
		Return([]*entities.DailyMetricRollup{
			entities.NewDailyMetricRollup(merchantID, "2026-03-10"),
			entities.NewDailyMetricRollup(merchantID, "2026-03-12"),
		}, nil)

	w := performRequest(newRollupRouter(service), http.MethodGet,
		"/api/v1/merchants/"+merchantID.String()+"/rollups?from=2026-03-10&to=2026-03-14", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body []entities.DailyMetricRollup
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body, 2)
}

func TestRollupHandler_BadDate(t *testing.T) {
	merchantID := uuid.New()
	service := new(MockMetricsService)

	w := performRequest(newRollupRouter(service), http.MethodGet,
		"/api/v1/merchants/"+merchantID.String()+"/rollups?from=14-03-2026", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	service.AssertNotCalled(t, "GetRollup")
	service.AssertNotCalled(t, "GetRange")
}

func TestRollupHandler_BadMerchantID(t *testing.T) {
	w := performRequest(newRollupRouter(new(MockMetricsService)), http.MethodGet,
		"/api/v1/merchants/nope/rollups", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
