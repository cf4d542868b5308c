package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-kit/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prajwalbharadwajbm/clipescrow/internal/custodian"
	"github.com/prajwalbharadwajbm/clipescrow/internal/endpoint"
	"github.com/prajwalbharadwajbm/clipescrow/internal/ledger"
	"github.com/prajwalbharadwajbm/clipescrow/internal/metrics"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
	"github.com/prajwalbharadwajbm/clipescrow/internal/repository"
	"github.com/prajwalbharadwajbm/clipescrow/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	t       *testing.T
	handler http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	svc := service.NewLedgerService(
		ledger.NewRegistry(custodian.NewMemory(custodian.WithUnlimitedSource())),
		repository.NewMemoryRepository(),
	)
	require.NoError(t, svc.Bootstrap(context.Background(), []string{"USDC"}))
	return &testServer{
		t:       t,
		handler: NewHTTPHandler(endpoint.MakeLedgerEndpoints(svc), log.NewNopLogger()),
	}
}

func (s *testServer) do(method, path string, caller models.Caller, opID string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if caller.ID != "" {
		req.Header.Set(HeaderCallerID, caller.ID)
		req.Header.Set(HeaderCallerRole, string(caller.Role))
	}
	if opID != "" {
		req.Header.Set(HeaderIdempotencyKey, opID)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decodeBody[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func units(n int64) decimal.Decimal {
	return decimal.NewFromInt(n).Mul(decimal.NewFromInt(1_000_000))
}

var (
	admin = models.Admin("ops")
	nike  = models.Brand("nike")
)

func (s *testServer) createCampaign() string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/v1/campaigns", nike, "", models.CreateCampaignRequest{
		Brand:           "nike",
		RewardAsset:     "usdc",
		TotalBudget:     units(10_000),
		MinDepositRatio: 1500,
		DurationSeconds: 86400,
	})
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody[models.CreateCampaignResponse](s.t, w).CampaignID
}

func TestNewHTTPHandler(t *testing.T) {
	handler := NewHTTPHandler(endpoint.LedgerEndpoints{}, log.NewNopLogger())

	assert.NotNil(t, handler)
	assert.IsType(t, &mux.Router{}, handler)
}

func TestHealthEndpoint(t *testing.T) {
	handler := NewHTTPHandler(endpoint.LedgerEndpoints{}, log.NewNopLogger(),
		WithServiceInfo("clipescrow", "1.0.0"),
		WithHealthCheck("database", func(context.Context) error { return nil }),
		WithHealthDetail("cache", func() any { return map[string]bool{"enabled": true} }),
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	response := decodeBody[map[string]any](t, w)
	assert.Equal(t, "healthy", response["status"])
	assert.Equal(t, "clipescrow", response["service"])
	assert.Equal(t, "1.0.0", response["version"])
	assert.Equal(t, map[string]any{"database": "healthy"}, response["checks"])
	assert.Contains(t, response, "details")
}

func TestHealthEndpoint_Unhealthy(t *testing.T) {
	m := metrics.NewPrometheusMetrics(prometheus.NewRegistry())
	handler := NewHTTPHandler(endpoint.LedgerEndpoints{}, log.NewNopLogger(),
		WithMetrics(m, nil),
		WithHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") }),
	)

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	response := decodeBody[map[string]any](t, w)
	assert.Equal(t, "unhealthy", response["status"])
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPrometheusMetrics(reg)
	handler := NewHTTPHandler(endpoint.LedgerEndpoints{}, log.NewNopLogger(), WithMetrics(m, reg))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `clipescrow_http_requests_total{endpoint="/health",method="GET",status_code="200"} 1`)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{models.ErrUnauthorized, http.StatusForbidden},
		{models.ErrParticipantBlacklisted, http.StatusForbidden},
		{models.ErrInvalidState, http.StatusConflict},
		{models.ErrAlreadyDeposited, http.StatusConflict},
		{models.ErrInsufficientDeposit, http.StatusUnprocessableEntity},
		{models.ErrNoRewardsAvailable, http.StatusUnprocessableEntity},
		{models.ErrBudgetExceeded, http.StatusUnprocessableEntity},
		{models.ErrInvalidArgument, http.StatusBadRequest},
		{models.ErrUnsupportedAsset, http.StatusBadRequest},
		{models.ErrCampaignNotFound, http.StatusNotFound},
		{models.ErrCustodianFailure, http.StatusBadGateway},
		{models.ErrPersistence, http.StatusServiceUnavailable},
		{fmt.Errorf("wrapped: %w", models.ErrInvalidState), http.StatusConflict},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestEncodeError(t *testing.T) {
	w := httptest.NewRecorder()
	encodeError(context.Background(), fmt.Errorf("%w: timeout", models.ErrCustodianFailure), w)

	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeBody[models.ErrorResponse](t, w)
	assert.Equal(t, models.KindCustodianFailure, body.Kind)
	assert.True(t, body.Retryable)
	assert.Contains(t, body.Error, "timeout")
}

func TestDecodeDepositRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns/c1/deposits", bytes.NewBufferString(`{"amount":"1500000000"}`))
	req.Header.Set(HeaderCallerID, "nike")
	req.Header.Set(HeaderCallerRole, "Brand")
	req.Header.Set(HeaderIdempotencyKey, " op-1 ")
	req = mux.SetURLVars(req, map[string]string{"id": "c1"})

	result, err := decodeDepositRequest(context.Background(), req)
	require.NoError(t, err)

	deposit := result.(endpoint.DepositRequest)
	assert.Equal(t, nike, deposit.Caller)
	assert.Equal(t, "op-1", deposit.OperationID)
	assert.Equal(t, "c1", deposit.CampaignID)
	assert.True(t, units(1_500).Equal(deposit.Amount))

	bad := httptest.NewRequest(http.MethodPost, "/v1/campaigns/c1/deposits", bytes.NewBufferString(`{"amount":`))
	_, err = decodeDepositRequest(context.Background(), bad)
	assert.ErrorIs(t, err, models.ErrInvalidArgument)
}

func TestCallerFromHeaders_UnknownRole(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderCallerID, "mallory")
	req.Header.Set(HeaderCallerRole, "root")

	caller := callerFromHeaders(req)
	assert.Equal(t, "mallory", caller.ID)
	assert.Equal(t, models.Role(""), caller.Role)
	assert.False(t, caller.IsAdmin())
}

func TestLedgerAPI_InitialDepositGate(t *testing.T) {
	s := newTestServer(t)
	id := s.createCampaign()
	path := "/v1/campaigns/" + id + "/deposits/initial"

	w := s.do(http.MethodPost, path, nike, "d-0", models.AmountRequest{Amount: units(1_000)})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Equal(t, models.KindInsufficientDeposit, decodeBody[models.ErrorResponse](t, w).Kind)

	w = s.do(http.MethodPost, path, models.Brand("adidas"), "d-1", models.AmountRequest{Amount: units(1_500)})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, path, nike, "d-2", models.AmountRequest{Amount: units(1_500)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rec := decodeBody[endpoint.ReceiptResponse](t, w).Receipt
	assert.Equal(t, models.OpInitialDeposit, rec.Operation)
	assert.True(t, units(1_500).Equal(rec.PoolBalance))

	// same key replays, a new key hits the one-time gate
	w = s.do(http.MethodPost, path, nike, "d-2", models.AmountRequest{Amount: units(1_500)})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, path, nike, "d-3", models.AmountRequest{Amount: units(1_500)})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, models.KindAlreadyDeposited, decodeBody[models.ErrorResponse](t, w).Kind)
}

func TestLedgerAPI_RewardsAndWithdrawal(t *testing.T) {
	s := newTestServer(t)
	id := s.createCampaign()
	base := "/v1/campaigns/" + id

	w := s.do(http.MethodPost, base+"/deposits/initial", nike, "d-1", models.AmountRequest{Amount: units(1_500)})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	for i, p := range []struct {
		name  string
		score int64
	}{{"alice", 100}, {"bob", 200}} {
		w = s.do(http.MethodPost, base+"/engagements", admin, fmt.Sprintf("e-%d", i), models.EngagementRequest{
			Participant: p.name, Score: decimal.NewFromInt(p.score), EvidenceRef: "https://clips.example/" + p.name,
		})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	w = s.do(http.MethodGet, base+"/users/alice/rewards", models.Caller{}, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, units(500).Equal(decodeBody[models.RewardResponse](t, w).Amount))

	w = s.do(http.MethodPost, base+"/users/alice/withdraw", models.Participant("bob"), "w-0", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, base+"/users/alice/withdraw", models.Participant("alice"), "w-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, units(500).Equal(decodeBody[endpoint.ReceiptResponse](t, w).Receipt.Amount))

	w = s.do(http.MethodGet, base, models.Caller{}, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decodeBody[models.CampaignStats](t, w)
	assert.True(t, units(1_000).Equal(stats.PoolBalance))
	assert.Equal(t, 2, stats.ParticipantCount)

	w = s.do(http.MethodGet, base+"/users/alice", models.Caller{}, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	user := decodeBody[models.UserStatsResponse](t, w)
	assert.True(t, units(500).Equal(user.Withdrawn))
	assert.True(t, user.PendingReward.IsZero())

	w = s.do(http.MethodGet, base+"/operations", models.Caller{}, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	ops := decodeBody[endpoint.OperationsResponse](t, w).Operations
	assert.Len(t, ops, 5)
}

func TestLedgerAPI_BlacklistAndLifecycle(t *testing.T) {
	s := newTestServer(t)
	id := s.createCampaign()
	base := "/v1/campaigns/" + id

	require.Equal(t, http.StatusOK, s.do(http.MethodPost, base+"/deposits/initial", nike, "d-1", models.AmountRequest{Amount: units(1_500)}).Code)

	w := s.do(http.MethodPost, base+"/blacklist", admin, "b-1", models.BlacklistRequest{Participant: "eve", Reason: "bots"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, base+"/engagements", admin, "e-1", models.EngagementRequest{Participant: "eve", Score: decimal.NewFromInt(10)})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, models.KindParticipantBlacklisted, decodeBody[models.ErrorResponse](t, w).Kind)

	w = s.do(http.MethodDelete, base+"/blacklist/eve", admin, "b-2", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, base+"/pause", admin, "p-1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.StatePaused, decodeBody[endpoint.ReceiptResponse](t, w).Receipt.State)

	w = s.do(http.MethodPost, base+"/deposits", nike, "m-1", models.AmountRequest{Amount: units(100)})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, base+"/cancel", admin, "x-1", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rec := decodeBody[endpoint.ReceiptResponse](t, w).Receipt
	assert.Equal(t, models.StateCancelled, rec.State)
	assert.True(t, units(1_500).Equal(rec.Amount))
	assert.True(t, rec.PoolBalance.IsZero())

	w = s.do(http.MethodPost, base+"/resume", admin, "r-1", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/v1/campaigns", models.Caller{}, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeBody[models.CampaignListResponse](t, w)
	assert.Empty(t, list.Campaigns)
	assert.Equal(t, 1, list.Count)
}

func TestLedgerAPI_Assets(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodPost, "/v1/assets", nike, "", models.AddAssetRequest{Asset: "EURC"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodPost, "/v1/assets", admin, "", models.AddAssetRequest{Asset: "eurc"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(http.MethodGet, "/v1/assets", models.Caller{}, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"EURC", "USDC"}, decodeBody[endpoint.AssetsResponse](t, w).Assets)

	w = s.do(http.MethodPost, "/v1/campaigns", nike, "", models.CreateCampaignRequest{
		Brand: "nike", RewardAsset: "DOGE", TotalBudget: units(1), MinDepositRatio: 1500, DurationSeconds: 60,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.KindUnsupportedAsset, decodeBody[models.ErrorResponse](t, w).Kind)
}

func TestLedgerAPI_NotFoundAndMalformed(t *testing.T) {
	s := newTestServer(t)

	w := s.do(http.MethodGet, "/v1/campaigns/missing/milestones", models.Caller{}, "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, models.KindCampaignNotFound, decodeBody[models.ErrorResponse](t, w).Kind)

	req := httptest.NewRequest(http.MethodPost, "/v1/campaigns", bytes.NewBufferString("{not json"))
	w = httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, models.KindInvalidArgument, decodeBody[models.ErrorResponse](t, w).Kind)
}
