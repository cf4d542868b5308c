package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	kitendpoint "github.com/go-kit/kit/endpoint"
	httptransport "github.com/go-kit/kit/transport/http"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	reqcontext "github.com/prajwalbharadwajbm/clipescrow/internal/context"
	"github.com/prajwalbharadwajbm/clipescrow/internal/endpoint"
	"github.com/prajwalbharadwajbm/clipescrow/internal/metrics"
	"github.com/prajwalbharadwajbm/clipescrow/internal/middleware"
	"github.com/prajwalbharadwajbm/clipescrow/internal/models"
)

// Request headers carrying identity and idempotency. The upstream backend
// authenticates callers and asserts their role.
const (
	HeaderCallerID       = "X-Caller-ID"
	HeaderCallerRole     = "X-Caller-Role"
	HeaderIdempotencyKey = "Idempotency-Key"
)

// HealthCheckFunc probes one dependency
type HealthCheckFunc func(ctx context.Context) error

type handlerConfig struct {
	service  string
	version  string
	checks   map[string]HealthCheckFunc
	details  map[string]func() any
	metrics  *metrics.Metrics
	gatherer prometheus.Gatherer
}

// HandlerOption configures NewHTTPHandler
type HandlerOption func(*handlerConfig)

// WithServiceInfo sets the name and version reported by /health
func WithServiceInfo(service, version string) HandlerOption {
	return func(c *handlerConfig) {
		c.service = service
		c.version = version
	}
}

// WithHealthCheck adds a dependency probe to /health
func WithHealthCheck(name string, check HealthCheckFunc) HandlerOption {
	return func(c *handlerConfig) { c.checks[name] = check }
}

// WithHealthDetail adds an informational section to /health
func WithHealthDetail(name string, detail func() any) HandlerOption {
	return func(c *handlerConfig) { c.details[name] = detail }
}

// WithMetrics instruments every route and serves gatherer on /metrics
func WithMetrics(m *metrics.Metrics, gatherer prometheus.Gatherer) HandlerOption {
	return func(c *handlerConfig) {
		c.metrics = m
		c.gatherer = gatherer
	}
}

// NewHTTPHandler creates HTTP handlers for the ledger service
func NewHTTPHandler(endpoints endpoint.LedgerEndpoints, logger log.Logger, opts ...HandlerOption) http.Handler {
	cfg := &handlerConfig{
		service: "clipescrow",
		version: "dev",
		checks:  make(map[string]HealthCheckFunc),
		details: make(map[string]func() any),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	options := []httptransport.ServerOption{
		httptransport.ServerErrorEncoder(encodeError),
		httptransport.ServerErrorHandler(newErrorHandler(logger)),
		httptransport.ServerBefore(populateRequestContext),
	}

	handle := func(e kitendpoint.Endpoint, dec httptransport.DecodeRequestFunc, status int) http.Handler {
		return httptransport.NewServer(e, dec, encodeResponse(status), options...)
	}

	r := mux.NewRouter()
	r.Use(middleware.NewRequestIDMiddleware().Middleware)
	if cfg.metrics != nil {
		r.Use(middleware.NewMetricsMiddleware(cfg.metrics).Middleware)
	}

	v1 := r.PathPrefix("/v1").Subrouter()

	v1.Handle("/assets", handle(endpoints.AddAssetEndpoint, decodeAddAssetRequest, http.StatusNoContent)).Methods(http.MethodPost)
	v1.Handle("/assets", handle(endpoints.ListAssetsEndpoint, decodeNoRequest, http.StatusOK)).Methods(http.MethodGet)

	v1.Handle("/campaigns", handle(endpoints.CreateCampaignEndpoint, decodeCreateCampaignRequest, http.StatusCreated)).Methods(http.MethodPost)
	v1.Handle("/campaigns", handle(endpoints.ListCampaignsEndpoint, decodeNoRequest, http.StatusOK)).Methods(http.MethodGet)
	v1.Handle("/campaigns/{id}", handle(endpoints.GetStatsEndpoint, decodeCampaignRequest, http.StatusOK)).Methods(http.MethodGet)
	v1.Handle("/campaigns/{id}/milestones", handle(endpoints.GetMilestonesEndpoint, decodeCampaignRequest, http.StatusOK)).Methods(http.MethodGet)
	v1.Handle("/campaigns/{id}/operations", handle(endpoints.ListOperationsEndpoint, decodeCampaignRequest, http.StatusOK)).Methods(http.MethodGet)

	v1.Handle("/campaigns/{id}/users/{participant}", handle(endpoints.GetUserStatsEndpoint, decodeUserRequest, http.StatusOK)).Methods(http.MethodGet)
	v1.Handle("/campaigns/{id}/users/{participant}/rewards", handle(endpoints.CalculateRewardsEndpoint, decodeUserRequest, http.StatusOK)).Methods(http.MethodGet)
	v1.Handle("/campaigns/{id}/users/{participant}/withdraw", handle(endpoints.WithdrawRewardsEndpoint, decodeParticipantRequest, http.StatusOK)).Methods(http.MethodPost)

	v1.Handle("/campaigns/{id}/deposits/initial", handle(endpoints.InitialDepositEndpoint, decodeDepositRequest, http.StatusOK)).Methods(http.MethodPost)
	v1.Handle("/campaigns/{id}/deposits", handle(endpoints.DepositMoreEndpoint, decodeDepositRequest, http.StatusOK)).Methods(http.MethodPost)
	v1.Handle("/campaigns/{id}/engagements", handle(endpoints.SubmitEngagementEndpoint, decodeEngagementRequest, http.StatusOK)).Methods(http.MethodPost)
	v1.Handle("/campaigns/{id}/blacklist", handle(endpoints.BlacklistUserEndpoint, decodeBlacklistRequest, http.StatusOK)).Methods(http.MethodPost)
	v1.Handle("/campaigns/{id}/blacklist/{participant}", handle(endpoints.RemoveBlacklistEndpoint, decodeParticipantRequest, http.StatusOK)).Methods(http.MethodDelete)

	v1.Handle("/campaigns/{id}/pause", handle(endpoints.PauseEndpoint, decodeMutationRequest, http.StatusOK)).Methods(http.MethodPost)
	v1.Handle("/campaigns/{id}/resume", handle(endpoints.ResumeEndpoint, decodeMutationRequest, http.StatusOK)).Methods(http.MethodPost)
	v1.Handle("/campaigns/{id}/cancel", handle(endpoints.CancelEndpoint, decodeMutationRequest, http.StatusOK)).Methods(http.MethodPost)
	v1.Handle("/campaigns/{id}/complete", handle(endpoints.CompleteEndpoint, decodeMutationRequest, http.StatusOK)).Methods(http.MethodPost)

	r.HandleFunc("/health", healthHandler(cfg)).Methods(http.MethodGet)
	if cfg.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}

	return r
}

// callerFromHeaders builds the caller capability. A missing or unknown
// role yields a caller that every authorization check rejects.
func callerFromHeaders(r *http.Request) models.Caller {
	return models.Caller{
		ID:   strings.TrimSpace(r.Header.Get(HeaderCallerID)),
		Role: models.ParseRole(r.Header.Get(HeaderCallerRole)),
	}
}

func populateRequestContext(ctx context.Context, r *http.Request) context.Context {
	ctx = reqcontext.WithCaller(ctx, callerFromHeaders(r))
	return reqcontext.WithOperationID(ctx, strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)))
}

func mutationFromRequest(r *http.Request) endpoint.MutationRequest {
	return endpoint.MutationRequest{
		Caller:      callerFromHeaders(r),
		OperationID: strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)),
		CampaignID:  mux.Vars(r)["id"],
	}
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: malformed request body: %v", models.ErrInvalidArgument, err)
	}
	return nil
}

func decodeNoRequest(_ context.Context, _ *http.Request) (any, error) {
	return nil, nil
}

func decodeAddAssetRequest(_ context.Context, r *http.Request) (any, error) {
	var body models.AddAssetRequest
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	return endpoint.AddAssetRequest{Caller: callerFromHeaders(r), Asset: body.Asset}, nil
}

func decodeCreateCampaignRequest(_ context.Context, r *http.Request) (any, error) {
	var body models.CreateCampaignRequest
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	return endpoint.CreateCampaignRequest{
		Caller:      callerFromHeaders(r),
		OperationID: strings.TrimSpace(r.Header.Get(HeaderIdempotencyKey)),
		Campaign:    body,
	}, nil
}

func decodeCampaignRequest(_ context.Context, r *http.Request) (any, error) {
	return endpoint.CampaignRequest{CampaignID: mux.Vars(r)["id"]}, nil
}

func decodeUserRequest(_ context.Context, r *http.Request) (any, error) {
	vars := mux.Vars(r)
	return endpoint.UserRequest{CampaignID: vars["id"], Participant: vars["participant"]}, nil
}

func decodeMutationRequest(_ context.Context, r *http.Request) (any, error) {
	return mutationFromRequest(r), nil
}

func decodeParticipantRequest(_ context.Context, r *http.Request) (any, error) {
	return endpoint.ParticipantRequest{
		MutationRequest: mutationFromRequest(r),
		Participant:     mux.Vars(r)["participant"],
	}, nil
}

func decodeDepositRequest(_ context.Context, r *http.Request) (any, error) {
	var body models.AmountRequest
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	return endpoint.DepositRequest{MutationRequest: mutationFromRequest(r), Amount: body.Amount}, nil
}

func decodeEngagementRequest(_ context.Context, r *http.Request) (any, error) {
	var body models.EngagementRequest
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	return endpoint.EngagementRequest{MutationRequest: mutationFromRequest(r), Engagement: body}, nil
}

func decodeBlacklistRequest(_ context.Context, r *http.Request) (any, error) {
	var body models.BlacklistRequest
	if err := decodeJSON(r, &body); err != nil {
		return nil, err
	}
	return endpoint.BlacklistRequest{MutationRequest: mutationFromRequest(r), Blacklist: body}, nil
}

// encodeResponse writes a successful response with status, or the error a
// Failer response carries.
func encodeResponse(status int) httptransport.EncodeResponseFunc {
	return func(ctx context.Context, w http.ResponseWriter, response any) error {
		if f, ok := response.(kitendpoint.Failer); ok && f.Failed() != nil {
			encodeError(ctx, f.Failed(), w)
			return nil
		}
		if status == http.StatusNoContent {
			w.WriteHeader(status)
			return nil
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		return json.NewEncoder(w).Encode(response)
	}
}

// StatusFor maps an error kind to its HTTP status
func StatusFor(err error) int {
	switch models.KindOf(err) {
	case models.KindUnauthorized, models.KindParticipantBlacklisted:
		return http.StatusForbidden
	case models.KindInvalidState, models.KindAlreadyDeposited:
		return http.StatusConflict
	case models.KindInsufficientDeposit, models.KindNoRewardsAvailable, models.KindBudgetExceeded:
		return http.StatusUnprocessableEntity
	case models.KindInvalidArgument, models.KindUnsupportedAsset:
		return http.StatusBadRequest
	case models.KindCampaignNotFound:
		return http.StatusNotFound
	case models.KindCustodianFailure:
		return http.StatusBadGateway
	case models.KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// encodeError encodes error to HTTP response
func encodeError(_ context.Context, err error, w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusFor(err))
	json.NewEncoder(w).Encode(models.NewErrorResponse(err))
}

type errorHandler struct {
	logger log.Logger
}

// newErrorHandler logs transport level failures such as malformed bodies
func newErrorHandler(logger log.Logger) errorHandler {
	return errorHandler{logger: log.With(logger, "component", "http")}
}

func (h errorHandler) Handle(ctx context.Context, err error) {
	level.Warn(h.logger).Log("request_id", reqcontext.GetRequestID(ctx), "error", err)
}

type healthResponse struct {
	Status  string            `json:"status"`
	Service string            `json:"service"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
	Details map[string]any    `json:"details,omitempty"`
}

// healthHandler runs every dependency probe; any failure turns the
// response into 503
func healthHandler(cfg *handlerConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		response := healthResponse{
			Status:  "healthy",
			Service: cfg.service,
			Version: cfg.version,
		}
		status := http.StatusOK

		if len(cfg.checks) > 0 {
			response.Checks = make(map[string]string, len(cfg.checks))
		}
		for name, check := range cfg.checks {
			healthy := true
			if err := check(ctx); err != nil {
				healthy = false
				response.Checks[name] = "unhealthy: " + err.Error()
				response.Status = "unhealthy"
				status = http.StatusServiceUnavailable
			} else {
				response.Checks[name] = "healthy"
			}
			if cfg.metrics != nil {
				cfg.metrics.SetHealthCheckStatus(name, healthy)
			}
		}

		if len(cfg.details) > 0 {
			response.Details = make(map[string]any, len(cfg.details))
			for name, detail := range cfg.details {
				response.Details[name] = detail()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(response)
	}
}
