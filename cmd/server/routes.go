package main

import (
	"net/http"

	"github.com/go-kit/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prajwalbharadwajbm/clipescrow/internal/config"
	"github.com/prajwalbharadwajbm/clipescrow/internal/endpoint"
	"github.com/prajwalbharadwajbm/clipescrow/internal/metrics"
	"github.com/prajwalbharadwajbm/clipescrow/internal/middleware"
	"github.com/prajwalbharadwajbm/clipescrow/internal/service"
	"github.com/prajwalbharadwajbm/clipescrow/internal/transport"
)

// routes stacks the service middlewares and binds the endpoints to HTTP
func routes(svc service.CampaignLedgerService, logger log.Logger, m *metrics.Metrics, gatherer prometheus.Gatherer, general config.GeneralConfig, opts ...transport.HandlerOption) http.Handler {
	svc = middleware.NewServiceMetricsMiddleware(m)(svc)
	svc = middleware.NewLoggingMiddleware(log.With(logger, "component", "ledger"))(svc)

	opts = append(opts,
		transport.WithServiceInfo(general.ServiceName, general.Version),
		transport.WithMetrics(m, gatherer),
	)
	return transport.NewHTTPHandler(endpoint.MakeLedgerEndpoints(svc), logger, opts...)
}
