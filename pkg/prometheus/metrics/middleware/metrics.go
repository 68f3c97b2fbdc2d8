package middleware

import (
	"context"
	"strconv"

	"github.com/Borislavv/shared-handle/pkg/prometheus/metrics"
	"github.com/valyala/fasthttp"
)

type PrometheusMetrics struct {
	ctx     context.Context
	metrics metrics.Meter
}

func NewPrometheusMetrics(ctx context.Context, metrics metrics.Meter) *PrometheusMetrics {
	return &PrometheusMetrics{ctx: ctx, metrics: metrics}
}

func (m *PrometheusMetrics) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		path := string(ctx.Path())
		method := string(ctx.Method())

		timer := m.metrics.NewResponseTimeTimer(path, method)
		m.metrics.IncTotal(path, method, "")

		next(ctx)

		status := strconv.Itoa(ctx.Response.StatusCode())
		m.metrics.IncStatus(path, method, status)
		m.metrics.IncTotal(path, method, status)

		m.metrics.FlushResponseTimeTimer(timer)
	}
}
