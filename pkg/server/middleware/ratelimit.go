package middleware

import (
	"context"

	"github.com/Borislavv/shared-handle/pkg/rate"
	"github.com/valyala/fasthttp"
)

// RateLimitMiddleware sheds load with 429 once the token bucket is drained.
type RateLimitMiddleware struct {
	ctx     context.Context
	limiter rate.Limiter
}

func NewRateLimitMiddleware(ctx context.Context, limiter rate.Limiter) *RateLimitMiddleware {
	return &RateLimitMiddleware{ctx: ctx, limiter: limiter}
}

func (m *RateLimitMiddleware) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		select {
		case <-m.limiter.Chan():
		default:
			ctx.SetStatusCode(fasthttp.StatusTooManyRequests)
			return
		}

		next(ctx)
	}
}
