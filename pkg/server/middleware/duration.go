package middleware

import (
	"context"
	"strconv"
	"time"

	fasthttpconfig "github.com/Borislavv/shared-handle/pkg/server/config"
	"github.com/valyala/fasthttp"
)

type Duration struct {
	ctx    context.Context
	config fasthttpconfig.Configurator
}

func NewDuration(ctx context.Context, config fasthttpconfig.Configurator) *Duration {
	return &Duration{ctx: ctx, config: config}
}

func (m *Duration) Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		from := time.Now()

		next(ctx)

		ctx.Response.Header.Add("Server-Timing", "p;dur="+strconv.Itoa(int(time.Since(from).Milliseconds())))
	}
}
