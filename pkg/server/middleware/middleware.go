package middleware

import "github.com/valyala/fasthttp"

// HttpMiddleware wraps the request handler; middlewares are applied in
// reverse slice order so the first one listed executes first.
type HttpMiddleware interface {
	Middleware(next fasthttp.RequestHandler) fasthttp.RequestHandler
}
