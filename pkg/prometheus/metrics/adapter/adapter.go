package adapter

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// NewFastHTTPHandlerFunc bridges a net/http handler (promhttp and friends)
// into the fasthttp request loop.
func NewFastHTTPHandlerFunc(h http.Handler) fasthttp.RequestHandler {
	return fasthttpadaptor.NewFastHTTPHandler(h)
}
