package httpclient

import (
	"context"
	"net/http"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
// url may be relative when the implementation is configured with a base URL.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}
