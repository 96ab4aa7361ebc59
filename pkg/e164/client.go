// Package e164 is a client for the e164.com phone number lookup API.
//
// Every lookup returns a *Result; transport and upstream failures are
// reported through the result instead of an error return:
//
//	client := e164.New(e164.Options{})
//	res := client.Lookup(ctx, "+14155552671")
//	if res.IsSuccess() {
//		fmt.Println(res.Prefix, res.Location)
//	}
package e164

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/e164/e164-go/pkg/httpclient"
)

const (
	DefaultBaseURL   = "https://e164.com/"
	DefaultUserAgent = "e164-go-sdk/1.0 (Go)"
	DefaultReferer   = "https://www.e164.com/"
	DefaultTimeout   = 15 * time.Second

	msgInvalidNumber    = "Invalid phone number format provided."
	msgNotFound         = "Phone number not found or invalid."
	msgUnexpectedFormat = "Received unexpected data format from API."
	msgUnexpectedError  = "An unexpected error occurred during lookup."
)

// Options configures a Client. All fields are optional.
type Options struct {
	// Client replaces the default transport. It is used untouched: base URL,
	// headers and timeout below only apply to the default transport.
	Client    httpclient.Client
	APIKey    string
	BaseURL   string
	UserAgent string
	Referer   string
	Timeout   time.Duration
	Logger    Logger
}

// Client performs lookups against the e164 API. It is safe for concurrent use.
type Client struct {
	http httpclient.Client
	log  Logger
}

// New creates a Client.
func New(opts Options) *Client {
	client := opts.Client
	if client == nil {
		client = httpclient.NewRestyClient(httpclient.Options{
			BaseURL: firstNonEmpty(opts.BaseURL, DefaultBaseURL),
			Headers: DefaultHeaders(opts),
			Timeout: durationOr(opts.Timeout, DefaultTimeout),
		})
	}
	return &Client{http: client, log: ensureLogger(opts.Logger)}
}

// DefaultHeaders returns the headers the default transport sends.
func DefaultHeaders(opts Options) map[string]string {
	headers := map[string]string{
		"User-Agent": firstNonEmpty(opts.UserAgent, DefaultUserAgent),
		"Referer":    firstNonEmpty(opts.Referer, DefaultReferer),
	}
	if key := strings.TrimSpace(opts.APIKey); key != "" {
		headers["Authorization"] = "Bearer " + key
	}
	return headers
}

// HTTPClient returns the transport the client sends requests through.
func (c *Client) HTTPClient() httpclient.Client { return c.http }

// Sanitize keeps only ASCII digits, '+' and '-'.
func Sanitize(phoneNumber string) string {
	return strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '+' || r == '-' {
			return r
		}
		return -1
	}, phoneNumber)
}

// lookupPath percent-encodes the sanitized number; '+' becomes %2B.
func lookupPath(sanitized string) string {
	return "/" + url.QueryEscape(sanitized)
}

// Lookup resolves phoneNumber. It never panics and never returns nil.
func (c *Client) Lookup(ctx context.Context, phoneNumber string) (res *Result) {
	if ctx == nil {
		ctx = context.Background()
	}

	number := Sanitize(phoneNumber)
	if number == "" {
		return newFailure(KindInput, http.StatusBadRequest, msgInvalidNumber, nil)
	}

	var obtained *RawResponse
	defer func() {
		if r := recover(); r != nil {
			res = fromTransportError(&TransportError{Message: fmt.Sprint(r)}, obtained)
			c.log.ErrorObj("e164 lookup panicked", "lookup_panic", map[string]any{
				"number": number,
				"error":  res.Error,
			})
		}
	}()

	out := c.get(ctx, lookupPath(number))
	switch {
	case out.Err != nil:
		res = fromTransportError(out.Err, obtained)
		c.log.WarnObj("e164 lookup transport failure", "lookup_error", map[string]any{
			"number":      number,
			"status_code": res.StatusCode,
			"error":       res.Error,
		})
	default:
		obtained = out.Response
		res = classify(out.Response)
		c.log.DebugObj("e164 lookup completed", "lookup_result", map[string]any{
			"number":      number,
			"status_code": res.StatusCode,
			"kind":        string(res.Kind),
		})
	}
	return res
}

// classify maps an accepted response onto a Result.
func classify(raw *RawResponse) *Result {
	status := raw.StatusCode
	data := raw.Data

	if status < 200 || status >= 300 {
		return NewResult(status, nil, upstreamMessage(data, status), raw)
	}

	if isEmptyPayload(data) {
		return newFailure(KindNotFound, http.StatusNotFound, msgNotFound, raw)
	}
	if list, ok := data.([]any); ok {
		data = list[0]
	}

	record, ok := data.(map[string]any)
	if !ok || record == nil {
		return newFailure(KindFormat, http.StatusInternalServerError, msgUnexpectedFormat, raw)
	}
	return NewResult(status, record, "", raw)
}

func isEmptyPayload(data any) bool {
	if list, ok := data.([]any); ok {
		return len(list) == 0
	}
	return isFalsy(data)
}

func upstreamMessage(data any, status int) string {
	if record, ok := data.(map[string]any); ok {
		if msg := field(record, "error"); msg != "" {
			return msg
		}
	}
	return fmt.Sprintf("Request failed with status code %d", status)
}

// fromTransportError maps a transport failure onto a failed Result. The
// status is the attached response's status when that status is a failure;
// an attached 2xx or a missing response reports 500, so a failed call never
// reads as success and a success always carries data. The raw response is
// the attached one, else the one obtained before failing.
func fromTransportError(te *TransportError, obtained *RawResponse) *Result {
	status := http.StatusInternalServerError
	raw := obtained
	if te.Response != nil {
		raw = te.Response
		if code := te.Response.StatusCode; code != 0 && (code < 200 || code >= 300) {
			status = code
		}
	}
	msg := te.Message
	if msg == "" {
		msg = msgUnexpectedError
	}
	return newFailure(KindTransport, status, msg, raw)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func durationOr(d, fallback time.Duration) time.Duration {
	if d <= 0 {
		return fallback
	}
	return d
}
