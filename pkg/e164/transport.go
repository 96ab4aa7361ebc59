package e164

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/e164/e164-go/pkg/httpclient"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// RawResponse is the transport response kept on a Result for diagnostics.
type RawResponse struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	// Data is the decoded JSON body, the body text when it is not JSON, or nil when empty.
	Data any
}

// outcome is what the transport wrapper hands the orchestrator: exactly one
// of Response or Err is set.
type outcome struct {
	Response *RawResponse
	Err      *TransportError
}

// acceptStatus lets 4xx through as inspectable responses.
func acceptStatus(status int) bool {
	return status >= 200 && status < 500
}

// get issues the GET and folds every failure into the outcome's error variant.
func (c *Client) get(ctx context.Context, path string) outcome {
	resp, err := c.http.Get(ctx, path, nil)

	var raw *RawResponse
	if resp != nil {
		raw = newRawResponse(resp)
	}

	if err != nil {
		// err belongs to the collaborator and may be shared; never write to it.
		attached := raw
		var te *TransportError
		if errors.As(err, &te) && te.Response != nil {
			attached = te.Response
		}
		return outcome{Err: NewTransportError(err, attached)}
	}
	if raw == nil {
		return outcome{Err: &TransportError{Message: "empty response from transport"}}
	}
	if !acceptStatus(raw.StatusCode) {
		return outcome{Err: &TransportError{
			Message:  fmt.Sprintf("Request failed with status code %d", raw.StatusCode),
			Response: raw,
		}}
	}
	return outcome{Response: raw}
}

func newRawResponse(resp httpclient.Response) *RawResponse {
	body := resp.Body()
	return &RawResponse{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       body,
		Data:       decodeBody(body),
	}
}

func decodeBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return string(body)
	}
	return v
}
