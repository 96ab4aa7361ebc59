package e164

import (
	"net/http"

	"github.com/spf13/cast"
)

// Info holds the number attributes flattened out of a lookup payload.
// A field is empty when the payload omits the key or carries a falsy value.
type Info struct {
	Prefix          string `json:"prefix"`
	CallingCode     string `json:"calling_code"`
	ISO3            string `json:"iso3"`
	TADIG           string `json:"tadig"`
	MCCMNC          string `json:"mccmnc"`
	Type            string `json:"type"`
	Location        string `json:"location"`
	OperatorBrand   string `json:"operator_brand"`
	OperatorCompany string `json:"operator_company"`
	TotalLengthMin  string `json:"total_length_min"`
	TotalLengthMax  string `json:"total_length_max"`
	Weight          string `json:"weight"`
	Source          string `json:"source"`
}

// Result is the normalized outcome of a lookup. Every call to Client.Lookup
// returns one; failures are described by StatusCode, Error and Kind.
type Result struct {
	StatusCode  int            `json:"statusCode"`
	Error       string         `json:"error,omitempty"`
	Kind        ErrorKind      `json:"kind,omitempty"`
	Data        map[string]any `json:"data"`
	RawResponse *RawResponse   `json:"-"`
	Info
}

// NewResult builds a Result, flattening the known fields of data.
// data is kept as-is; it is ignored unless the status is 2xx.
func NewResult(statusCode int, data map[string]any, errMsg string, raw *RawResponse) *Result {
	res := &Result{
		StatusCode:  statusCode,
		Error:       errMsg,
		RawResponse: raw,
	}
	if res.IsSuccess() {
		if data == nil {
			data = map[string]any{}
		}
		res.Data = data
		res.Info = flatten(data)
		res.Error = ""
		return res
	}
	if res.Error == "" {
		res.Error = msgUnexpectedError
	}
	if statusCode == http.StatusNotFound {
		res.Kind = KindNotFound
	} else {
		res.Kind = KindUpstream
	}
	return res
}

func newFailure(kind ErrorKind, statusCode int, errMsg string, raw *RawResponse) *Result {
	res := NewResult(statusCode, nil, errMsg, raw)
	if !res.IsSuccess() {
		res.Kind = kind
	}
	return res
}

// IsSuccess reports whether the status code is 2xx.
func (r *Result) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Err returns nil for a successful result and a *LookupError otherwise.
func (r *Result) Err() error {
	if r.IsSuccess() {
		return nil
	}
	return &LookupError{Kind: r.Kind, StatusCode: r.StatusCode, Message: r.Error}
}

func flatten(data map[string]any) Info {
	return Info{
		Prefix:          field(data, "prefix"),
		CallingCode:     field(data, "calling_code"),
		ISO3:            field(data, "iso3"),
		TADIG:           field(data, "tadig"),
		MCCMNC:          field(data, "mccmnc"),
		Type:            field(data, "type"),
		Location:        field(data, "location"),
		OperatorBrand:   field(data, "operator_brand"),
		OperatorCompany: field(data, "operator_company"),
		TotalLengthMin:  field(data, "total_length_min"),
		TotalLengthMax:  field(data, "total_length_max"),
		Weight:          field(data, "weight"),
		Source:          field(data, "source"),
	}
}

// field renders data[key] as a string, treating falsy values as absent.
func field(data map[string]any, key string) string {
	v, ok := data[key]
	if !ok || isFalsy(v) {
		return ""
	}
	switch v.(type) {
	case map[string]any, []any:
		return ""
	}
	return cast.ToString(v)
}

func isFalsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case bool:
		return !t
	case float64:
		return t == 0
	case int:
		return t == 0
	case int64:
		return t == 0
	}
	return false
}
