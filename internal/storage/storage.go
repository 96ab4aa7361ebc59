// Package storage keeps a local journal of lookup outcomes. It is an audit
// trail only; lookups are always sent upstream.
package storage

import (
	"fmt"
	"strings"
	"time"
)

// Entry is the last recorded outcome for a number.
type Entry struct {
	StatusCode int       `json:"status_code"`
	Kind       string    `json:"kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	Prefix     string    `json:"prefix,omitempty"`
	ISO3       string    `json:"iso3,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Store records lookup outcomes keyed by sanitized number.
type Store interface {
	Close() error
	Last(number string) (Entry, bool, error)
	Record(number string, entry Entry) error
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	EntryTTL        time.Duration
	CleanupInterval time.Duration
}

const (
	defaultEntryTTL        = 30 * 24 * time.Hour
	defaultCleanupInterval = 12 * time.Hour
)

// NewStore creates the configured storage backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return Noop(), nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt storage requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported storage type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.EntryTTL <= 0 {
		opts.EntryTTL = defaultEntryTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

// Noop returns a Store that records nothing.
func Noop() Store { return noopStore{} }

type noopStore struct{}

func (noopStore) Close() error                     { return nil }
func (noopStore) Last(string) (Entry, bool, error) { return Entry{}, false, nil }
func (noopStore) Record(string, Entry) error       { return nil }
