package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/e164/e164-go/internal/config"
	"github.com/e164/e164-go/internal/logger"
	"github.com/e164/e164-go/internal/phone"
	"github.com/e164/e164-go/internal/storage"
	"github.com/e164/e164-go/pkg/e164"
	"github.com/e164/e164-go/pkg/publishers"
)

// Runner performs one lookup at a time for the command line: it expands
// national numbers, calls the API, journals the outcome and fans out a
// lookup event to the configured publishers.
type Runner struct {
	client  *e164.Client
	fanout  *publishers.Fanout
	journal storage.Store
	region  string
	log     logger.Logger
}

// NewRunner builds a runner from config.
func NewRunner(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	client := e164.New(e164.Options{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		UserAgent: cfg.UserAgent,
		Referer:   cfg.Referer,
		Timeout:   cfg.Timeout,
		Logger:    log,
	})

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	journal, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		return nil, errors.Join(fmt.Errorf("init storage: %w", err), fanout.Close())
	}
	log.DebugObj("journal initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	return newRunner(client, fanout, journal, cfg.DefaultRegion, log), nil
}

func newRunner(client *e164.Client, fanout *publishers.Fanout, journal storage.Store, region string, log logger.Logger) *Runner {
	if log == nil {
		log = &logger.NopLogger{}
	}
	if journal == nil {
		journal = storage.Noop()
	}
	return &Runner{
		client:  client,
		fanout:  fanout,
		journal: journal,
		region:  region,
		log:     log,
	}
}

// buildFanout loads enabled publishers; an empty path disables publishing.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		return publishers.NewFanout(nil), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.DebugObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients), nil
}

// Lookup resolves number. Journal and publishing failures are logged, never returned:
// the lookup result is what the caller asked for.
func (r *Runner) Lookup(ctx context.Context, number string) *e164.Result {
	input := phone.ToE164(number, r.region)
	if input != number {
		r.log.DebugObj("number expanded with region", "number_expansion", map[string]any{
			"input":    number,
			"expanded": input,
			"region":   r.region,
		})
	}

	res := r.client.Lookup(ctx, input)

	if key := e164.Sanitize(input); key != "" {
		r.journalResult(key, res)
	}
	r.publish(ctx, input, res)
	return res
}

func (r *Runner) journalResult(key string, res *e164.Result) {
	prev, found, err := r.journal.Last(key)
	if err != nil {
		r.log.WarnObj("journal read failed", "journal_error", map[string]any{
			"number": key,
			"error":  err.Error(),
		})
	} else if found {
		r.log.InfoObj("number looked up before", "journal_entry", map[string]any{
			"number":      key,
			"last_seen":   humanize.Time(prev.RecordedAt),
			"last_status": prev.StatusCode,
		})
	}

	entry := storage.Entry{
		StatusCode: res.StatusCode,
		Kind:       string(res.Kind),
		Error:      res.Error,
		Prefix:     res.Prefix,
		ISO3:       res.ISO3,
	}
	if err := r.journal.Record(key, entry); err != nil {
		r.log.WarnObj("journal write failed", "journal_error", map[string]any{
			"number": key,
			"error":  err.Error(),
		})
	}
}

func (r *Runner) publish(ctx context.Context, number string, res *e164.Result) {
	if r.fanout.Size() == 0 {
		return
	}
	evt := publishers.NewEvent(number, res)
	delivered, err := r.fanout.Publish(ctx, evt)
	if err != nil {
		r.log.ErrorObj("lookup event publish failed", "publish_error", map[string]any{
			"event_id":  evt.ID,
			"delivered": delivered,
			"error":     err.Error(),
		})
		return
	}
	r.log.DebugObj("lookup event published", "publish_result", map[string]any{
		"event_id":  evt.ID,
		"delivered": delivered,
	})
}

// Close releases publishers and the journal.
func (r *Runner) Close() error {
	if r == nil {
		return nil
	}
	return errors.Join(r.fanout.Close(), r.journal.Close())
}
