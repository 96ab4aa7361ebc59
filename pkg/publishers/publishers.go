package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypePubSub = "pubsub"
	TypeKafka  = "kafka"
	TypeHTTP   = "http"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// PublisherConfig is one sink declared in the publishers file. Exactly the
// section matching Type is required.
type PublisherConfig struct {
	ID      string                 `json:"id" yaml:"id" validate:"required"`
	Type    string                 `json:"type" yaml:"type" validate:"required,oneof=sqs sns pubsub kafka http"`
	Enabled *bool                  `json:"enabled" yaml:"enabled"`
	SQS     *SQSPublisherConfig    `json:"sqs" yaml:"sqs" validate:"required_if=Type sqs"`
	SNS     *SNSPublisherConfig    `json:"sns" yaml:"sns" validate:"required_if=Type sns"`
	PubSub  *PubSubPublisherConfig `json:"pubsub" yaml:"pubsub" validate:"required_if=Type pubsub"`
	Kafka   *KafkaPublisherConfig  `json:"kafka" yaml:"kafka" validate:"required_if=Type kafka"`
	HTTP    *HTTPPublisherConfig   `json:"http" yaml:"http" validate:"required_if=Type http"`
}

// AWSCredentials optionally pins static credentials instead of the default chain.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" validate:"required_with=SecretAccessKey"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" validate:"required_with=AccessKeyID"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// SQSPublisherConfig holds AWS SQS specific settings.
type SQSPublisherConfig struct {
	QueueURL    string          `json:"uri" yaml:"uri" validate:"required,url"`
	Region      string          `json:"region" yaml:"region" validate:"required"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials" validate:"omitempty"`
}

// SNSPublisherConfig holds AWS SNS specific settings.
type SNSPublisherConfig struct {
	TopicARN    string          `json:"topic_arn" yaml:"topic_arn" validate:"required,startswith=arn:"`
	Region      string          `json:"region" yaml:"region" validate:"required"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials" validate:"omitempty"`
}

// PubSubPublisherConfig holds GCP Pub/Sub settings.
type PubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id" validate:"required"`
	Topic           string `json:"topic" yaml:"topic" validate:"required"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// KafkaPublisherConfig holds Kafka writer settings.
type KafkaPublisherConfig struct {
	Brokers []string `json:"brokers" yaml:"brokers" validate:"required,min=1,dive,hostname_port"`
	Topic   string   `json:"topic" yaml:"topic" validate:"required"`
}

// HTTPPublisherConfig holds generic HTTP sink settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url" validate:"required,url"`
	Method         string            `json:"method" yaml:"method" validate:"oneof=POST PUT PATCH"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds" validate:"gt=0"`
}

type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// ConfigRegistry holds the publisher definitions of one file, in file order.
type ConfigRegistry struct {
	mu      sync.RWMutex
	entries []PublisherConfig
	byID    map[string]int
}

// LoadRegistry reads a YAML or JSON publishers file. Every entry is
// normalized and validated; ids must be unique.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	file, err := decodeConfigFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{byID: make(map[string]int, len(file.Publishers))}
	for i, cfg := range file.Publishers {
		cfg = cfg.normalized()
		if err := validatePublisherConfig(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.byID[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.byID[cfg.ID] = len(reg.entries)
		reg.entries = append(reg.entries, cfg)
	}
	return reg, nil
}

// decodeConfigFile picks the decoder from the extension; files without a
// known extension are tried as YAML (a JSON superset in practice), then JSON.
func decodeConfigFile(data []byte, ext string) (configFile, error) {
	var file configFile
	switch strings.ToLower(ext) {
	case ".json":
		if err := json.Unmarshal(data, &file); err != nil {
			return configFile{}, fmt.Errorf("decode json publishers: %w", err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return configFile{}, fmt.Errorf("decode yaml publishers: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &file); err != nil {
			if jerr := json.Unmarshal(data, &file); jerr != nil {
				return configFile{}, errors.New("publishers file format not recognized (expected YAML or JSON)")
			}
		}
	}
	return file, nil
}

func (cfg PublisherConfig) normalized() PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		on := true
		cfg.Enabled = &on
	}
	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SNS = &c
	}
	if cfg.PubSub != nil {
		c := *cfg.PubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		cfg.PubSub = &c
	}
	if cfg.Kafka != nil {
		c := *cfg.Kafka
		c.Brokers = compact(c.Brokers)
		c.Topic = strings.TrimSpace(c.Topic)
		cfg.Kafka = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = trimHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		cfg.HTTP = &c
	}
	return cfg
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// trimHeaders drops headers whose name or value is blank.
func trimHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// configValidator reports fields by their file names (sqs.uri, kafka.brokers).
func configValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

func validatePublisherConfig(cfg PublisherConfig) error {
	err := configValidator().Struct(cfg)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return err
	}

	label := cfg.ID
	if label == "" {
		label = "<unnamed>"
	}
	msgs := make([]error, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// drop the root struct name: PublisherConfig.sqs.uri -> sqs.uri
		field := fe.Namespace()
		if i := strings.IndexByte(field, '.'); i >= 0 {
			field = field[i+1:]
		}
		msgs = append(msgs, fmt.Errorf("publisher %q: %s", label, describeFieldError(field, fe)))
	}
	return errors.Join(msgs...)
}

func describeFieldError(field string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if", "required_with":
		return field + " is required"
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value())
	case "url":
		return field + " must be an absolute URL"
	case "hostname_port":
		return field + " must be host:port"
	default:
		return fmt.Sprintf("%s failed %s validation", field, fe.Tag())
	}
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.entries[i], true
}

// All returns every configured publisher.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]PublisherConfig(nil), r.entries...)
}

// Enabled returns the publishers not switched off with `enabled: false`.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	var out []PublisherConfig
	for _, cfg := range r.All() {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}
