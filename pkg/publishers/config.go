package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeGCPPubSub = "gcp_pubsub"
	TypeWebhook   = "webhook"
)

const (
	webhookDefaultMethod  = "POST"
	webhookDefaultTimeout = 5
	webhookMaxRetries     = 5
)

// Config is one publisher entry of the publishers file.
type Config struct {
	ID      string `json:"id" yaml:"id"`
	Type    string `json:"type" yaml:"type"`
	Enabled *bool  `json:"enabled" yaml:"enabled"`
	// Triggers limits the snapshot triggers that reach this publisher.
	// Empty means every trigger.
	Triggers []string `json:"triggers" yaml:"triggers"`

	SQS     *SQSConfig     `json:"sqs" yaml:"sqs"`
	SNS     *SNSConfig     `json:"sns" yaml:"sns"`
	PubSub  *PubSubConfig  `json:"gcp_pubsub" yaml:"gcp_pubsub"`
	Webhook *WebhookConfig `json:"webhook" yaml:"webhook"`
}

// AWSCredentials optionally pins static credentials instead of the default chain.
type AWSCredentials struct {
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// SQSConfig targets an SQS queue.
type SQSConfig struct {
	QueueURL    string          `json:"queue_url" yaml:"queue_url"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

// SNSConfig targets an SNS topic.
type SNSConfig struct {
	TopicARN    string          `json:"topic_arn" yaml:"topic_arn"`
	Region      string          `json:"region" yaml:"region"`
	Credentials *AWSCredentials `json:"credentials" yaml:"credentials"`
}

// PubSubConfig targets a Google Cloud Pub/Sub topic.
type PubSubConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// WebhookConfig targets an HTTP endpoint, e.g. a CDN purge hook or a chat bot.
type WebhookConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	Retries        int               `json:"retries" yaml:"retries"`
}

// LoadConfigs reads and validates every entry of a YAML or JSON publishers file.
func LoadConfigs(path string) ([]Config, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file struct {
		Publishers []Config `json:"publishers" yaml:"publishers"`
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		err = json.Unmarshal(raw, &file)
	} else {
		err = yaml.Unmarshal(raw, &file)
	}
	if err != nil {
		return nil, fmt.Errorf("decode publishers file: %w", err)
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	seen := make(map[string]struct{}, len(file.Publishers))
	out := make([]Config, 0, len(file.Publishers))
	for i, cfg := range file.Publishers {
		cfg = cfg.normalize()
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		out = append(out, cfg)
	}
	return out, nil
}

// Enabled drops the entries switched off in the file.
func Enabled(cfgs []Config) []Config {
	return lo.Filter(cfgs, func(cfg Config, _ int) bool { return cfg.IsEnabled() })
}

// IsEnabled defaults to true when the flag is absent.
func (c Config) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// Accepts reports whether events from trigger should reach this publisher.
func (c Config) Accepts(trigger string) bool {
	return len(c.Triggers) == 0 || slices.Contains(c.Triggers, trigger)
}

// Validate checks the entry and the block matching its type.
func (c Config) Validate() error {
	if c.ID == "" {
		return errors.New("id is required")
	}
	for _, t := range c.Triggers {
		if t != TriggerScheduled && t != TriggerLazy {
			return fmt.Errorf("publisher %q: unknown trigger %q", c.ID, t)
		}
	}

	var err error
	switch c.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", c.ID)
	case TypeSQS:
		err = required(c.SQS != nil, "sqs block")
		if err == nil {
			err = c.SQS.validate()
		}
	case TypeSNS:
		err = required(c.SNS != nil, "sns block")
		if err == nil {
			err = c.SNS.validate()
		}
	case TypeGCPPubSub:
		err = required(c.PubSub != nil, "gcp_pubsub block")
		if err == nil {
			err = c.PubSub.validate()
		}
	case TypeWebhook:
		err = required(c.Webhook != nil, "webhook block")
		if err == nil {
			err = c.Webhook.validate()
		}
	default:
		return fmt.Errorf("publisher %q: unsupported type %q", c.ID, c.Type)
	}
	if err != nil {
		return fmt.Errorf("publisher %q: %w", c.ID, err)
	}
	return nil
}

func (c Config) normalize() Config {
	c.ID = strings.TrimSpace(c.ID)
	c.Type = strings.ToLower(strings.TrimSpace(c.Type))
	c.Triggers = lo.Uniq(lo.FilterMap(c.Triggers, func(t string, _ int) (string, bool) {
		t = strings.ToLower(strings.TrimSpace(t))
		return t, t != ""
	}))

	if c.SQS != nil {
		s := *c.SQS
		s.QueueURL = strings.TrimSpace(s.QueueURL)
		s.Region = strings.TrimSpace(s.Region)
		s.Credentials = s.Credentials.normalize()
		c.SQS = &s
	}
	if c.SNS != nil {
		s := *c.SNS
		s.TopicARN = strings.TrimSpace(s.TopicARN)
		s.Region = strings.TrimSpace(s.Region)
		s.Credentials = s.Credentials.normalize()
		c.SNS = &s
	}
	if c.PubSub != nil {
		p := *c.PubSub
		p.ProjectID = strings.TrimSpace(p.ProjectID)
		p.Topic = strings.TrimSpace(p.Topic)
		p.CredentialsFile = strings.TrimSpace(p.CredentialsFile)
		c.PubSub = &p
	}
	if c.Webhook != nil {
		w := *c.Webhook
		w.URL = strings.TrimSpace(w.URL)
		w.Method = strings.ToUpper(strings.TrimSpace(w.Method))
		if w.Method == "" {
			w.Method = webhookDefaultMethod
		}
		if w.TimeoutSeconds <= 0 {
			w.TimeoutSeconds = webhookDefaultTimeout
		}
		w.Retries = min(max(w.Retries, 0), webhookMaxRetries)
		w.Headers = lo.PickBy(lo.MapEntries(w.Headers, func(k, v string) (string, string) {
			return strings.TrimSpace(k), strings.TrimSpace(v)
		}), func(k, v string) bool { return k != "" && v != "" })
		c.Webhook = &w
	}
	return c
}

// normalize drops credential blocks without a usable key pair.
func (c *AWSCredentials) normalize() *AWSCredentials {
	if c == nil {
		return nil
	}
	out := AWSCredentials{
		AccessKeyID:     strings.TrimSpace(c.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(c.SecretAccessKey),
		SessionToken:    strings.TrimSpace(c.SessionToken),
	}
	if out.AccessKeyID == "" || out.SecretAccessKey == "" {
		return nil
	}
	return &out
}

func (c *SQSConfig) validate() error {
	if err := required(c.QueueURL != "", "sqs.queue_url"); err != nil {
		return err
	}
	return required(c.Region != "", "sqs.region")
}

func (c *SNSConfig) validate() error {
	if err := required(strings.HasPrefix(c.TopicARN, "arn:"), "sns.topic_arn"); err != nil {
		return err
	}
	return required(c.Region != "", "sns.region")
}

func (c *PubSubConfig) validate() error {
	if err := required(c.ProjectID != "", "gcp_pubsub.project_id"); err != nil {
		return err
	}
	return required(c.Topic != "", "gcp_pubsub.topic")
}

func (c *WebhookConfig) validate() error {
	u, err := url.Parse(c.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("webhook.url %q must be an absolute http(s) URL", c.URL)
	}
	return nil
}

func required(ok bool, what string) error {
	if ok {
		return nil
	}
	return fmt.Errorf("%s is required", what)
}
