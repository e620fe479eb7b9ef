// Package notify delivers lifecycle event notifications to interested
// parties such as project owners and moderation tooling. Delivery is
// best-effort and decoupled from the transition itself: a transition commits
// whether or not any notification goes out, and a failed send is logged and
// dropped rather than retried into the caller's path. The package supports
// multiple simultaneous destinations (kafka, webhook, file) via the Notifier
// interface.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"
)

// Event represents a project lifecycle notification
type Event struct {
	Kind        string    `json:"kind"`
	ProjectID   string    `json:"project_id"`
	ProjectName string    `json:"project_name"`
	FromStatus  string    `json:"from_status,omitempty"`
	ToStatus    string    `json:"to_status,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	ActorID     string    `json:"actor_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// Event kinds emitted by the lifecycle service and background jobs.
const (
	KindQuarantineEntered  = "project.quarantine_entered"
	KindQuarantineCleared  = "project.quarantine_cleared"
	KindQuarantineReminder = "project.quarantine_reminder"
)

// Notifier defines the interface for notification delivery
type Notifier interface {
	// Notify sends an event to the destination
	Notify(ctx context.Context, event *Event) error
	// Close cleans up any resources
	Close() error
}

// Config holds configuration for a single notifier destination
type Config struct {
	// Enabled determines if this notifier is active
	Enabled bool `json:"enabled"`
	// Type is the notifier type (kafka, webhook, file)
	Type string `json:"type"`
	// Kafka configuration
	Kafka *KafkaConfig `json:"kafka,omitempty"`
	// Webhook configuration
	Webhook *WebhookConfig `json:"webhook,omitempty"`
	// File configuration
	File *FileConfig `json:"file,omitempty"`
}

// MultiNotifier fans an event out to multiple destinations
type MultiNotifier struct {
	notifiers []Notifier
	logger    *slog.Logger
	mu        sync.RWMutex
}

// NewMultiNotifier creates a multi-notifier from configs
func NewMultiNotifier(configs []Config, logger *slog.Logger) (*MultiNotifier, error) {
	mn := &MultiNotifier{
		notifiers: make([]Notifier, 0),
		logger:    logger,
	}

	for _, cfg := range configs {
		if !cfg.Enabled {
			continue
		}

		var notifier Notifier
		var err error

		switch cfg.Type {
		case "kafka":
			if cfg.Kafka == nil {
				return nil, fmt.Errorf("kafka config is required for kafka notifier")
			}
			notifier = NewKafkaNotifier(cfg.Kafka)
		case "webhook":
			if cfg.Webhook == nil {
				return nil, fmt.Errorf("webhook config is required for webhook notifier")
			}
			notifier = NewWebhookNotifier(cfg.Webhook)
		case "file":
			if cfg.File == nil {
				return nil, fmt.Errorf("file config is required for file notifier")
			}
			notifier, err = NewFileNotifier(cfg.File)
		default:
			return nil, fmt.Errorf("unknown notifier type: %s", cfg.Type)
		}

		if err != nil {
			return nil, fmt.Errorf("failed to create %s notifier: %w", cfg.Type, err)
		}

		mn.notifiers = append(mn.notifiers, notifier)
	}

	return mn, nil
}

// Notify sends an event to all configured destinations. A destination that
// fails does not stop delivery to the others.
func (mn *MultiNotifier) Notify(ctx context.Context, event *Event) error {
	mn.mu.RLock()
	defer mn.mu.RUnlock()

	var lastErr error
	for _, n := range mn.notifiers {
		if err := n.Notify(ctx, event); err != nil {
			lastErr = err
			mn.logger.Warn("notification delivery failed",
				"kind", event.Kind,
				"project", event.ProjectName,
				"error", err)
		}
	}
	return lastErr
}

// Close closes all notifiers
func (mn *MultiNotifier) Close() error {
	mn.mu.Lock()
	defer mn.mu.Unlock()

	var lastErr error
	for _, n := range mn.notifiers {
		if err := n.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// WebhookConfig holds webhook notifier configuration
type WebhookConfig struct {
	// URL is the webhook endpoint
	URL string `json:"url"`
	// Headers are additional HTTP headers to send
	Headers map[string]string `json:"headers,omitempty"`
	// Timeout is the HTTP request timeout
	Timeout time.Duration `json:"timeout"`
}

// WebhookNotifier posts events to an HTTP endpoint as JSON
type WebhookNotifier struct {
	cfg    *WebhookConfig
	client *http.Client
}

// NewWebhookNotifier creates a new webhook notifier
func NewWebhookNotifier(cfg *WebhookConfig) *WebhookNotifier {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &WebhookNotifier{
		cfg: cfg,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Notify posts the event to the webhook
func (wn *WebhookNotifier) Notify(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", wn.cfg.URL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range wn.cfg.Headers {
		req.Header.Set(k, v)
	}

	resp, err := wn.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// Close is a no-op for webhook notifiers
func (wn *WebhookNotifier) Close() error {
	return nil
}

// FileConfig holds file notifier configuration
type FileConfig struct {
	// Path is the event log file path
	Path string `json:"path"`
}

// FileNotifier appends events to a file as JSON lines
type FileNotifier struct {
	file *os.File
	mu   sync.Mutex
}

// NewFileNotifier creates a new file notifier
func NewFileNotifier(cfg *FileConfig) (*FileNotifier, error) {
	file, err := os.OpenFile(cfg.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open notification file: %w", err)
	}

	return &FileNotifier{file: file}, nil
}

// Notify writes the event to the file
func (fn *FileNotifier) Notify(ctx context.Context, event *Event) error {
	fn.mu.Lock()
	defer fn.mu.Unlock()

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := fn.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}

// Close closes the file
func (fn *FileNotifier) Close() error {
	fn.mu.Lock()
	defer fn.mu.Unlock()
	return fn.file.Close()
}

// LogNotifier writes events to the application logger. Used as the default
// destination when no external notifier is configured.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a notifier backed by slog
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs the event
func (ln *LogNotifier) Notify(ctx context.Context, event *Event) error {
	ln.logger.Info("lifecycle notification",
		"kind", event.Kind,
		"project", event.ProjectName,
		"from", event.FromStatus,
		"to", event.ToStatus,
		"reason", event.Reason,
		"actor", event.ActorID)
	return nil
}

// Close is a no-op for log notifiers
func (ln *LogNotifier) Close() error {
	return nil
}
