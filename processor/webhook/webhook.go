// Package webhook implements a headless task processor calling out to HTTP endpoints.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/TincheHK/prefw/log/logkeys"
	"github.com/TincheHK/prefw/processor"
	"github.com/TincheHK/prefw/workflow"

	"github.com/micromdm/nanolib/log"
	"github.com/micromdm/nanolib/log/ctxlog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

// Endpoint is the task definition endpoint the processor is usually bound to.
const Endpoint = "webhook"

// ErrMissingURL is returned when neither the task nor the processor has a URL.
var ErrMissingURL = errors.New("missing webhook url")

// Payload is the JSON body sent to the webhook.
type Payload struct {
	WorkInstance string                 `json:"workInstance"`
	Task         string                 `json:"task"`
	Name         string                 `json:"name"`
	Version      string                 `json:"version"`
	Settings     map[string]interface{} `json:"settings,omitempty"`
	DataStore    map[string]interface{} `json:"dataStore"`
}

// Response is the optional JSON body returned by the webhook.
// DataStore entries are merged into the work instance data store.
type Response struct {
	DataStore map[string]interface{} `json:"dataStore"`
}

// Webhook POSTs the work instance data store to a URL.
// The task is fulfilled by a successful response and rejected
// otherwise. The call happens in the background; the task stays
// pending until it completes.
//
// The URL is taken from the task setting "url", falling back to the
// processor default.
type Webhook struct {
	client *http.Client
	url    string
	logger log.Logger
}

type Option func(*Webhook)

// WithClient sets the HTTP client.
func WithClient(client *http.Client) Option {
	return func(w *Webhook) {
		w.client = client
	}
}

// WithURL sets the default webhook URL.
func WithURL(url string) Option {
	return func(w *Webhook) {
		w.url = url
	}
}

// WithLogger sets the logger.
func WithLogger(logger log.Logger) Option {
	return func(w *Webhook) {
		w.logger = logger
	}
}

// New creates a new webhook processor.
func New(opts ...Option) *Webhook {
	w := &Webhook{
		client: &http.Client{Timeout: 15 * time.Second},
		logger: log.NopLogger,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Process implements workflow.Processor.
func (w *Webhook) Process(ctx context.Context, x *workflow.Execution) (*workflow.Promise, error) {
	url := processor.StringSetting(x.Task.Settings, "url")
	if url == "" {
		url = w.url
	}
	if url == "" {
		return nil, ErrMissingURL
	}
	body, err := json.Marshal(&Payload{
		WorkInstance: x.Task.WorkInstanceID,
		Task:         x.Task.ID,
		Name:         x.Task.Name,
		Version:      x.Task.Version,
		Settings:     x.Task.Settings,
		DataStore:    x.Data().Map(),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal webhook payload: %w", err)
	}
	go w.call(ctx, x, url, body)
	return x.Promise(), nil
}

func (w *Webhook) call(ctx context.Context, x *workflow.Execution, url string, body []byte) {
	ctx, span := otel.Tracer("github.com/TincheHK/prefw/processor/webhook").Start(ctx, "processor.webhook")
	defer span.End()
	span.SetAttributes(
		attribute.String("webhook.url", url),
		attribute.String("prefw.task_id", x.Task.ID),
	)
	logger := ctxlog.Logger(ctx, w.logger).With(
		logkeys.InstanceID, x.Task.WorkInstanceID,
		logkeys.TaskID, x.Task.ID,
	)

	reject := func(err error, status string, code int) {
		span.RecordError(err)
		span.SetStatus(codes.Error, status)
		logger.Info(logkeys.Message, "webhook", logkeys.Error, err)
		x.Reject(err.Error(), code)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		reject(fmt.Errorf("build webhook request: %w", err), "build request failed", 0)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := w.client.Do(req)
	if err != nil {
		reject(fmt.Errorf("webhook call to %s: %w", url, err), "http call failed", http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		reject(fmt.Errorf("webhook %s returned status %d", url, resp.StatusCode), "bad status code", resp.StatusCode)
		return
	}

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(bytes.TrimSpace(respBody)) > 0 {
		var r Response
		if err = json.Unmarshal(respBody, &r); err != nil {
			logger.Debug(logkeys.Message, "ignoring webhook response", logkeys.Error, err)
		} else {
			x.Data().Merge(r.DataStore)
		}
	}
	logger.Debug(logkeys.Message, "webhook called", "status", resp.StatusCode)
	x.Resolve()
}
