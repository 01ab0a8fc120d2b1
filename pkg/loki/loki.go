package loki

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-playground/validator/v10"
)

type Logger interface {
	Error(msg string, args ...any)
}

type Config struct {
	// Url of the loki push endpoint, e.g. https://example-prod.grafana.net/loki/api/v1/push
	Url string `validate:"required,url"`

	// BatchMaxSize is the maximum number of log lines sent in one request.
	BatchMaxSize int `validate:"gte=1"`

	// BatchMaxWait is the maximum time a line waits in the batch.
	BatchMaxWait time.Duration `validate:"gte=1"`

	// BufferSize bounds entries queued for the batching goroutine. Entries beyond it are dropped.
	BufferSize int `validate:"gte=1"`

	// Labels are attached to every stream.
	Labels map[string]string

	// TenantKey and TenantValue set a tenant header for multi-tenant installations. Optional.
	TenantKey   string
	TenantValue string

	// Username and Password enable basic auth. Optional.
	Username string
	Password string
}

func (cfg *Config) setDefaults() {
	if cfg.BatchMaxSize == 0 {
		cfg.BatchMaxSize = 500
	}
	if cfg.BatchMaxWait == 0 {
		cfg.BatchMaxWait = 5 * time.Second
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = 1024
	}
	if cfg.Labels == nil {
		cfg.Labels = map[string]string{}
	}
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// LogEntry is one log line. Lines are grouped into streams by level.
type LogEntry struct {
	Level   string            `json:"level"`
	Message string            `json:"msg"`
	Caller  string            `json:"caller,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
	Time    time.Time         `json:"-"`
}

type Pusher struct {
	config  Config
	ctx     context.Context
	cancel  context.CancelFunc
	client  HTTPClient
	entries chan LogEntry
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
	logger  Logger
}

type pushRequest struct {
	Streams []stream `json:"streams"`
}

type stream struct {
	Stream map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

func New(ctx context.Context, cfg Config, logger Logger) (*Pusher, error) {
	cfg.setDefaults()
	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	p := &Pusher{
		config:  cfg,
		ctx:     ctx,
		cancel:  cancel,
		client:  &http.Client{Timeout: 10 * time.Second},
		entries: make(chan LogEntry, cfg.BufferSize),
		done:    make(chan struct{}),
		logger:  logger,
	}

	go p.run()
	return p, nil
}

func (p *Pusher) SetHTTPClient(client HTTPClient) {
	p.client = client
}

// Push queues an entry without blocking the caller.
func (p *Pusher) Push(e LogEntry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	select {
	case p.entries <- e:
		return nil
	default:
		p.dropped.Add(1)
		return fmt.Errorf("loki buffer is full, entry dropped")
	}
}

// Dropped returns the number of entries discarded because the buffer was full.
func (p *Pusher) Dropped() int64 {
	return p.dropped.Load()
}

// Stop flushes queued entries and stops the pusher.
func (p *Pusher) Stop() {
	p.once.Do(func() {
		close(p.entries)
		<-p.done
		p.cancel()
	})
}

func (p *Pusher) run() {
	defer close(p.done)

	ticker := time.NewTicker(p.config.BatchMaxWait)
	defer ticker.Stop()

	batch := make([]LogEntry, 0, p.config.BatchMaxSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := p.send(batch); err != nil {
			p.logger.Error("failed to send logs", "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-p.ctx.Done():
			return
		case entry, ok := <-p.entries:
			if !ok {
				flush()
				return
			}
			batch = append(batch, entry)
			if len(batch) >= p.config.BatchMaxSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func (p *Pusher) buildRequest(batch []LogEntry) pushRequest {
	byLevel := map[string]int{}
	var streams []stream

	for _, entry := range batch {
		line, err := json.Marshal(entry)
		if err != nil {
			continue
		}
		idx, ok := byLevel[entry.Level]
		if !ok {
			labels := make(map[string]string, len(p.config.Labels)+1)
			for k, v := range p.config.Labels {
				labels[k] = v
			}
			labels["level"] = entry.Level
			streams = append(streams, stream{Stream: labels})
			idx = len(streams) - 1
			byLevel[entry.Level] = idx
		}
		streams[idx].Values = append(streams[idx].Values,
			[2]string{strconv.FormatInt(entry.Time.UnixNano(), 10), string(line)})
	}

	return pushRequest{Streams: streams}
}

func (p *Pusher) send(batch []LogEntry) error {
	buf := &bytes.Buffer{}
	gz := gzip.NewWriter(buf)

	if err := json.NewEncoder(gz).Encode(p.buildRequest(batch)); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(p.ctx, http.MethodPost, p.config.Url, buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Content-Encoding", "gzip")
	if p.config.TenantKey != "" {
		req.Header.Set(p.config.TenantKey, p.config.TenantValue)
	}
	if p.config.Username != "" && p.config.Password != "" {
		req.SetBasicAuth(p.config.Username, p.config.Password)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected response code from loki: %s, body: %s", resp.Status, string(body))
	}

	return nil
}
