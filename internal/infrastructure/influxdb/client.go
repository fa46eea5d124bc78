package influxdb

import (
	"context"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/afkloop/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 10 * time.Second
	defaultPingTimeout    = 5 * time.Second

	// A run writes a handful of points per match, so batches stay small and
	// the interval bounds how stale a dashboard gets mid-match.
	defaultBatchSize     = 50
	defaultFlushInterval = 10 * time.Second
)

// Logger is satisfied by logging.Logger and slog.Logger.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// pointWriter is the part of api.WriteAPI the client drives.
type pointWriter interface {
	WritePoint(p *write.Point)
	Flush()
	Errors() <-chan error
}

// Client records run metrics in InfluxDB.
//
// Points are batched by size and interval. A finished match or a stalled
// stage asks for an early flush, so those show up on a dashboard at once
// while routine dwell and calibration points wait for the batch.
//
// Thread Safety:
//   - All methods are safe for concurrent use from multiple goroutines.
//   - Writes never wait for the server. Flushing runs on its own goroutine.
type Client struct {
	server influxdb2.Client
	points pointWriter

	flush chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup

	mu     sync.RWMutex
	open   bool
	logger Logger
}

// Connect pings the server and opens the batched write API.
//
// Parameters:
//   - cfg: InfluxDB section of config.yaml
//
// Returns:
//   - *Client: Connected client
//   - error: ErrDisabled, or ErrConnectionFailed wrapped with the cause
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	server := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, writeOptions(cfg))

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	healthy, err := server.Ping(ctx)
	if err != nil {
		server.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		server.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	c := newClient(server.WriteAPI(cfg.Org, cfg.Bucket))
	c.server = server
	return c, nil
}

// writeOptions maps the batch settings onto the write API. Non-positive
// values fall back to 50 points and 10 s.
func writeOptions(cfg config.InfluxDBConfig) *influxdb2.Options {
	batch := uint(defaultBatchSize)
	if cfg.BatchSize > 0 {
		batch = uint(cfg.BatchSize)
	}
	interval := defaultFlushInterval
	if cfg.FlushInterval > 0 {
		interval = time.Duration(cfg.FlushInterval) * time.Second
	}
	// #nosec G115 -- interval is positive
	return influxdb2.DefaultOptions().
		SetBatchSize(batch).
		SetFlushInterval(uint(interval.Milliseconds()))
}

// newClient starts the flush and error goroutines over points.
func newClient(points pointWriter) *Client {
	c := &Client{
		points: points,
		flush:  make(chan struct{}, 1),
		done:   make(chan struct{}),
		open:   true,
		logger: noopLogger{},
	}
	// Errors must be taken before the first write, and drained until the
	// write API closes it or the writer blocks.
	go c.logErrors(points.Errors())
	c.wg.Add(1)
	go c.flushLoop()
	return c
}

// flushLoop sends the batch whenever an early flush is requested.
func (c *Client) flushLoop() {
	defer c.wg.Done()
	for {
		select {
		case <-c.flush:
			c.points.Flush()
		case <-c.done:
			return
		}
	}
}

func (c *Client) logErrors(errs <-chan error) {
	for err := range errs {
		c.log().Warn("InfluxDB write failed", "error", err)
	}
}

// Close stops the flush goroutine, sends what is still batched and closes
// the client. Later writes are dropped.
func (c *Client) Close() error {
	c.mu.Lock()
	if !c.open {
		c.mu.Unlock()
		return nil
	}
	c.open = false
	c.mu.Unlock()

	close(c.done)
	c.wg.Wait()
	c.points.Flush()
	if c.server != nil {
		c.server.Close()
	}
	return nil
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.IsConnected() || c.server == nil {
		return ErrNotConnected
	}

	checkCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	healthy, err := c.server.Ping(checkCtx)
	if err != nil {
		return fmt.Errorf("influxdb health check failed: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check failed: server not healthy")
	}
	return nil
}

// IsConnected reports whether Close has not yet been called.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.open
}

// SetLogger sets the logger for background write failures.
func (c *Client) SetLogger(logger Logger) {
	if logger == nil {
		return
	}
	c.mu.Lock()
	c.logger = logger
	c.mu.Unlock()
}

func (c *Client) log() Logger {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.logger
}
