package influxdb

import (
	"context"
	"fmt"
	"strings"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// Measurement written for numeric channel states.
const Measurement = "channel_state"

// Config selects the InfluxDB v2 target.
type Config struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// Client writes numeric channel states as time series.
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	logger   *zap.Logger
	done     chan struct{}
}

// NewClient connects to InfluxDB and verifies it with a health check.
func NewClient(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("influxdb health: %w", err)
	}
	c := &Client{
		client:   client,
		writeAPI: client.WriteAPI(cfg.Org, cfg.Bucket),
		logger:   logger,
		done:     make(chan struct{}),
	}
	go c.logErrors()
	return c, nil
}

func (c *Client) logErrors() {
	errs := c.writeAPI.Errors()
	for {
		select {
		case <-c.done:
			return
		case err, ok := <-errs:
			if !ok {
				return
			}
			c.logger.Warn("influxdb write failed", zap.Error(err))
		}
	}
}

// Point converts a state event into a point, false when the state is not numeric.
func Point(ev thing.Event) (*write.Point, bool) {
	if ev.Type != thing.EventState || ev.State == nil {
		return nil, false
	}
	value, ok := thing.Numeric(ev.State)
	if !ok {
		return nil, false
	}
	binding, _, _ := strings.Cut(ev.Thing, ":")
	tags := map[string]string{
		"binding": binding,
		"thing":   ev.Thing,
		"channel": ev.Channel,
	}
	if q, ok := ev.State.(thing.Quantity); ok {
		tags["unit"] = q.Unit
	}
	return write.NewPoint(Measurement, tags, map[string]interface{}{"value": value}, ev.Time), true
}

// HandleEvent writes numeric state events.
func (c *Client) HandleEvent(ev thing.Event) {
	if p, ok := Point(ev); ok {
		c.writeAPI.WritePoint(p)
	}
}

// Flush forces pending writes.
func (c *Client) Flush() {
	c.writeAPI.Flush()
}

// Close flushes and closes the client.
func (c *Client) Close() {
	c.writeAPI.Flush()
	close(c.done)
	c.client.Close()
}
