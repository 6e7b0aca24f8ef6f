package influxdb

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

func stateEvent(channel string, st thing.State, at time.Time) thing.Event {
	kind, value := thing.EncodeState(st)
	return thing.Event{
		Type:    thing.EventState,
		Thing:   "solarforecast:part:home:south",
		Channel: channel,
		Kind:    kind,
		Value:   value,
		State:   st,
		Time:    at,
	}
}

func TestPoint(t *testing.T) {
	at := time.Unix(1658067780, 0)
	p, ok := Point(stateEvent("solarforecast:part:home:south:actual", thing.NewQuantity(46.98, thing.UnitKilowattHour), at))
	require.True(t, ok)
	line := write.PointToLineProtocol(p, time.Second)
	assert.True(t, strings.HasPrefix(line, Measurement+",binding=solarforecast,channel=solarforecast:part:home:south:actual,"))
	assert.Contains(t, line, "unit=kWh")
	assert.Contains(t, line, "value=46.98")
	assert.Contains(t, line, "1658067780")

	_, ok = Point(stateEvent("solarforecast:part:home:south:raw", thing.String("{}"), at))
	assert.False(t, ok)
	_, ok = Point(thing.Event{Type: thing.EventStatus, Thing: "solarforecast:part:home:south"})
	assert.False(t, ok)
}

func TestClientWritesNumericStates(t *testing.T) {
	var (
		mu    sync.Mutex
		lines []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"name":"influxdb","message":"ready for queries and writes","status":"pass","checks":[],"version":"2.7.1","commit":"x"}`))
		case "/api/v2/write":
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			lines = append(lines, string(body))
			mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c, err := NewClient(context.Background(), Config{URL: srv.URL, Token: "t", Org: "home", Bucket: "hub"}, zap.NewNop())
	require.NoError(t, err)
	defer c.Close()

	c.HandleEvent(stateEvent("solarforecast:part:home:south:today", thing.NewQuantity(54.4, thing.UnitKilowattHour), time.Now()))
	c.HandleEvent(stateEvent("solarforecast:part:home:south:raw", thing.String("{}"), time.Now()))
	c.Flush()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(lines) == 1 && strings.Contains(lines[0], "value=54.4") && !strings.Contains(lines[0], ":raw")
	}, 2*time.Second, 20*time.Millisecond)
}
