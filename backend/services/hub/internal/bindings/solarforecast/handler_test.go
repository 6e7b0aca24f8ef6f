package solarforecast

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/scheduler"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

func TestEstimatePath(t *testing.T) {
	plane := PlaneConfig{Declination: 14, Azimuth: -60, KWP: 5.5}
	loc := thing.Point{Lat: 54.321, Lon: 8.765}
	assert.Equal(t, "/estimate/54.321/8.765/14/-60/5.5", EstimatePath("", loc, plane))
	assert.Equal(t, "/secret/estimate/54.321/8.765/14/-60/5.5", EstimatePath("secret", loc, plane))
}

func TestPlaneConfigValidate(t *testing.T) {
	assert.Error(t, DefaultPlaneConfig().Validate())
	cfg := DefaultPlaneConfig()
	cfg.Declination, cfg.Azimuth, cfg.KWP = 30, 0, 4.2
	assert.NoError(t, cfg.Validate())
}

func TestSiteResolveLocation(t *testing.T) {
	home := thing.Point{Lat: 1, Lon: 2}
	loc, err := DefaultSiteConfig().ResolveLocation(home)
	require.NoError(t, err)
	assert.Equal(t, home, loc)

	loc, err = SiteConfig{Location: "54.321,8.765"}.ResolveLocation(home)
	require.NoError(t, err)
	assert.Equal(t, thing.Point{Lat: 54.321, Lon: 8.765}, loc)

	_, err = SiteConfig{Location: "north"}.ResolveLocation(home)
	assert.Error(t, err)
}

type fixture struct {
	reg   *thing.Registry
	site  *SiteHandler
	plane *PlaneHandler
	calls *int32
	sched *scheduler.Scheduler
}

func setup(t *testing.T, now time.Time) *fixture {
	t.Helper()
	content, err := os.ReadFile("testdata/result.json")
	require.NoError(t, err)
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/estimate/54.321/8.765/14/-60/5.5", r.URL.Path)
		_, _ = w.Write(content)
	}))
	t.Cleanup(srv.Close)

	siteUID, _ := thing.ParseUID("solarforecast:multi:home")
	planeUID, _ := thing.ParseUID("solarforecast:part:home:south")
	site := thing.Thing{UID: siteUID, Config: map[string]any{"location": "54.321,8.765"}}
	plane := thing.Thing{UID: planeUID, BridgeUID: siteUID.String(), Config: map[string]any{
		"declination": 14, "azimuth": -60, "kwp": 5.5, "refreshInterval": 30,
	}}

	reg := thing.NewRegistry(nil)
	reg.Add(site)
	reg.Add(plane)
	sched := scheduler.New(zap.NewNop())
	t.Cleanup(sched.Stop)

	f := NewFactory(NewClient(srv.URL, srv.Client()), reg, sched, thing.Point{}, cest, zap.NewNop())
	sh, err := f.CreateHandler(site, nil)
	require.NoError(t, err)
	ph, err := f.CreateHandler(plane, sh)
	require.NoError(t, err)

	fx := &fixture{reg: reg, site: sh.(*SiteHandler), plane: ph.(*PlaneHandler), calls: &calls, sched: sched}
	fx.site.now = func() time.Time { return now }
	return fx
}

func TestSiteAndPlaneChannels(t *testing.T) {
	fx := setup(t, at(16, 23))
	fx.plane.Initialize(context.Background())
	fx.site.Initialize(context.Background())
	defer fx.site.Dispose()
	defer fx.plane.Dispose()

	siteUID := fx.site.uid
	require.Eventually(t, func() bool {
		_, ok := fx.reg.State(thing.NewChannelUID(siteUID, "", ChannelActual))
		return ok
	}, 2*time.Second, 10*time.Millisecond)

	site, err := fx.reg.Channels(siteUID)
	require.NoError(t, err)
	assert.Equal(t, "46.98 kWh", site[ChannelActual].String())
	assert.Equal(t, "54.4 kWh", site[ChannelToday].String())
	assert.Equal(t, "48.765 kWh", site[ChannelTomorrow].String())

	plane, err := fx.reg.Channels(fx.plane.uid)
	require.NoError(t, err)
	assert.Equal(t, "46.98 kWh", plane[ChannelActual].String())
	assert.Contains(t, plane[ChannelRaw].String(), "watt_hours_day")

	st, _ := fx.reg.Status(fx.plane.uid)
	assert.Equal(t, thing.StatusOnline, st.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(fx.calls))
}

func TestPlaneUsesCacheWithinInterval(t *testing.T) {
	now := at(16, 23)
	fx := setup(t, now)
	fx.plane.Initialize(context.Background())
	fx.site.cfg = DefaultSiteConfig()
	fx.site.location = thing.Point{Lat: 54.321, Lon: 8.765}

	fx.site.Refresh(context.Background())
	fx.site.now = func() time.Time { return now.Add(10 * time.Minute) }
	fx.site.Refresh(context.Background())
	assert.Equal(t, int32(1), atomic.LoadInt32(fx.calls))

	st, _ := fx.reg.State(thing.NewChannelUID(fx.site.uid, "", ChannelActual))
	assert.Equal(t, "47.58 kWh", st.String())

	fx.site.now = func() time.Time { return now.Add(40 * time.Minute) }
	fx.site.Refresh(context.Background())
	assert.Equal(t, int32(2), atomic.LoadInt32(fx.calls))
}

func TestSiteClockUsesConfiguredZone(t *testing.T) {
	uid, _ := thing.ParseUID("solarforecast:multi:home")
	s := NewSiteHandler(thing.Thing{UID: uid}, thing.NewRegistry(nil), nil, thing.Point{}, cest, zap.NewNop())
	assert.Equal(t, cest, s.now().Location())

	s = NewSiteHandler(thing.Thing{UID: uid}, thing.NewRegistry(nil), nil, thing.Point{}, nil, zap.NewNop())
	assert.Equal(t, time.Local, s.now().Location())
}

func TestForecastReadInConfiguredZone(t *testing.T) {
	content, err := os.ReadFile("testdata/result.json")
	require.NoError(t, err)
	instant := at(16, 23).UTC()

	local, err := NewForecast(content, instant.In(cest))
	require.NoError(t, err)
	assert.InDelta(t, 46.98, local.ActualValue(instant.In(cest)), 0.001)

	utc, err := NewForecast(content, instant)
	require.NoError(t, err)
	assert.NotEqual(t, StateOf(local.ActualValue(instant.In(cest))).String(), StateOf(utc.ActualValue(instant)).String())
}

func TestPlaneRefreshKeepsForecastZone(t *testing.T) {
	fx := setup(t, at(16, 23))
	fx.plane.Initialize(context.Background())
	fx.site.cfg = DefaultSiteConfig()
	fx.site.location = thing.Point{Lat: 54.321, Lon: 8.765}
	fx.site.Refresh(context.Background())

	fx.plane.mu.Lock()
	f := fx.plane.forecast
	fx.plane.mu.Unlock()
	require.NotNil(t, f)
	assert.Equal(t, cest, f.built.Location())
}

func TestSiteSumUndefined(t *testing.T) {
	var s sum
	s.add(1.5)
	s.add(2)
	assert.Equal(t, "3.5 kWh", s.state().String())
	s.add(-1)
	assert.Equal(t, thing.Undef, s.state())
}

func TestPlaneWithoutBridge(t *testing.T) {
	reg := thing.NewRegistry(nil)
	uid, _ := thing.ParseUID("solarforecast:part:home:south")
	th := thing.Thing{UID: uid, Config: map[string]any{"declination": 14, "azimuth": -60, "kwp": 5.5}}
	reg.Add(th)
	h := NewPlaneHandler(th, nil, NewClient("", http.DefaultClient), reg, zap.NewNop())
	h.Initialize(context.Background())
	st, _ := reg.Status(uid.String())
	assert.Equal(t, thing.StatusOffline, st.Status)
	assert.Equal(t, thing.DetailBridgeOffline, st.Detail)
}
