package solarforecast

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/scheduler"
	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// SiteHandler is the bridge that drives its planes and publishes their sums.
type SiteHandler struct {
	thing     thing.Thing
	uid       string
	callback  thing.Callback
	scheduler *scheduler.Scheduler
	home      thing.Point
	logger    *zap.Logger
	now       func() time.Time

	cfg      SiteConfig
	location thing.Point
	cancel   context.CancelFunc
	job      scheduler.Job

	mu     sync.Mutex
	planes []*PlaneHandler
}

// NewSiteHandler builds site bridge handler. The clock runs in zone, time.Local when nil.
func NewSiteHandler(t thing.Thing, callback thing.Callback, sched *scheduler.Scheduler, home thing.Point,
	zone *time.Location, logger *zap.Logger) *SiteHandler {
	if zone == nil {
		zone = time.Local
	}
	return &SiteHandler{
		thing:     t,
		uid:       t.UID.String(),
		callback:  callback,
		scheduler: sched,
		home:      home,
		logger:    logger,
		now:       func() time.Time { return time.Now().In(zone) },
	}
}

// Initialize resolves the location and starts the channel refresh.
func (s *SiteHandler) Initialize(ctx context.Context) {
	cfg := DefaultSiteConfig()
	if err := thing.DecodeConfig(s.thing.Config, &cfg); err != nil {
		s.callback.UpdateStatus(s.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	loc, err := cfg.ResolveLocation(s.home)
	if err != nil {
		s.callback.UpdateStatus(s.uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}
	s.cfg = cfg
	s.location = loc
	s.callback.UpdateStatus(s.uid, thing.StatusOnline, thing.DetailNone, "")

	refreshCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.job = s.scheduler.Every(s.uid, cfg.Interval(), func() { s.Refresh(refreshCtx) })
}

// Dispose stops the refresh.
func (s *SiteHandler) Dispose() {
	if s.job != nil {
		s.job.Cancel()
		s.job = nil
	}
	if s.cancel != nil {
		s.cancel()
	}
}

// HandleCommand triggers a refresh.
func (s *SiteHandler) HandleCommand(ctx context.Context, _ thing.ChannelUID, cmd thing.Command) {
	if _, ok := cmd.(thing.RefreshType); ok {
		s.Refresh(ctx)
	}
}

// AddPlane registers a plane.
func (s *SiteHandler) AddPlane(p *PlaneHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.planes = append(s.planes, p)
}

// RemovePlane unregisters a plane.
func (s *SiteHandler) RemovePlane(p *PlaneHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.planes {
		if existing == p {
			s.planes = append(s.planes[:i], s.planes[i+1:]...)
			return
		}
	}
}

// Refresh updates all planes and publishes the site totals.
func (s *SiteHandler) Refresh(ctx context.Context) {
	s.mu.Lock()
	planes := append([]*PlaneHandler(nil), s.planes...)
	s.mu.Unlock()
	if len(planes) == 0 {
		return
	}

	now := s.now()
	var actual, remaining, today, tomorrow sum
	for _, p := range planes {
		f := p.Update(ctx, now, s.location, s.cfg.APIKey)
		actual.add(f.ActualValue(now))
		remaining.add(f.RemainingProduction(now))
		today.add(f.DayTotal(now, 0))
		tomorrow.add(f.DayTotal(now, 1))
	}
	s.callback.UpdateState(s.channel(ChannelActual), actual.state())
	s.callback.UpdateState(s.channel(ChannelRemaining), remaining.state())
	s.callback.UpdateState(s.channel(ChannelToday), today.state())
	s.callback.UpdateState(s.channel(ChannelTomorrow), tomorrow.state())
}

func (s *SiteHandler) channel(id string) thing.ChannelUID {
	return thing.NewChannelUID(s.uid, "", id)
}

type sum struct {
	kwh   float64
	undef bool
}

func (s *sum) add(v float64) {
	if v < 0 {
		s.undef = true
		return
	}
	s.kwh += v
}

func (s sum) state() thing.State {
	if s.undef {
		return thing.Undef
	}
	return thing.NewQuantity(s.kwh, thing.UnitKilowattHour)
}
