package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// Errors returned by ThingManager.
var (
	ErrUnknownBinding  = errors.New("service: unknown binding")
	ErrNoDiscovery     = errors.New("service: binding has no discovery")
	ErrHandlerNotFound = errors.New("service: no handler for thing")
)

// ThingManager creates handlers for configured things and routes commands to them.
type ThingManager struct {
	registry  *thing.Registry
	logger    *zap.Logger
	factories map[string]thing.HandlerFactory
	discovery map[string]thing.DiscoveryService

	mu       sync.RWMutex
	things   []thing.Thing
	handlers map[string]thing.Handler
	order    []string
}

// NewThingManager builds manager on top of registry.
func NewThingManager(registry *thing.Registry, logger *zap.Logger) *ThingManager {
	return &ThingManager{
		registry:  registry,
		logger:    logger,
		factories: make(map[string]thing.HandlerFactory),
		discovery: make(map[string]thing.DiscoveryService),
		handlers:  make(map[string]thing.Handler),
	}
}

// RegisterFactory adds handler factory for its binding.
func (m *ThingManager) RegisterFactory(f thing.HandlerFactory) {
	m.factories[f.Binding()] = f
}

// RegisterDiscovery adds discovery service for binding.
func (m *ThingManager) RegisterDiscovery(binding string, d thing.DiscoveryService) {
	m.discovery[binding] = d
}

// Bindings returns registered binding ids sorted.
func (m *ThingManager) Bindings() []string {
	result := make([]string, 0, len(m.factories))
	for id := range m.factories {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// Load registers things with the registry without starting handlers.
func (m *ThingManager) Load(things []thing.Thing) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range things {
		m.registry.Add(t)
		m.things = append(m.things, t)
	}
}

// Start creates and initializes handlers. Bridges are started before the things
// that reference them; a thing whose bridge never comes up gets BRIDGE_OFFLINE.
func (m *ThingManager) Start(ctx context.Context) {
	m.mu.Lock()
	pending := append([]thing.Thing(nil), m.things...)
	m.mu.Unlock()

	for len(pending) > 0 {
		var deferred []thing.Thing
		for _, t := range pending {
			if t.BridgeUID != "" && !m.knows(t.BridgeUID) && m.configured(t.BridgeUID, pending) {
				deferred = append(deferred, t)
				continue
			}
			m.start(ctx, t)
		}
		if len(deferred) == len(pending) {
			for _, t := range deferred {
				m.registry.UpdateStatus(t.UID.String(), thing.StatusOffline, thing.DetailBridgeOffline, "bridge cycle")
			}
			return
		}
		pending = deferred
	}
}

func (m *ThingManager) knows(uid string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.handlers[uid]
	return ok
}

func (m *ThingManager) configured(uid string, things []thing.Thing) bool {
	for _, t := range things {
		if t.UID.String() == uid {
			return true
		}
	}
	return false
}

func (m *ThingManager) start(ctx context.Context, t thing.Thing) {
	uid := t.UID.String()
	factory, ok := m.factories[t.UID.Binding]
	if !ok {
		m.logger.Warn("no factory for thing", zap.String("thing", uid), zap.String("binding", t.UID.Binding))
		m.registry.UpdateStatus(uid, thing.StatusOffline, thing.DetailConfigurationError, "unknown binding "+t.UID.Binding)
		return
	}

	m.mu.RLock()
	bridge := m.handlers[t.BridgeUID]
	m.mu.RUnlock()

	h, err := factory.CreateHandler(t, bridge)
	if err != nil {
		m.logger.Warn("create handler failed", zap.String("thing", uid), zap.Error(err))
		m.registry.UpdateStatus(uid, thing.StatusOffline, thing.DetailConfigurationError, err.Error())
		return
	}

	m.mu.Lock()
	m.handlers[uid] = h
	m.order = append(m.order, uid)
	m.mu.Unlock()

	h.Initialize(ctx)
	m.logger.Info("thing started", zap.String("thing", uid))
}

// Handler returns the running handler of a thing.
func (m *ThingManager) Handler(uid string) (thing.Handler, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	h, ok := m.handlers[uid]
	return h, ok
}

// HandleCommand parses raw command and sends it to the channel's thing.
func (m *ThingManager) HandleCommand(ctx context.Context, channel, raw string) error {
	cuid, err := thing.ParseChannelUID(channel)
	if err != nil {
		return err
	}
	h, ok := m.Handler(cuid.Thing)
	if !ok {
		return fmt.Errorf("%w: %s", ErrHandlerNotFound, cuid.Thing)
	}
	h.HandleCommand(ctx, cuid, thing.ParseCommand(raw))
	return nil
}

// Scan runs the discovery service of binding.
func (m *ThingManager) Scan(ctx context.Context, binding string) error {
	if _, ok := m.factories[binding]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBinding, binding)
	}
	d, ok := m.discovery[binding]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoDiscovery, binding)
	}
	return d.StartScan(ctx)
}

// Close disposes handlers in reverse start order.
func (m *ThingManager) Close() {
	m.mu.Lock()
	order := m.order
	handlers := m.handlers
	m.order = nil
	m.handlers = make(map[string]thing.Handler)
	m.mu.Unlock()

	for i := len(order) - 1; i >= 0; i-- {
		handlers[order[i]].Dispose()
	}
}
