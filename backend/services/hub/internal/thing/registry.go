package thing

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned for unknown things.
var ErrNotFound = errors.New("thing: not found")

// Event types.
const (
	EventState  = "state"
	EventStatus = "status"
)

// Event is emitted for every state or status change.
type Event struct {
	Type        string       `json:"type"`
	Thing       string       `json:"thing"`
	Channel     string       `json:"channel,omitempty"`
	Kind        string       `json:"kind,omitempty"`
	Value       string       `json:"value,omitempty"`
	Status      Status       `json:"status,omitempty"`
	Detail      StatusDetail `json:"detail,omitempty"`
	Description string       `json:"description,omitempty"`
	Time        time.Time    `json:"time"`

	State State `json:"-"`
}

// Listener receives registry events one at a time, in the order the updates were
// applied. HandleEvent must not call back into UpdateState or UpdateStatus.
type Listener interface {
	HandleEvent(ev Event)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ev Event)

// HandleEvent calls f.
func (f ListenerFunc) HandleEvent(ev Event) { f(ev) }

type runtimeThing struct {
	thing    Thing
	status   StatusInfo
	channels map[string]State
}

// Snapshot is a copy of a thing's runtime data.
type Snapshot struct {
	UID      string            `json:"uid"`
	Label    string            `json:"label"`
	Bridge   string            `json:"bridge,omitempty"`
	Status   StatusInfo        `json:"status"`
	Channels map[string]string `json:"channels"`
}

// Registry keeps track of things, their status and last channel states.
type Registry struct {
	// emitMu is held from store through dispatch so listeners see updates in store order.
	emitMu    sync.Mutex
	mu        sync.RWMutex
	things    map[string]*runtimeThing
	listeners []Listener
	inbox     *Inbox
	now       func() time.Time
}

// NewRegistry returns registry reporting discoveries into inbox.
func NewRegistry(inbox *Inbox) *Registry {
	if inbox == nil {
		inbox = NewInbox()
	}
	return &Registry{
		things: make(map[string]*runtimeThing),
		inbox:  inbox,
		now:    time.Now,
	}
}

// AddListener registers l for future events.
func (r *Registry) AddListener(l Listener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, l)
}

// Add registers a thing with UNKNOWN status.
func (r *Registry) Add(t Thing) {
	r.mu.Lock()
	defer r.mu.Unlock()
	uid := t.UID.String()
	if existing, ok := r.things[uid]; ok {
		existing.thing = t
		return
	}
	r.things[uid] = &runtimeThing{
		thing:    t,
		status:   StatusInfo{Status: StatusUnknown, Detail: DetailNone},
		channels: make(map[string]State),
	}
}

// Remove forgets a thing.
func (r *Registry) Remove(uid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.things, uid)
}

// Inbox returns the discovery inbox.
func (r *Registry) Inbox() *Inbox {
	return r.inbox
}

// UpdateState stores the state and notifies listeners.
func (r *Registry) UpdateState(channel ChannelUID, state State) {
	if state == nil {
		state = Undef
	}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.mu.Lock()
	rt, ok := r.things[channel.Thing]
	if !ok {
		r.mu.Unlock()
		return
	}
	rt.channels[channel.IDWithGroup()] = state
	listeners := r.listeners
	r.mu.Unlock()

	kind, value := EncodeState(state)
	r.emit(listeners, Event{
		Type:    EventState,
		Thing:   channel.Thing,
		Channel: channel.String(),
		Kind:    kind,
		Value:   value,
		State:   state,
		Time:    r.now(),
	})
}

// UpdateStatus stores the status and notifies listeners when it changed.
func (r *Registry) UpdateStatus(thingUID string, status Status, detail StatusDetail, description string) {
	info := StatusInfo{Status: status, Detail: detail, Description: description}
	r.emitMu.Lock()
	defer r.emitMu.Unlock()
	r.mu.Lock()
	rt, ok := r.things[thingUID]
	if !ok || rt.status == info {
		r.mu.Unlock()
		return
	}
	rt.status = info
	listeners := r.listeners
	r.mu.Unlock()

	r.emit(listeners, Event{
		Type:        EventStatus,
		Thing:       thingUID,
		Status:      status,
		Detail:      detail,
		Description: description,
		Time:        r.now(),
	})
}

// ThingDiscovered forwards the result to the inbox.
func (r *Registry) ThingDiscovered(result DiscoveryResult) {
	r.inbox.Add(result)
}

// Restore sets a persisted state without emitting events.
func (r *Registry) Restore(channel ChannelUID, state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.things[channel.Thing]
	if !ok {
		return
	}
	rt.channels[channel.IDWithGroup()] = state
}

// Status returns the current status of a thing.
func (r *Registry) Status(uid string) (StatusInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.things[uid]
	if !ok {
		return StatusInfo{}, ErrNotFound
	}
	return rt.status, nil
}

// State returns the last state of a channel.
func (r *Registry) State(channel ChannelUID) (State, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.things[channel.Thing]
	if !ok {
		return nil, false
	}
	st, ok := rt.channels[channel.IDWithGroup()]
	return st, ok
}

// Channels returns a copy of all channel states of a thing.
func (r *Registry) Channels(uid string) (map[string]State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.things[uid]
	if !ok {
		return nil, ErrNotFound
	}
	result := make(map[string]State, len(rt.channels))
	for id, st := range rt.channels {
		result[id] = st
	}
	return result, nil
}

// Snapshot returns copies of all things sorted by UID.
func (r *Registry) Snapshot() []Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Snapshot, 0, len(r.things))
	for uid, rt := range r.things {
		snap := Snapshot{
			UID:      uid,
			Label:    rt.thing.Label,
			Bridge:   rt.thing.BridgeUID,
			Status:   rt.status,
			Channels: make(map[string]string, len(rt.channels)),
		}
		for id, st := range rt.channels {
			snap.Channels[id] = st.String()
		}
		result = append(result, snap)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].UID < result[j].UID })
	return result
}

func (r *Registry) emit(listeners []Listener, ev Event) {
	for _, l := range listeners {
		l.HandleEvent(ev)
	}
}
