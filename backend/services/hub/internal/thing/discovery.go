package thing

import (
	"sort"
	"sync"
	"time"
)

// DiscoveryResult describes a thing found by a discovery service.
type DiscoveryResult struct {
	ThingUID               string            `json:"thing_uid"`
	BridgeUID              string            `json:"bridge_uid,omitempty"`
	Label                  string            `json:"label"`
	Properties             map[string]string `json:"properties,omitempty"`
	RepresentationProperty string            `json:"representation_property,omitempty"`
	Timestamp              time.Time         `json:"timestamp"`
}

// Inbox collects discovery results. A later result for the same thing, or with the
// same representation property value, replaces the earlier one.
type Inbox struct {
	mu      sync.RWMutex
	results map[string]DiscoveryResult
}

// NewInbox returns empty inbox.
func NewInbox() *Inbox {
	return &Inbox{results: make(map[string]DiscoveryResult)}
}

// Add stores result.
func (i *Inbox) Add(result DiscoveryResult) {
	if result.Timestamp.IsZero() {
		result.Timestamp = time.Now()
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if key := result.representation(); key != "" {
		for uid, existing := range i.results {
			if uid != result.ThingUID && existing.representation() == key {
				delete(i.results, uid)
			}
		}
	}
	i.results[result.ThingUID] = result
}

// Remove drops a result.
func (i *Inbox) Remove(thingUID string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	delete(i.results, thingUID)
}

// Results returns all results sorted by thing UID.
func (i *Inbox) Results() []DiscoveryResult {
	i.mu.RLock()
	defer i.mu.RUnlock()
	out := make([]DiscoveryResult, 0, len(i.results))
	for _, r := range i.results {
		out = append(out, r)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].ThingUID < out[b].ThingUID })
	return out
}

func (r DiscoveryResult) representation() string {
	if r.RepresentationProperty == "" {
		return ""
	}
	v := r.Properties[r.RepresentationProperty]
	if v == "" {
		return ""
	}
	return r.RepresentationProperty + "=" + v
}
