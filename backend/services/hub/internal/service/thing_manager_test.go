package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeHandler struct {
	uid    string
	bridge thing.Handler
	rec    *recorder
	cmds   []string
}

func (h *fakeHandler) Initialize(context.Context) { h.rec.add("init " + h.uid) }
func (h *fakeHandler) Dispose()                   { h.rec.add("dispose " + h.uid) }
func (h *fakeHandler) HandleCommand(_ context.Context, ch thing.ChannelUID, cmd thing.Command) {
	h.cmds = append(h.cmds, ch.IDWithGroup()+"="+cmd.String())
}

type fakeFactory struct {
	rec *recorder
}

func (f *fakeFactory) Binding() string { return "fake" }

func (f *fakeFactory) CreateHandler(t thing.Thing, bridge thing.Handler) (thing.Handler, error) {
	if t.UID.Type == "broken" {
		return nil, thing.ErrUnsupportedType
	}
	return &fakeHandler{uid: t.UID.String(), bridge: bridge, rec: f.rec}, nil
}

type fakeDiscovery struct {
	scans int
}

func (d *fakeDiscovery) StartScan(context.Context) error {
	d.scans++
	return nil
}

func mustThing(t *testing.T, uid, bridge string) thing.Thing {
	t.Helper()
	parsed, err := thing.ParseUID(uid)
	require.NoError(t, err)
	return thing.Thing{UID: parsed, Label: uid, BridgeUID: bridge}
}

func TestStartOrdersBridgesFirst(t *testing.T) {
	rec := &recorder{}
	reg := thing.NewRegistry(thing.NewInbox())
	m := NewThingManager(reg, zap.NewNop())
	m.RegisterFactory(&fakeFactory{rec: rec})

	m.Load([]thing.Thing{
		mustThing(t, "fake:vehicle:acc:v1", "fake:account:acc"),
		mustThing(t, "fake:account:acc", ""),
	})
	m.Start(context.Background())

	assert.Equal(t, []string{"init fake:account:acc", "init fake:vehicle:acc:v1"}, rec.list())

	h, ok := m.Handler("fake:vehicle:acc:v1")
	require.True(t, ok)
	bridge, _ := m.Handler("fake:account:acc")
	assert.Same(t, bridge, h.(*fakeHandler).bridge)

	m.Close()
	assert.Equal(t, "dispose fake:account:acc", rec.list()[3])
	assert.Equal(t, "dispose fake:vehicle:acc:v1", rec.list()[2])
}

func TestStartReportsUnknownBindingAndBrokenType(t *testing.T) {
	reg := thing.NewRegistry(thing.NewInbox())
	m := NewThingManager(reg, zap.NewNop())
	m.RegisterFactory(&fakeFactory{rec: &recorder{}})

	m.Load([]thing.Thing{
		mustThing(t, "other:station:x", ""),
		mustThing(t, "fake:broken:y", ""),
	})
	m.Start(context.Background())

	for _, uid := range []string{"other:station:x", "fake:broken:y"} {
		st, err := reg.Status(uid)
		require.NoError(t, err)
		assert.Equal(t, thing.StatusOffline, st.Status)
		assert.Equal(t, thing.DetailConfigurationError, st.Detail)
	}
}

func TestStartMissingBridgeStillCreatesChild(t *testing.T) {
	rec := &recorder{}
	m := NewThingManager(thing.NewRegistry(thing.NewInbox()), zap.NewNop())
	m.RegisterFactory(&fakeFactory{rec: rec})

	m.Load([]thing.Thing{mustThing(t, "fake:vehicle:acc:v1", "fake:account:acc")})
	m.Start(context.Background())

	h, ok := m.Handler("fake:vehicle:acc:v1")
	require.True(t, ok)
	assert.Nil(t, h.(*fakeHandler).bridge)
}

func TestHandleCommand(t *testing.T) {
	m := NewThingManager(thing.NewRegistry(thing.NewInbox()), zap.NewNop())
	m.RegisterFactory(&fakeFactory{rec: &recorder{}})
	m.Load([]thing.Thing{mustThing(t, "fake:vehicle:v1", "")})
	m.Start(context.Background())

	require.NoError(t, m.HandleCommand(context.Background(), "fake:vehicle:v1:service#name", "2"))
	require.NoError(t, m.HandleCommand(context.Background(), "fake:vehicle:v1:range#mileage", "refresh"))
	h, _ := m.Handler("fake:vehicle:v1")
	assert.Equal(t, []string{"service#name=2", "range#mileage=REFRESH"}, h.(*fakeHandler).cmds)

	err := m.HandleCommand(context.Background(), "fake:vehicle:v2:range#mileage", "REFRESH")
	assert.True(t, errors.Is(err, ErrHandlerNotFound))
	err = m.HandleCommand(context.Background(), "broken", "REFRESH")
	assert.True(t, errors.Is(err, thing.ErrInvalidUID))
}

func TestScan(t *testing.T) {
	m := NewThingManager(thing.NewRegistry(thing.NewInbox()), zap.NewNop())
	m.RegisterFactory(&fakeFactory{rec: &recorder{}})

	assert.True(t, errors.Is(m.Scan(context.Background(), "fake"), ErrNoDiscovery))
	assert.True(t, errors.Is(m.Scan(context.Background(), "nope"), ErrUnknownBinding))

	d := &fakeDiscovery{}
	m.RegisterDiscovery("fake", d)
	require.NoError(t, m.Scan(context.Background(), "fake"))
	assert.Equal(t, 1, d.scans)
	assert.Equal(t, []string{"fake"}, m.Bindings())
}
