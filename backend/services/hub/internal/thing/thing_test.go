package thing

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUID(t *testing.T) {
	uid, err := ParseUID("mybmw:bev:account1:WBY1Z81040V123456")
	require.NoError(t, err)
	assert.Equal(t, "mybmw", uid.Binding)
	assert.Equal(t, "bev", uid.Type)
	assert.Equal(t, []string{"account1"}, uid.Bridge)
	assert.Equal(t, "WBY1Z81040V123456", uid.ID)
	assert.Equal(t, "mybmw:bev", uid.TypeUID().String())
	assert.Equal(t, "mybmw:bev:account1:WBY1Z81040V123456", uid.String())

	_, err = ParseUID("pegelonline:station")
	assert.True(t, errors.Is(err, ErrInvalidUID))
	_, err = ParseUID("pegelonline::x")
	assert.True(t, errors.Is(err, ErrInvalidUID))
}

func TestParseChannelUID(t *testing.T) {
	c, err := ParseChannelUID("mybmw:bev:acc:vin1:range#electric")
	require.NoError(t, err)
	assert.Equal(t, "mybmw:bev:acc:vin1", c.Thing)
	assert.Equal(t, "range", c.Group)
	assert.Equal(t, "electric", c.ID)
	assert.Equal(t, "mybmw:bev:acc:vin1:range#electric", c.String())

	c, err = ParseChannelUID("pegelonline:station:giessen:measure")
	require.NoError(t, err)
	assert.Equal(t, "", c.Group)
	assert.Equal(t, "measure", c.IDWithGroup())

	_, err = ParseChannelUID("pegelonline:station:giessen:")
	assert.Error(t, err)
	_, err = ParseChannelUID("pegelonline:station:giessen:#x")
	assert.Error(t, err)
}

func TestStateRendering(t *testing.T) {
	assert.Equal(t, "4131 km", NewQuantity(4131, UnitKilometre).String())
	assert.Equal(t, "78 %", NewQuantity(78, UnitPercent).String())
	assert.Equal(t, "120 °", NewQuantity(120, UnitDegree).String())
	assert.Equal(t, "0", Decimal(0).String())
	assert.Equal(t, "ON", On.String())
	assert.Equal(t, "OFF", Off.String())
	assert.Equal(t, "OPEN", Open.String())
	assert.Equal(t, "CLOSED", Closed.String())
	assert.Equal(t, "UNDEF", Undef.String())
	assert.Equal(t, "50.55,8.67", Point{Lat: 50.55, Lon: 8.67}.String())
}

func TestQuantityToMiles(t *testing.T) {
	q := NewQuantity(160.934, UnitKilometre).ToMiles()
	assert.Equal(t, UnitMile, q.Unit)
	assert.InDelta(t, 100, q.Value, 0.0001)

	cm := NewQuantity(5, UnitCentimetre)
	assert.Equal(t, cm, cm.ToMiles())
}

func TestEncodeParseState(t *testing.T) {
	ts := time.Date(2022, 7, 17, 16, 23, 0, 0, time.UTC)
	states := []State{
		Undef,
		Decimal(2.5),
		NewQuantity(325, UnitKilometre),
		On,
		Closed,
		String("Rising"),
		DateTime(ts),
		Point{Lat: 50.1, Lon: 8.2},
	}
	for _, st := range states {
		kind, value := EncodeState(st)
		parsed, err := ParseState(kind, value)
		require.NoError(t, err, kind)
		assert.Equal(t, st.String(), parsed.String(), kind)
		assert.Equal(t, st.Kind(), parsed.Kind())
	}

	_, err := ParseState("color", "red")
	assert.Error(t, err)
	_, err = ParseState(KindQuantity, "12")
	assert.Error(t, err)
}

func TestNumeric(t *testing.T) {
	v, ok := Numeric(NewQuantity(46.98, UnitKilowattHour))
	assert.True(t, ok)
	assert.Equal(t, 46.98, v)
	v, ok = Numeric(Open)
	assert.True(t, ok)
	assert.Equal(t, 1.0, v)
	_, ok = Numeric(String("x"))
	assert.False(t, ok)
	_, ok = Numeric(Undef)
	assert.False(t, ok)
}

func TestParseCommand(t *testing.T) {
	assert.Equal(t, Refresh, ParseCommand("REFRESH"))
	assert.Equal(t, Refresh, ParseCommand(" refresh "))
	assert.Equal(t, DecimalCommand(2), ParseCommand("2"))
	assert.Equal(t, StringCommand("Brake Fluid"), ParseCommand("Brake Fluid"))
}

type recordingListener struct {
	mu     sync.Mutex
	events []Event
}

func (l *recordingListener) HandleEvent(ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func TestRegistryStateAndStatus(t *testing.T) {
	uid, _ := ParseUID("pegelonline:station:giessen")
	reg := NewRegistry(nil)
	listener := &recordingListener{}
	reg.AddListener(listener)
	reg.Add(Thing{UID: uid, Label: "Giessen"})

	status, err := reg.Status(uid.String())
	require.NoError(t, err)
	assert.Equal(t, StatusUnknown, status.Status)

	ch := NewChannelUID(uid.String(), "", "measure")
	reg.UpdateState(ch, NewQuantity(298, UnitCentimetre))
	reg.UpdateStatus(uid.String(), StatusOnline, DetailNone, "")
	reg.UpdateStatus(uid.String(), StatusOnline, DetailNone, "")

	st, ok := reg.State(ch)
	require.True(t, ok)
	assert.Equal(t, "298 cm", st.String())

	require.Len(t, listener.events, 2)
	assert.Equal(t, EventState, listener.events[0].Type)
	assert.Equal(t, "pegelonline:station:giessen:measure", listener.events[0].Channel)
	assert.Equal(t, KindQuantity, listener.events[0].Kind)
	assert.Equal(t, EventStatus, listener.events[1].Type)
	assert.Equal(t, StatusOnline, listener.events[1].Status)

	snap := reg.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "298 cm", snap[0].Channels["measure"])
	assert.Equal(t, StatusOnline, snap[0].Status.Status)
}

func TestRegistryIgnoresUnknownThings(t *testing.T) {
	reg := NewRegistry(nil)
	listener := &recordingListener{}
	reg.AddListener(listener)

	reg.UpdateState(NewChannelUID("a:b:c", "", "x"), On)
	reg.UpdateStatus("a:b:c", StatusOnline, DetailNone, "")
	assert.Empty(t, listener.events)

	_, err := reg.Channels("a:b:c")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestRegistryRestoreDoesNotEmit(t *testing.T) {
	uid, _ := ParseUID("solarforecast:fs-site:home")
	reg := NewRegistry(nil)
	listener := &recordingListener{}
	reg.AddListener(listener)
	reg.Add(Thing{UID: uid})

	ch := NewChannelUID(uid.String(), "", "today")
	reg.Restore(ch, NewQuantity(54.4, UnitKilowattHour))
	assert.Empty(t, listener.events)

	channels, err := reg.Channels(uid.String())
	require.NoError(t, err)
	assert.Equal(t, "54.4 kWh", channels["today"].String())
}

func TestRegistryDeliversInStoreOrder(t *testing.T) {
	uid, _ := ParseUID("pegelonline:station:giessen")
	reg := NewRegistry(nil)
	listener := &recordingListener{}
	reg.AddListener(listener)
	reg.Add(Thing{UID: uid})
	ch := NewChannelUID(uid.String(), "", "measure")

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				reg.UpdateState(ch, Decimal(w*100+i))
			}
		}(w)
	}
	wg.Wait()

	require.Len(t, listener.events, 400)
	st, ok := reg.State(ch)
	require.True(t, ok)
	assert.Equal(t, st.String(), listener.events[len(listener.events)-1].Value)
}

func TestInboxDeduplicatesByRepresentation(t *testing.T) {
	inbox := NewInbox()
	reg := NewRegistry(inbox)
	reg.ThingDiscovered(DiscoveryResult{
		ThingUID:               "pegelonline:station:old",
		Label:                  "Pegel Messstelle GIESSEN / LAHN",
		Properties:             map[string]string{"uuid": "abc"},
		RepresentationProperty: "uuid",
	})
	reg.ThingDiscovered(DiscoveryResult{
		ThingUID:               "pegelonline:station:new",
		Properties:             map[string]string{"uuid": "abc"},
		RepresentationProperty: "uuid",
	})
	reg.ThingDiscovered(DiscoveryResult{ThingUID: "pegelonline:station:other"})

	results := inbox.Results()
	require.Len(t, results, 2)
	assert.Equal(t, "pegelonline:station:new", results[0].ThingUID)
	assert.Equal(t, "pegelonline:station:other", results[1].ThingUID)
	assert.False(t, results[0].Timestamp.IsZero())

	inbox.Remove("pegelonline:station:other")
	assert.Len(t, inbox.Results(), 1)
}

func TestDecodeConfigKeepsDefaults(t *testing.T) {
	type cfg struct {
		UUID            string `yaml:"uuid"`
		RefreshInterval int    `yaml:"refreshInterval"`
		WarningLevel1   int    `yaml:"warningLevel1"`
	}
	c := cfg{RefreshInterval: 15, WarningLevel1: 1 << 30}
	require.NoError(t, DecodeConfig(map[string]any{"uuid": "abc", "warningLevel1": 250}, &c))
	assert.Equal(t, "abc", c.UUID)
	assert.Equal(t, 15, c.RefreshInterval)
	assert.Equal(t, 250, c.WarningLevel1)

	require.NoError(t, DecodeConfig(nil, &c))
	assert.Error(t, DecodeConfig(map[string]any{"refreshInterval": "soon"}, &c))
}
