package kafka

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

func TestPublisherSendsEvents(t *testing.T) {
	producer := mocks.NewAsyncProducer(t, sarama.NewConfig())
	producer.ExpectInputWithCheckerFunctionAndSucceed(func(val []byte) error {
		var ev thing.Event
		if err := json.Unmarshal(val, &ev); err != nil {
			return err
		}
		if ev.Channel != "pegelonline:station:giessen:measure" || ev.Value != "238 cm" {
			return errors.New("unexpected event " + string(val))
		}
		return nil
	})
	producer.ExpectInputAndSucceed()

	p := NewPublisherWithProducer(producer, "hub-events", zap.NewNop())
	p.HandleEvent(thing.Event{
		Type:    thing.EventState,
		Thing:   "pegelonline:station:giessen",
		Channel: "pegelonline:station:giessen:measure",
		Kind:    thing.KindQuantity,
		Value:   "238 cm",
		Time:    time.Now(),
	})
	p.HandleEvent(thing.Event{Type: thing.EventStatus, Thing: "pegelonline:station:giessen", Status: thing.StatusOnline})
	require.NoError(t, p.Close())
}

func TestPublisherMessage(t *testing.T) {
	p := &Publisher{topic: "hub-events"}
	at := time.Date(2022, 7, 17, 16, 0, 0, 0, time.UTC)
	msg, err := p.Message(thing.Event{Type: thing.EventStatus, Thing: "mybmw:account:home", Time: at})
	require.NoError(t, err)
	assert.Equal(t, "hub-events", msg.Topic)
	assert.Equal(t, sarama.StringEncoder("mybmw:account:home"), msg.Key)
	assert.Equal(t, at, msg.Timestamp)
	assert.Equal(t, []byte(thing.EventStatus), msg.Headers[0].Value)
}

type stalledProducer struct {
	sarama.AsyncProducer
	input  chan *sarama.ProducerMessage
	errors chan *sarama.ProducerError
}

func (s *stalledProducer) Input() chan<- *sarama.ProducerMessage { return s.input }
func (s *stalledProducer) Errors() <-chan *sarama.ProducerError  { return s.errors }
func (s *stalledProducer) AsyncClose()                           { close(s.errors) }

func TestPublisherDropsWhenBrokerStalls(t *testing.T) {
	producer := &stalledProducer{
		input:  make(chan *sarama.ProducerMessage),
		errors: make(chan *sarama.ProducerError),
	}
	p := NewPublisherWithProducer(producer, "hub-events", zap.NewNop())
	p.drainTimeout = 20 * time.Millisecond

	done := make(chan struct{})
	go func() {
		for i := 0; i < 3*queueSize; i++ {
			p.HandleEvent(thing.Event{Type: thing.EventStatus, Thing: "mybmw:account:home", Status: thing.StatusOnline})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("HandleEvent blocked on a stalled producer")
	}

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())
	p.HandleEvent(thing.Event{Type: thing.EventStatus, Thing: "mybmw:account:home"})
}
