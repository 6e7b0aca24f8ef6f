package kafka

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"

	"github.com/WilliamKTurner/openhab-addons/backend/services/hub/internal/thing"
)

// Config selects brokers and topic.
type Config struct {
	Brokers []string
	Topic   string
}

const (
	queueSize    = 256
	drainTimeout = 2 * time.Second
)

// Publisher forwards registry events to a Kafka topic keyed by thing UID. Events are
// queued and dropped when the queue is full, so a stalled broker never blocks the registry.
type Publisher struct {
	producer     sarama.AsyncProducer
	topic        string
	logger       *zap.Logger
	queue        chan *sarama.ProducerMessage
	done         chan struct{}
	closeOnce    sync.Once
	drainTimeout time.Duration
	forwarder    sync.WaitGroup
	wg           sync.WaitGroup
}

// NewPublisher connects an async producer.
func NewPublisher(cfg Config, logger *zap.Logger) (*Publisher, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 500 * time.Millisecond
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, err
	}
	return NewPublisherWithProducer(producer, cfg.Topic, logger), nil
}

// NewPublisherWithProducer wraps an existing producer.
func NewPublisherWithProducer(producer sarama.AsyncProducer, topic string, logger *zap.Logger) *Publisher {
	p := &Publisher{
		producer:     producer,
		topic:        topic,
		logger:       logger,
		queue:        make(chan *sarama.ProducerMessage, queueSize),
		done:         make(chan struct{}),
		drainTimeout: drainTimeout,
	}
	p.wg.Add(1)
	go p.logErrors()
	p.forwarder.Add(1)
	go p.forward()
	return p
}

func (p *Publisher) forward() {
	defer p.forwarder.Done()
	for {
		select {
		case <-p.done:
			p.drain(nil)
			return
		case msg := <-p.queue:
			select {
			case p.producer.Input() <- msg:
			case <-p.done:
				p.drain(msg)
				return
			}
		}
	}
}

// drain hands pending and queued messages to the producer until the queue is empty or
// the timeout hits.
func (p *Publisher) drain(pending *sarama.ProducerMessage) {
	deadline := time.NewTimer(p.drainTimeout)
	defer deadline.Stop()
	for {
		msg := pending
		pending = nil
		if msg == nil {
			select {
			case msg = <-p.queue:
			default:
				return
			}
		}
		select {
		case p.producer.Input() <- msg:
		case <-deadline.C:
			p.logger.Warn("dropping queued events on close", zap.Int("count", len(p.queue)+1))
			return
		}
	}
}

func (p *Publisher) logErrors() {
	defer p.wg.Done()
	for err := range p.producer.Errors() {
		p.logger.Warn("kafka publish failed", zap.Error(err))
	}
}

// Message encodes an event.
func (p *Publisher) Message(ev thing.Event) (*sarama.ProducerMessage, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return &sarama.ProducerMessage{
		Topic:     p.topic,
		Key:       sarama.StringEncoder(ev.Thing),
		Value:     sarama.ByteEncoder(data),
		Timestamp: ev.Time,
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(ev.Type)},
		},
	}, nil
}

// HandleEvent publishes the event.
func (p *Publisher) HandleEvent(ev thing.Event) {
	msg, err := p.Message(ev)
	if err != nil {
		p.logger.Warn("failed to encode event", zap.Error(err))
		return
	}
	select {
	case <-p.done:
	case p.queue <- msg:
	default:
		p.logger.Warn("dropping event, kafka queue full", zap.String("thing", ev.Thing))
	}
}

// Close flushes pending messages and closes the producer.
func (p *Publisher) Close() error {
	p.closeOnce.Do(func() {
		close(p.done)
		p.forwarder.Wait()
		p.producer.AsyncClose()
		p.wg.Wait()
	})
	return nil
}
