// Package audit publishes overlap decisions for records under edit to Kafka.
// Publishing never blocks a request: when the queue is full the event is
// dropped and counted.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"

	"github.com/mohammed-shakir/ringguard/internal/core/observability"
	"github.com/mohammed-shakir/ringguard/internal/logger"
	"github.com/mohammed-shakir/ringguard/internal/overlap"
)

type Event struct {
	overlap.Decision
	RequestID string    `json:"request_id,omitempty"`
	TS        time.Time `json:"ts"`
}

type Publisher struct {
	topic string
	log   *slog.Logger
	prod  sarama.AsyncProducer
	now   func() time.Time

	mu      sync.RWMutex
	closed  bool
	events  chan Event
	stopped chan struct{}
	errDone chan struct{}
}

var _ overlap.AuditSink = (*Publisher)(nil)

func ProducerConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = "ringguard-audit"
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = false
	cfg.Producer.Flush.Frequency = 100 * time.Millisecond
	return cfg
}

func NewPublisher(brokers []string, topic string, queueSize int, log *slog.Logger) (*Publisher, error) {
	prod, err := sarama.NewAsyncProducer(brokers, ProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("audit: create async producer: %w", err)
	}
	return newPublisher(prod, topic, queueSize, log), nil
}

func newPublisher(prod sarama.AsyncProducer, topic string, queueSize int, log *slog.Logger) *Publisher {
	if queueSize <= 0 {
		queueSize = 1024
	}
	if log == nil {
		log = slog.Default()
	}
	p := &Publisher{
		topic:   topic,
		log:     log,
		prod:    prod,
		now:     time.Now,
		events:  make(chan Event, queueSize),
		stopped: make(chan struct{}),
		errDone: make(chan struct{}),
	}
	go p.loop()
	go p.drainErrors()
	return p
}

func (p *Publisher) loop() {
	defer close(p.stopped)
	for ev := range p.events {
		b, err := json.Marshal(ev)
		if err != nil {
			observability.IncAudit("error")
			p.log.Error("audit: marshal event", "record_id", ev.RecordID, "err", err)
			continue
		}
		p.prod.Input() <- &sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(ev.RecordID),
			Value: sarama.ByteEncoder(b),
		}
		observability.IncAudit("sent")
	}
}

func (p *Publisher) drainErrors() {
	defer close(p.errDone)
	for err := range p.prod.Errors() {
		if err == nil {
			continue
		}
		observability.IncAudit("error")
		p.log.Warn("audit: producer error", "topic", p.topic, "err", err.Err)
	}
}

// Record queues d for publishing.
func (p *Publisher) Record(ctx context.Context, d overlap.Decision) {
	ev := Event{Decision: d, RequestID: logger.RequestID(ctx), TS: p.now().UTC()}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		observability.IncAudit("dropped")
		return
	}
	select {
	case p.events <- ev:
		observability.IncAudit("queued")
	default:
		observability.IncAudit("dropped")
		p.log.WarnContext(ctx, "audit queue full, decision dropped", "record_id", d.RecordID)
	}
}

// Close flushes queued events and closes the producer.
func (p *Publisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.events)
	p.mu.Unlock()

	<-p.stopped
	err := p.prod.Close()
	<-p.errDone
	if err != nil {
		return fmt.Errorf("audit: close producer: %w", err)
	}
	return nil
}
