// Package memory keeps run notifications in-process. It stands in for Pub/Sub
// when no topic is configured, logging each summary instead of sending it.
package memory

import (
	"context"
	"maps"
	"strconv"
	"sync"

	"go.uber.org/zap"
)

// Message captures one publish call.
type Message struct {
	ID         string
	Payload    any
	Attributes map[string]string
}

// Publisher records notifications in publish order.
type Publisher struct {
	logger *zap.Logger

	mu       sync.RWMutex
	messages []Message
}

// New returns a memory Publisher. A nil logger disables logging.
func New(logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{logger: logger}
}

// Publish records the payload and returns a sequential local ID.
func (p *Publisher) Publish(_ context.Context, payload any, attrs map[string]string) (string, error) {
	p.mu.Lock()
	id := "local-" + strconv.Itoa(len(p.messages)+1)
	p.messages = append(p.messages, Message{ID: id, Payload: payload, Attributes: maps.Clone(attrs)})
	p.mu.Unlock()

	p.logger.Info("run notification recorded locally",
		zap.String("message_id", id),
		zap.Any("attributes", attrs),
		zap.Any("payload", payload),
	)
	return id, nil
}

// Messages returns a snapshot of the recorded notifications.
func (p *Publisher) Messages() []Message {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Message(nil), p.messages...)
}
