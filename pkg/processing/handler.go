package processing

import (
	"io"
	"sync"

	"go.uber.org/multierr"

	customlog "github.com/open-teleop/dronectl/pkg/log"
)

// Sink receives delivered messages, e.g. the ZeroMQ publisher or the journal.
type Sink interface {
	HandleMessage(msg *Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(msg *Message) error

// HandleMessage calls f(msg).
func (f SinkFunc) HandleMessage(msg *Message) error {
	return f(msg)
}

type subscription struct {
	name   string
	sink   Sink
	topics map[string]bool // nil means every topic
}

// FanOut delivers each message to every sink subscribed to its topic and
// records per-topic statistics in a TopicRegistry.
type FanOut struct {
	logger   customlog.Logger
	registry *TopicRegistry

	mu   sync.RWMutex
	subs []subscription
}

// NewFanOut creates an empty fan-out.
func NewFanOut(registry *TopicRegistry, logger customlog.Logger) *FanOut {
	return &FanOut{logger: logger, registry: registry}
}

// Subscribe adds a sink. With no topics the sink receives everything.
func (f *FanOut) Subscribe(name string, sink Sink, topics ...string) {
	sub := subscription{name: name, sink: sink}
	if len(topics) > 0 {
		sub.topics = make(map[string]bool, len(topics))
		for _, t := range topics {
			sub.topics[t] = true
		}
	}

	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	f.logger.Infof("Sink %s subscribed to %v", name, topicsOrAll(topics))
}

// HandleMessage delivers msg to all matching sinks. Every sink is tried; the
// returned error combines the individual failures.
func (f *FanOut) HandleMessage(msg *Message) error {
	if f.registry != nil {
		f.registry.UpdateTopicStats(msg.Topic, msg.ContentType, msg.Timestamp)
	}

	f.mu.RLock()
	subs := f.subs
	f.mu.RUnlock()

	var err error
	for _, sub := range subs {
		if sub.topics != nil && !sub.topics[msg.Topic] {
			continue
		}
		if sinkErr := sub.sink.HandleMessage(msg); sinkErr != nil {
			f.logger.Debugf("Sink %s rejected %s message: %v", sub.name, msg.Topic, sinkErr)
			err = multierr.Append(err, sinkErr)
		}
	}
	return err
}

// Close closes every sink that implements io.Closer.
func (f *FanOut) Close() error {
	f.mu.Lock()
	subs := f.subs
	f.subs = nil
	f.mu.Unlock()

	var err error
	for _, sub := range subs {
		if c, ok := sub.sink.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

func topicsOrAll(topics []string) interface{} {
	if len(topics) == 0 {
		return "all topics"
	}
	return topics
}
