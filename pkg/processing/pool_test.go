package processing

import (
	"errors"
	"sync"
	"testing"

	"go.uber.org/multierr"

	customlog "github.com/open-teleop/dronectl/pkg/log"
)

type captureSink struct {
	mu     sync.Mutex
	topics []string
	err    error
	closed bool
}

func (s *captureSink) HandleMessage(msg *Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.topics = append(s.topics, msg.Topic)
	return s.err
}

func (s *captureSink) Close() error {
	s.closed = true
	return nil
}

func (s *captureSink) received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.topics...)
}

func TestFanOutRoutesByTopic(t *testing.T) {
	registry := NewTopicRegistry()
	fan := NewFanOut(registry, customlog.NewNopLogger())

	all := &captureSink{}
	states := &captureSink{}
	fan.Subscribe("all", all)
	fan.Subscribe("states", states, TopicVehicleState)

	if err := fan.HandleMessage(NewMessage(TopicVehicleState, ContentTypeFlatbuffers, []byte{1})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fan.HandleMessage(NewMessage(TopicControlCommand, ContentTypeJSON, []byte(`{}`))); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := all.received(); len(got) != 2 {
		t.Errorf("expected 2 messages on catch-all sink, got %v", got)
	}
	if got := states.received(); len(got) != 1 || got[0] != TopicVehicleState {
		t.Errorf("expected only %s on states sink, got %v", TopicVehicleState, got)
	}

	info, ok := registry.GetTopicInfo(TopicControlCommand)
	if !ok || info.Count != 1 || info.ContentType != ContentTypeJSON {
		t.Errorf("unexpected topic info: %+v (found=%v)", info, ok)
	}
	if stats := registry.GetTopicStats(); len(stats) != 2 || stats[0].Topic != TopicControlCommand {
		t.Errorf("expected sorted stats for 2 topics, got %+v", stats)
	}
}

func TestFanOutCombinesSinkErrors(t *testing.T) {
	fan := NewFanOut(nil, customlog.NewNopLogger())
	errA, errB := errors.New("a down"), errors.New("b down")
	healthy := &captureSink{}
	fan.Subscribe("a", &captureSink{err: errA})
	fan.Subscribe("healthy", healthy)
	fan.Subscribe("b", &captureSink{err: errB})

	err := fan.HandleMessage(NewMessage(TopicControlAction, ContentTypeJSON, nil))
	if errs := multierr.Errors(err); len(errs) != 2 {
		t.Fatalf("expected 2 combined errors, got %v", err)
	}
	if !errors.Is(err, errA) || !errors.Is(err, errB) {
		t.Errorf("expected both sink errors, got %v", err)
	}
	if len(healthy.received()) != 1 {
		t.Errorf("healthy sink should still receive the message")
	}

	if err := fan.Close(); err != nil {
		t.Errorf("unexpected close error: %v", err)
	}
	if !healthy.closed {
		t.Errorf("expected sinks to be closed")
	}
}

func TestProcessingPoolDelivers(t *testing.T) {
	sink := &captureSink{}
	pool := NewProcessingPool("test", 2, 16, sink.HandleMessage, customlog.NewNopLogger())

	if pool.Submit(NewMessage(TopicVehicleState, ContentTypeJSON, nil)) {
		t.Fatalf("submit should fail before Start")
	}

	pool.Start()
	for i := 0; i < 10; i++ {
		if !pool.Submit(NewMessage(TopicVehicleState, ContentTypeJSON, nil)) {
			t.Fatalf("submit %d rejected", i)
		}
	}
	pool.Stop()

	if got := len(sink.received()); got != 10 {
		t.Errorf("expected 10 delivered messages, got %d", got)
	}
	metrics := pool.GetMetrics()
	if metrics.ProcessedCount != 10 || metrics.QueuedCount != 10 {
		t.Errorf("unexpected metrics: %+v", metrics)
	}
	if pool.Submit(NewMessage(TopicVehicleState, ContentTypeJSON, nil)) {
		t.Errorf("submit should fail after Stop")
	}
}

func TestProcessingPoolDropsWhenFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	blocking := func(msg *Message) error {
		started <- struct{}{}
		<-release
		return nil
	}
	pool := NewProcessingPool("slow", 1, 1, blocking, customlog.NewNopLogger())
	pool.Start()

	pool.Submit(NewMessage(TopicControlCommand, ContentTypeJSON, nil))
	<-started
	if !pool.Submit(NewMessage(TopicControlCommand, ContentTypeJSON, nil)) {
		t.Fatalf("second message should fit in the queue")
	}
	if pool.Submit(NewMessage(TopicControlCommand, ContentTypeJSON, nil)) {
		t.Errorf("third message should be dropped")
	}

	close(release)
	pool.Stop()

	if m := pool.GetMetrics(); m.DroppedCount != 1 || m.ProcessedCount != 2 {
		t.Errorf("unexpected metrics: %+v", m)
	}
}
