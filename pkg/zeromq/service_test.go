package zeromq

import (
	"testing"
	"time"

	"github.com/pebbe/zmq4"

	"github.com/open-teleop/dronectl/domain/control"
	customlog "github.com/open-teleop/dronectl/pkg/log"
	"github.com/open-teleop/dronectl/pkg/processing"
)

const testTimeout = 5 * time.Second

func newTestService(t *testing.T, inputs *control.Inputs) *ZeroMQService {
	t.Helper()
	opts := Options{PublishAddress: "tcp://127.0.0.1:*"}
	if inputs != nil {
		opts.InputAddress = "tcp://127.0.0.1:*"
	}
	svc, err := NewZeroMQService(opts, inputs, customlog.NewNopLogger())
	if err != nil {
		t.Fatalf("Failed to create ZeroMQ service: %v", err)
	}
	if err := svc.Start(); err != nil {
		t.Fatalf("Failed to start ZeroMQ service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func TestSenderPublishesMessages(t *testing.T) {
	svc := newTestService(t, nil)

	sub, err := zmq4.NewSocket(zmq4.SUB)
	if err != nil {
		t.Fatalf("Failed to create SUB socket: %v", err)
	}
	defer sub.Close()
	sub.SetLinger(0)
	sub.SetRcvtimeo(50 * time.Millisecond)
	if err := sub.SetSubscribe(processing.TopicControlCommand); err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}
	if err := sub.Connect(svc.Sender().Endpoint()); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	msg := processing.NewMessage(processing.TopicControlCommand, processing.ContentTypeJSON, []byte(`{"dx":1}`))

	// PUB drops messages until the subscription has propagated, so keep sending.
	deadline := time.Now().Add(testTimeout)
	for time.Now().Before(deadline) {
		if err := svc.Sender().HandleMessage(msg); err != nil {
			t.Fatalf("Publish failed: %v", err)
		}
		frames, err := sub.RecvMessageBytes(0)
		if err != nil {
			continue
		}
		if len(frames) != 2 || string(frames[0]) != processing.TopicControlCommand || string(frames[1]) != `{"dx":1}` {
			t.Fatalf("Unexpected frames: %q", frames)
		}
		return
	}
	t.Fatal("No message received before deadline")
}

func TestSenderClosed(t *testing.T) {
	svc := newTestService(t, nil)
	if err := svc.Sender().Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := svc.Sender().PublishMessage("x", nil); err != ErrServiceClosed {
		t.Errorf("Expected ErrServiceClosed, got %v", err)
	}
}

func TestInputListenerAppliesEvents(t *testing.T) {
	inputs := control.NewInputs(false, false)
	svc := newTestService(t, inputs)
	listener := svc.Listener()
	if listener == nil {
		t.Fatal("Expected an input listener")
	}

	pub, err := zmq4.NewSocket(zmq4.PUB)
	if err != nil {
		t.Fatalf("Failed to create PUB socket: %v", err)
	}
	defer pub.Close()
	pub.SetLinger(0)
	if err := pub.Connect(listener.Endpoint()); err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	event := `{"source":"right","type":"move","x":0.5,"y":-0.5}`
	deadline := time.Now().Add(testTimeout)
	for listener.Applied() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Input event not applied before deadline")
		}
		pub.SendMessage(InputTopicPrefix+".gamepad", event)
		time.Sleep(20 * time.Millisecond)
	}

	if got := inputs.Right.Latest(); got != (control.Vector2{X: 0.5, Y: -0.5}) {
		t.Errorf("Unexpected right stick vector: %+v", got)
	}

	pub.SendMessage(InputTopicPrefix+".gamepad", `{"source":"tail","type":"move"}`)
	deadline = time.Now().Add(testTimeout)
	for listener.Rejected() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("Invalid input event not rejected before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestInputListenerRequiresInputs(t *testing.T) {
	_, err := NewZeroMQService(Options{
		PublishAddress: "tcp://127.0.0.1:*",
		InputAddress:   "tcp://127.0.0.1:*",
	}, nil, customlog.NewNopLogger())
	if err == nil {
		t.Fatal("Expected an error without input sources")
	}
}
