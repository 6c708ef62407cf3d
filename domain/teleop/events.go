package teleop

import (
	"encoding/json"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"

	"github.com/open-teleop/dronectl/domain/control"
	"github.com/open-teleop/dronectl/pkg/flatbuffers/dronectl/vehicle"
	"github.com/open-teleop/dronectl/pkg/processing"
	"github.com/open-teleop/dronectl/pkg/remote"
)

// EncodeSnapshot renders a snapshot as a VehicleState flatbuffer.
func EncodeSnapshot(snap *control.Snapshot) ([]byte, error) {
	var telemetry []byte
	if len(snap.State.Telemetry) > 0 {
		var err error
		if telemetry, err = json.Marshal(snap.State.Telemetry); err != nil {
			return nil, fmt.Errorf("encoding telemetry: %w", err)
		}
	}

	builder := flatbuffers.NewBuilder(64 + len(telemetry))
	var telemetryOffset flatbuffers.UOffsetT
	if telemetry != nil {
		telemetryOffset = builder.CreateByteVector(telemetry)
	}

	vehicle.VehicleStateStart(builder)
	vehicle.VehicleStateAddSeq(builder, snap.Seq)
	vehicle.VehicleStateAddArmed(builder, snap.State.Armed)
	vehicle.VehicleStateAddFlying(builder, snap.State.Flying)
	vehicle.VehicleStateAddTimestampNs(builder, snap.FetchedAt.UnixNano())
	if telemetry != nil {
		vehicle.VehicleStateAddTelemetry(builder, telemetryOffset)
	}
	vehicle.FinishVehicleStateBuffer(builder, vehicle.VehicleStateEnd(builder))
	return builder.FinishedBytes(), nil
}

// DecodeSnapshot is the inverse of EncodeSnapshot, for subscribers written in Go.
// Corrupt buffers are reported as errors.
func DecodeSnapshot(buf []byte) (seq uint64, state remote.VehicleState, timestampNs int64, err error) {
	if err = checkTableBounds(buf); err != nil {
		return 0, state, 0, err
	}
	defer func() {
		if r := recover(); r != nil {
			seq, state, timestampNs = 0, remote.VehicleState{}, 0
			err = fmt.Errorf("corrupt vehicle state buffer: %v", r)
		}
	}()

	fb := vehicle.GetRootAsVehicleState(buf, 0)
	state.Armed = fb.Armed()
	state.Flying = fb.Flying()
	if raw := fb.TelemetryBytes(); len(raw) > 0 {
		if err = json.Unmarshal(raw, &state.Telemetry); err != nil {
			return 0, state, 0, fmt.Errorf("decoding telemetry: %w", err)
		}
	}
	return fb.Seq(), state, fb.TimestampNs(), nil
}

// checkTableBounds verifies that the root table and its vtable lie inside buf.
func checkTableBounds(buf []byte) error {
	n := len(buf)
	if n < flatbuffers.SizeUOffsetT {
		return fmt.Errorf("vehicle state buffer too short: %d bytes", n)
	}
	table := int(flatbuffers.GetUOffsetT(buf))
	if table < flatbuffers.SizeUOffsetT || table > n-flatbuffers.SizeSOffsetT {
		return fmt.Errorf("vehicle state root offset %d outside %d-byte buffer", table, n)
	}
	vtable := table - int(flatbuffers.GetSOffsetT(buf[table:]))
	if vtable < 0 || vtable > n-2*flatbuffers.SizeVOffsetT {
		return fmt.Errorf("vehicle state vtable offset %d outside %d-byte buffer", vtable, n)
	}
	vtableSize := int(flatbuffers.GetVOffsetT(buf[vtable:]))
	objectSize := int(flatbuffers.GetVOffsetT(buf[vtable+flatbuffers.SizeVOffsetT:]))
	if vtableSize < 2*flatbuffers.SizeVOffsetT || vtable+vtableSize > n || table+objectSize > n {
		return fmt.Errorf("vehicle state vtable (size %d, object %d) overruns %d-byte buffer", vtableSize, objectSize, n)
	}
	return nil
}

type actionEvent struct {
	Action control.Action `json:"action"`
}

func (s *Service) publishSnapshot(snap *control.Snapshot) {
	data, err := EncodeSnapshot(snap)
	if err != nil {
		s.logger.Warnf("Dropping snapshot %d event: %v", snap.Seq, err)
		return
	}
	s.events.Submit(processing.NewMessage(processing.TopicVehicleState, processing.ContentTypeFlatbuffers, data))
}

func (s *Service) publishCommand(cmd control.Command) {
	s.publishJSON(processing.TopicControlCommand, cmd)
}

func (s *Service) publishAction(action control.Action) {
	s.publishJSON(processing.TopicControlAction, actionEvent{Action: action})
}

func (s *Service) publishJSON(topic string, v interface{}) {
	if s.events == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logger.Warnf("Dropping %s event: %v", topic, err)
		return
	}
	s.events.Submit(processing.NewMessage(topic, processing.ContentTypeJSON, data))
}
