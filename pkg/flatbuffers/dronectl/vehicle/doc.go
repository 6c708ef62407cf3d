// Package vehicle holds the FlatBuffers accessors for schemas/vehicle_state.fbs.
package vehicle

//go:generate flatc --go -o ../.. ../../schemas/vehicle_state.fbs
