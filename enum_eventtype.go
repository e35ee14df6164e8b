package parflate

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
)

// EventType indicates what kind of progress an Event is reporting.
type EventType byte

const (
	// InvalidEvent is a dummy value indicating an invalid Event.
	InvalidEvent EventType = iota

	// StreamBeginEvent fires once when decompression of a stream starts.
	StreamBeginEvent

	// StreamHeaderEvent fires after the gzip header has been parsed.
	StreamHeaderEvent

	// SectionBeginEvent fires when the workers start a new section.
	SectionBeginEvent

	// SyncFoundEvent fires when a worker locates a block boundary.
	SyncFoundEvent

	// ChunkDecodedEvent fires when a worker's decode loop exits.
	ChunkDecodedEvent

	// ContextHandOffEvent fires when a worker publishes its resolved
	// context downstream.
	ContextHandOffEvent

	// ChunkEmittedEvent fires when a worker's output has been written.
	ChunkEmittedEvent

	// StreamEndEvent fires once after all sections are complete.
	StreamEndEvent
)

var eventTypeData = []enumhelper.EnumData{
	{GoName: "InvalidEvent", Name: "invalid"},
	{GoName: "StreamBeginEvent", Name: "stream-begin"},
	{GoName: "StreamHeaderEvent", Name: "stream-header"},
	{GoName: "SectionBeginEvent", Name: "section-begin"},
	{GoName: "SyncFoundEvent", Name: "sync-found"},
	{GoName: "ChunkDecodedEvent", Name: "chunk-decoded"},
	{GoName: "ContextHandOffEvent", Name: "context-hand-off"},
	{GoName: "ChunkEmittedEvent", Name: "chunk-emitted"},
	{GoName: "StreamEndEvent", Name: "stream-end"},
}

// GoString returns the Go string representation of this EventType constant.
func (e EventType) GoString() string {
	return enumhelper.DereferenceEnumData("EventType", eventTypeData, uint(e)).GoName
}

// String returns the string representation of this EventType constant.
func (e EventType) String() string {
	return enumhelper.DereferenceEnumData("EventType", eventTypeData, uint(e)).Name
}

// MarshalJSON returns the JSON representation of this EventType constant.
func (e EventType) MarshalJSON() ([]byte, error) {
	return enumhelper.MarshalEnumToJSON("EventType", eventTypeData, uint(e))
}

var _ fmt.GoStringer = EventType(0)
var _ fmt.Stringer = EventType(0)
