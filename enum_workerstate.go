package parflate

import (
	"fmt"

	"github.com/chronos-tachyon/enumhelper"
)

// WorkerState tracks a worker through its lifecycle within one section.
type WorkerState byte

const (
	// IdleWorker indicates a worker waiting for its section to begin.
	IdleWorker WorkerState = iota

	// SyncingWorker indicates a worker probing for a block boundary.
	SyncingWorker

	// DecodingWorker indicates a worker in its decode loop.
	DecodingWorker

	// ResolvingWorker indicates a worker resolving placeholder symbols
	// against the upstream context.
	ResolvingWorker

	// HandingOffWorker indicates a worker publishing its resolved
	// context downstream.
	HandingOffWorker

	// EmittingWorker indicates a worker streaming its output.
	EmittingWorker

	// DoneWorker indicates a worker that has finished all sections.
	DoneWorker
)

var workerStateData = []enumhelper.EnumData{
	{GoName: "IdleWorker", Name: "idle"},
	{GoName: "SyncingWorker", Name: "syncing"},
	{GoName: "DecodingWorker", Name: "decoding"},
	{GoName: "ResolvingWorker", Name: "resolving"},
	{GoName: "HandingOffWorker", Name: "handing-off"},
	{GoName: "EmittingWorker", Name: "emitting"},
	{GoName: "DoneWorker", Name: "done"},
}

// GoString returns the Go string representation of this WorkerState constant.
func (ws WorkerState) GoString() string {
	return enumhelper.DereferenceEnumData("WorkerState", workerStateData, uint(ws)).GoName
}

// String returns the string representation of this WorkerState constant.
func (ws WorkerState) String() string {
	return enumhelper.DereferenceEnumData("WorkerState", workerStateData, uint(ws)).Name
}

// MarshalJSON returns the JSON representation of this WorkerState constant.
func (ws WorkerState) MarshalJSON() ([]byte, error) {
	return enumhelper.MarshalEnumToJSON("WorkerState", workerStateData, uint(ws))
}

var _ fmt.GoStringer = WorkerState(0)
var _ fmt.Stringer = WorkerState(0)
