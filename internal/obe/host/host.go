// Package host defines the API surface the core consumes from the host
// application and a shared target-resolution helper used by both preflight
// and the illustrative leaf handlers. fake.go provides an in-memory
// implementation used throughout the test suite.
package host

import (
	"context"
	"time"
)

// LayerInfo is the flattened, host-agnostic view of one layer.
type LayerInfo struct {
	ID   string
	Name string
	Text string
	Kind string // "layer" unless a handler has tagged it otherwise
}

// DocumentInfo is the flattened, host-agnostic view of one open document.
type DocumentInfo struct {
	ID    string
	Title string
}

// ModalTask is the unit of work the modal coordinator runs inside the
// host's cooperative critical section.
type ModalTask func(ctx context.Context) (interface{}, error)

// Host is everything the core needs from the host application.
type Host interface {
	// ExecuteAsModal runs task inside the host's modal gate.
	// It does not retry; the modal coordinator owns retry policy.
	ExecuteAsModal(ctx context.Context, task ModalTask, commandName string, timeout time.Duration) (interface{}, error)

	ActiveDocument() (DocumentInfo, bool)
	Documents() []DocumentInfo
	Layers() []LayerInfo // of the active document, empty if none active

	// ResolveLayerTarget and ResolveDocumentTarget resolve the accepted
	// target shapes (ids, names, tagged and nested wrapper objects).
	ResolveLayerTarget(target interface{}) (LayerInfo, bool)
	ResolveDocumentTarget(target interface{}) (DocumentInfo, bool)

	// Leaf mutation surface exercised by the illustrative handler catalog.
	CreateLayer(name string) (LayerInfo, error)
	RenameLayer(layerID, newName string) (LayerInfo, error)
	DeleteLayer(layerID string) error
	CreateTextLayer(name, text string) (LayerInfo, error)
	SetText(layerID, text string) (LayerInfo, error)
	PlaceAsset(source string) (LayerInfo, error)
	OpenDocument(path string) (DocumentInfo, error)
	ExportAsset(layerID, output string) (string, error)
	BatchPlayRaw(commands interface{}) (interface{}, error)

	// Snapshot/state surface consumed only by the checkpoint manager;
	// all gracefully degrade (return ok=false) rather than erroring when
	// unsupported.
	CreateSnapshot(name string) error
	SelectSnapshot(name string) (bool, error)
	ListStates() []string
	SelectState(stateID string) (bool, error)
	CurrentStateID() string
}
