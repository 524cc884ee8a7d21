package host

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// fakeLayer and fakeDocument are the serializable internal representation
// Fake mutates and snapshots.
type fakeLayer struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Text string `json:"text"`
	Kind string `json:"kind"`
}

type fakeDocument struct {
	ID     string       `json:"id"`
	Title  string       `json:"title"`
	Layers []*fakeLayer `json:"layers"`
}

type fakeState struct {
	Docs      []*fakeDocument `json:"docs"`
	ActiveIdx int             `json:"activeIdx"`
}

type historyEntry struct {
	id   string
	data []byte
}

// Fake is an in-memory Host used by tests. It represents "the document" as
// a small JSON-serializable tree. State pointers are restored by decoding
// the recorded history entry; named snapshots are restored with
// github.com/evanphx/json-patch/v5 by computing and applying an RFC 7396
// merge patch from the live state back to the stored one.
type Fake struct {
	mu sync.Mutex

	docs      []*fakeDocument
	activeIdx int // -1 if none active

	snapshots map[string][]byte
	history   []historyEntry
	stateSeq  int
	layerSeq  int
	docSeq    int

	// BusyCountdown, when > 0, makes the next ExecuteAsModal call(s) fail
	// with a "modal state busy"-shaped error and decrements by one; tests
	// use this to exercise the modal coordinator's retry policy.
	BusyCountdown int
}

// NewFake returns a Fake with one empty active document named "Untitled".
func NewFake() *Fake {
	f := &Fake{
		activeIdx: 0,
		snapshots: make(map[string][]byte),
	}
	f.docs = []*fakeDocument{f.newDocument("Untitled")}
	f.pushHistory()
	return f
}

func (f *Fake) newDocument(title string) *fakeDocument {
	f.docSeq++
	return &fakeDocument{ID: fmt.Sprintf("doc-%d", f.docSeq), Title: title}
}

func (f *Fake) pushHistory() {
	state := f.stateSnapshot()
	data, _ := json.Marshal(state)
	f.stateSeq++
	f.history = append(f.history, historyEntry{id: fmt.Sprintf("state-%d", f.stateSeq), data: data})
}

func (f *Fake) stateSnapshot() fakeState {
	return fakeState{Docs: f.docs, ActiveIdx: f.activeIdx}
}

func (f *Fake) activeDoc() *fakeDocument {
	if f.activeIdx < 0 || f.activeIdx >= len(f.docs) {
		return nil
	}
	return f.docs[f.activeIdx]
}

// ExecuteAsModal runs task once; it never retries.
func (f *Fake) ExecuteAsModal(ctx context.Context, task ModalTask, commandName string, timeout time.Duration) (interface{}, error) {
	f.mu.Lock()
	if f.BusyCountdown > 0 {
		f.BusyCountdown--
		f.mu.Unlock()
		return nil, fmt.Errorf("%s: modal state is busy", commandName)
	}
	f.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   interface{}
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := task(ctx)
		done <- result{v, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: modal entry timed out", commandName)
	case r := <-done:
		return r.v, r.err
	}
}

func (f *Fake) ActiveDocument() (DocumentInfo, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.activeDoc()
	if d == nil {
		return DocumentInfo{}, false
	}
	return DocumentInfo{ID: d.ID, Title: d.Title}, true
}

func (f *Fake) Documents() []DocumentInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]DocumentInfo, len(f.docs))
	for i, d := range f.docs {
		out[i] = DocumentInfo{ID: d.ID, Title: d.Title}
	}
	return out
}

func (f *Fake) Layers() []LayerInfo {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.activeDoc()
	if d == nil {
		return nil
	}
	out := make([]LayerInfo, len(d.Layers))
	for i, l := range d.Layers {
		out[i] = LayerInfo{ID: l.ID, Name: l.Name, Text: l.Text, Kind: l.Kind}
	}
	return out
}

func (f *Fake) ResolveLayerTarget(target interface{}) (LayerInfo, bool) {
	layers := f.Layers()
	var active *LayerInfo
	if len(layers) > 0 {
		last := layers[len(layers)-1]
		active = &last
	}
	return ResolveLayerTargetIn(layers, active, target)
}

func (f *Fake) ResolveDocumentTarget(target interface{}) (DocumentInfo, bool) {
	docs := f.Documents()
	active, hasActive := f.ActiveDocument()
	var activePtr *DocumentInfo
	if hasActive {
		activePtr = &active
	}
	return ResolveDocumentTargetIn(docs, activePtr, target)
}

func (f *Fake) CreateLayer(name string) (LayerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.activeDoc()
	if d == nil {
		return LayerInfo{}, fmt.Errorf("createLayer: no active document")
	}
	f.layerSeq++
	l := &fakeLayer{ID: fmt.Sprintf("layer-%d", f.layerSeq), Name: name, Kind: "layer"}
	d.Layers = append(d.Layers, l)
	f.pushHistory()
	return LayerInfo{ID: l.ID, Name: l.Name, Kind: l.Kind}, nil
}

func (f *Fake) findLayer(d *fakeDocument, id string) *fakeLayer {
	for _, l := range d.Layers {
		if l.ID == id {
			return l
		}
	}
	return nil
}

func (f *Fake) RenameLayer(layerID, newName string) (LayerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.activeDoc()
	if d == nil {
		return LayerInfo{}, fmt.Errorf("renameLayer: no active document")
	}
	l := f.findLayer(d, layerID)
	if l == nil {
		return LayerInfo{}, fmt.Errorf("renameLayer: target layer not found: %s", layerID)
	}
	l.Name = newName
	f.pushHistory()
	return LayerInfo{ID: l.ID, Name: l.Name, Kind: l.Kind}, nil
}

func (f *Fake) DeleteLayer(layerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.activeDoc()
	if d == nil {
		return fmt.Errorf("deleteLayer: no active document")
	}
	for i, l := range d.Layers {
		if l.ID == layerID {
			d.Layers = append(d.Layers[:i], d.Layers[i+1:]...)
			f.pushHistory()
			return nil
		}
	}
	return fmt.Errorf("deleteLayer: target layer not found: %s", layerID)
}

func (f *Fake) CreateTextLayer(name, text string) (LayerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.activeDoc()
	if d == nil {
		return LayerInfo{}, fmt.Errorf("createTextLayer: no active document")
	}
	f.layerSeq++
	l := &fakeLayer{ID: fmt.Sprintf("layer-%d", f.layerSeq), Name: name, Text: text, Kind: "layer"}
	d.Layers = append(d.Layers, l)
	f.pushHistory()
	return LayerInfo{ID: l.ID, Name: l.Name, Text: l.Text, Kind: l.Kind}, nil
}

func (f *Fake) SetText(layerID, text string) (LayerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.activeDoc()
	if d == nil {
		return LayerInfo{}, fmt.Errorf("setText: no active document")
	}
	l := f.findLayer(d, layerID)
	if l == nil {
		return LayerInfo{}, fmt.Errorf("setText: target layer not found: %s", layerID)
	}
	l.Text = text
	f.pushHistory()
	return LayerInfo{ID: l.ID, Name: l.Name, Text: l.Text, Kind: l.Kind}, nil
}

func (f *Fake) PlaceAsset(source string) (LayerInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.activeDoc()
	if d == nil {
		return LayerInfo{}, fmt.Errorf("placeAsset: no active document")
	}
	f.layerSeq++
	l := &fakeLayer{ID: fmt.Sprintf("layer-%d", f.layerSeq), Name: source, Kind: "layer"}
	d.Layers = append(d.Layers, l)
	f.pushHistory()
	return LayerInfo{ID: l.ID, Name: l.Name, Kind: l.Kind}, nil
}

func (f *Fake) OpenDocument(path string) (DocumentInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.newDocument(path)
	f.docs = append(f.docs, d)
	f.activeIdx = len(f.docs) - 1
	f.pushHistory()
	return DocumentInfo{ID: d.ID, Title: d.Title}, nil
}

func (f *Fake) ExportAsset(layerID, output string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.activeDoc()
	if d == nil {
		return "", fmt.Errorf("exportAsset: no active document")
	}
	if layerID != "" && f.findLayer(d, layerID) == nil {
		return "", fmt.Errorf("exportAsset: target layer not found: %s", layerID)
	}
	return output, nil
}

func (f *Fake) BatchPlayRaw(commands interface{}) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.activeDoc() == nil {
		return nil, fmt.Errorf("batchPlay: no active document")
	}
	f.pushHistory()
	return map[string]interface{}{"executed": commands}, nil
}

func (f *Fake) CreateSnapshot(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := json.Marshal(f.stateSnapshot())
	if err != nil {
		return fmt.Errorf("createSnapshot: %w", err)
	}
	f.snapshots[name] = data
	return nil
}

func (f *Fake) SelectSnapshot(name string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	target, ok := f.snapshots[name]
	if !ok {
		return false, nil
	}
	current, err := json.Marshal(f.stateSnapshot())
	if err != nil {
		return false, fmt.Errorf("selectSnapshot: marshal current state: %w", err)
	}
	patch, err := jsonpatch.CreateMergePatch(current, target)
	if err != nil {
		return false, fmt.Errorf("selectSnapshot: compute merge patch: %w", err)
	}
	restored, err := jsonpatch.MergePatch(current, patch)
	if err != nil {
		return false, fmt.Errorf("selectSnapshot: apply merge patch: %w", err)
	}
	var state fakeState
	if err := json.Unmarshal(restored, &state); err != nil {
		return false, fmt.Errorf("selectSnapshot: decode restored state: %w", err)
	}
	f.docs, f.activeIdx = state.Docs, state.ActiveIdx
	f.pushHistory()
	return true, nil
}

func (f *Fake) ListStates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.history))
	for i, h := range f.history {
		out[i] = h.id
	}
	return out
}

func (f *Fake) SelectState(stateID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, h := range f.history {
		if h.id == stateID {
			var state fakeState
			if err := json.Unmarshal(h.data, &state); err != nil {
				return false, fmt.Errorf("selectState: decode state %s: %w", stateID, err)
			}
			f.docs, f.activeIdx = state.Docs, state.ActiveIdx
			f.pushHistory()
			return true, nil
		}
	}
	return false, nil
}

func (f *Fake) CurrentStateID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.history) == 0 {
		return ""
	}
	return f.history[len(f.history)-1].id
}
