// Package alias implements the canonical-op-name lookup: a
// case/punctuation-insensitive alias table mapping arbitrary spellings of an
// op name onto one registered primary name, plus the two explicit
// classification sets (active-document-optional, layer-target-required)
// consulted by preflight.
package alias

import (
	"strings"
	"sync"

	"github.com/lyzr/obe/internal/obe/obeerr"
)

// CanonicalKey implements `lower(strip-non-alnum(s))`, exported so tests
// can assert the lookup's case/punctuation insensitivity without reaching
// into the table's internals.
func CanonicalKey(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Table holds canonicalKey -> primaryName plus the two classification sets.
// It is read-mostly after startup registration, so a single RWMutex is
// enough to make it safe if a caller registers handlers lazily from more
// than one goroutine.
type Table struct {
	mu                  sync.RWMutex
	byKey               map[string]string
	activeDocOptional   map[string]bool
	layerTargetRequired map[string]bool
	documentKindRefBind map[string]bool
}

// New returns a Table pre-populated with the illustrative handler catalog's
// primary names, their classification, and a representative set of aliases
// (including reversed-word-order spellings like "Layer.Create" and
// "LAYER-DELETE", which cannot be derived from CanonicalKey alone).
func New() *Table {
	t := &Table{
		byKey:               make(map[string]string),
		activeDocOptional:   make(map[string]bool),
		layerTargetRequired: make(map[string]bool),
		documentKindRefBind: make(map[string]bool),
	}

	t.Register("createLayer", "layer.create", "Layer.Create", "addLayer", "new_layer")
	t.Register("renameLayer", "layer.rename", "renameLayer")
	t.RegisterWithTarget("deleteLayer", "layer.delete", "LAYER-DELETE", "removeLayer")
	t.RegisterWithTarget("duplicateLayer", "layer.duplicate")
	t.Register("createTextLayer", "layer.createText", "addTextLayer")
	t.RegisterWithTarget("setText", "text.set", "updateText")
	t.RegisterWithTarget("placeAsset", "asset.place", "placeFile")
	t.RegisterWithTarget("replaceSmartObject", "smartObject.replace")
	t.RegisterWithTarget("relinkSmartObject", "smartObject.relink")
	t.RegisterActiveDocOptional("openDocument", "doc.open", "document.open")
	t.RegisterActiveDocOptional("createDocument", "doc.create", "document.create")
	t.RegisterWithTarget("exportAsset", "export.asset")
	t.Register("exportLayerByName", "export.byName")
	t.Register("batchPlay", "batch.play")

	t.documentKindRefBind["opendocument"] = true
	t.documentKindRefBind["createdocument"] = true

	return t
}

// Register adds a primary name and any number of aliases to the table. The
// primary name is always registered under its own canonical key too.
func (t *Table) Register(primary string, aliases ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byKey[CanonicalKey(primary)] = primary
	for _, a := range aliases {
		t.byKey[CanonicalKey(a)] = primary
	}
}

// RegisterWithTarget is Register plus marking primary as layer-target-required.
func (t *Table) RegisterWithTarget(primary string, aliases ...string) {
	t.Register(primary, aliases...)
	t.mu.Lock()
	t.layerTargetRequired[CanonicalKey(primary)] = true
	t.mu.Unlock()
}

// RegisterActiveDocOptional is Register plus marking primary as not
// requiring an already-active document at preflight time (document
// creators and openers).
func (t *Table) RegisterActiveDocOptional(primary string, aliases ...string) {
	t.Register(primary, aliases...)
	t.mu.Lock()
	t.activeDocOptional[CanonicalKey(primary)] = true
	t.mu.Unlock()
}

// Canonicalize resolves an arbitrary op spelling to its primary name.
func (t *Table) Canonicalize(op string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	primary, ok := t.byKey[CanonicalKey(op)]
	if !ok {
		return "", &obeerr.UnknownOpError{Op: op}
	}
	return primary, nil
}

// IsActiveDocumentOptional reports whether the canonical op may run without
// a currently active document.
func (t *Table) IsActiveDocumentOptional(canonicalOp string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.activeDocOptional[CanonicalKey(canonicalOp)]
}

// IsLayerTargetRequired reports whether the canonical op must resolve a
// target layer during preflight.
func (t *Table) IsLayerTargetRequired(canonicalOp string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.layerTargetRequired[CanonicalKey(canonicalOp)]
}

// IsDocumentKindRefBind reports whether a dry-run placeholder bound for this
// canonical op should be document-kind rather than layer-kind.
func (t *Table) IsDocumentKindRefBind(canonicalOp string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.documentKindRefBind[CanonicalKey(canonicalOp)]
}
