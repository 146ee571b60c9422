// Package discoveryset is the content-addressed store for HIR hypotheses,
// their canary receipts, and exported bundles — the Go equivalent of
// original_source/src/discos/registry/workspace.py's Workspace, adapted to
// the teacher's pkg/registry indexing idiom (sync.RWMutex-guarded maps,
// google/uuid-tagged events) for an in-process event log alongside the
// on-disk object store.
//
// pkg/discoveryset is a segregated adapter: pkg/hir, pkg/admissibility,
// pkg/watgen, pkg/canary, and pkg/pipeline have no dependency on it, so a
// caller that only needs the compiler core never pays for file I/O.
package discoveryset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hirforge/hircompile/pkg/canary"
	"github.com/hirforge/hircompile/pkg/canonicalize"
	"github.com/hirforge/hircompile/pkg/config"
	"github.com/hirforge/hircompile/pkg/hir"
)

// StoredEvent records one store/write event against the workspace, indexed
// in memory for the lifetime of the process — useful for a CLI or server
// that wants a recent-activity view without re-scanning the object store.
type StoredEvent struct {
	EventID   string    `json:"event_id"`
	HidStruct string    `json:"hid_struct"`
	Kind      string    `json:"kind"` // "hypothesis" | "receipt" | "bundle"
	At        time.Time `json:"at"`
}

// Workspace is the on-disk content-addressed store rooted at cfg's
// workspace directory, plus an in-memory index of events written through
// it during this process's lifetime.
type Workspace struct {
	cfg config.Config

	mu     sync.RWMutex
	events []StoredEvent
	byHid  map[string][]string // hid_struct -> event IDs, declaration order
}

// New returns a Workspace bound to cfg. Init must be called before any
// store/load operation if the workspace directories may not yet exist.
func New(cfg config.Config) *Workspace {
	return &Workspace{cfg: cfg, byHid: make(map[string][]string)}
}

// Init creates the workspace's root, objects, receipts, and bundles
// directories if they do not already exist.
func (w *Workspace) Init() error {
	for _, dir := range []string{
		w.cfg.WorkspacePath(),
		w.cfg.ObjectsPath(),
		w.cfg.ReceiptsPath(),
		w.cfg.BundlesPath(),
	} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("init workspace dir %q: %w", dir, err)
		}
	}
	return nil
}

type hypothesisMeta struct {
	HidStruct         string `json:"hid_struct"`
	FamilyID          string `json:"family_id"`
	ConfigFingerprint string `json:"config_fingerprint"`
}

// StoreHypothesis writes h's canonical JSON to the content-addressed object
// store and returns its hid_struct. Writing is idempotent: if an object
// with that digest already exists it is left untouched, matching
// Workspace.store_hypothesis's exists-check.
func (w *Workspace) StoreHypothesis(h hir.HIR, familyID string) (string, error) {
	hid, err := canonicalize.HidStruct(h.CanonicalValue())
	if err != nil {
		return "", fmt.Errorf("digest hypothesis: %w", err)
	}

	objPath := filepath.Join(w.cfg.ObjectsPath(), hid+".json")
	if _, err := os.Stat(objPath); os.IsNotExist(err) {
		canon, err := canonicalize.Canonical(h.CanonicalValue())
		if err != nil {
			return "", fmt.Errorf("canonicalize hypothesis: %w", err)
		}
		if err := os.WriteFile(objPath, canon, 0o644); err != nil {
			return "", fmt.Errorf("write hypothesis object: %w", err)
		}
		// The fingerprint records which effective config (gate mode, engine
		// preference, canary cap) produced this object, using the teacher's
		// RFC 8785 JCS transform rather than Canonical/HidStruct since a
		// Config has no NaN/Inf fields to worry about.
		fingerprint, err := canonicalize.CanonicalHash(w.cfg)
		if err != nil {
			return "", fmt.Errorf("fingerprint config: %w", err)
		}
		meta := hypothesisMeta{HidStruct: hid, FamilyID: familyID, ConfigFingerprint: fingerprint}
		metaBytes, err := json.MarshalIndent(meta, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal hypothesis metadata: %w", err)
		}
		metaPath := filepath.Join(w.cfg.ObjectsPath(), hid+".meta.json")
		if err := os.WriteFile(metaPath, metaBytes, 0o644); err != nil {
			return "", fmt.Errorf("write hypothesis metadata: %w", err)
		}
	}

	w.recordEvent(hid, "hypothesis")
	return hid, nil
}

// LoadHypothesis reads back the canonical HIR JSON that StoreHypothesis
// wrote under hidStruct and decodes it through hir.HIR's UnmarshalJSON into
// a typed value.
func (w *Workspace) LoadHypothesis(hidStruct string) (hir.HIR, error) {
	objPath := filepath.Join(w.cfg.ObjectsPath(), hidStruct+".json")
	data, err := os.ReadFile(objPath)
	if err != nil {
		return hir.HIR{}, fmt.Errorf("load hypothesis %q: %w", hidStruct, err)
	}
	var h hir.HIR
	if err := json.Unmarshal(data, &h); err != nil {
		return hir.HIR{}, fmt.Errorf("parse hypothesis %q: %w", hidStruct, err)
	}
	return h, nil
}

// WriteReceipt persists a canary receipt for hidStruct under the given lane
// name (e.g. "CANARY"), mirroring Workspace.write_receipt's
// "<hid>.<lane>.receipt.json" naming.
func (w *Workspace) WriteReceipt(hidStruct, lane string, rec canary.Receipt) (string, error) {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal receipt: %w", err)
	}
	path := filepath.Join(w.cfg.ReceiptsPath(), fmt.Sprintf("%s.%s.receipt.json", hidStruct, lowerASCII(lane)))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write receipt: %w", err)
	}
	w.recordEvent(hidStruct, "receipt")
	return path, nil
}

// ListReceipts returns the sorted paths of every receipt written for
// hidStruct, across all lanes.
func (w *Workspace) ListReceipts(hidStruct string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(w.cfg.ReceiptsPath(), hidStruct+".*.receipt.json"))
	if err != nil {
		return nil, fmt.Errorf("list receipts for %q: %w", hidStruct, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// recordEvent appends a StoredEvent to the in-memory index, tagging it with
// a fresh UUID the same way the teacher's pkg/registry tags pack entries.
func (w *Workspace) recordEvent(hidStruct, kind string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ev := StoredEvent{EventID: uuid.New().String(), HidStruct: hidStruct, Kind: kind, At: time.Now()}
	w.events = append(w.events, ev)
	w.byHid[hidStruct] = append(w.byHid[hidStruct], ev.EventID)
}

// Events returns every recorded event for hidStruct, oldest first.
func (w *Workspace) Events(hidStruct string) []StoredEvent {
	w.mu.RLock()
	defer w.mu.RUnlock()
	ids := w.byHid[hidStruct]
	out := make([]StoredEvent, 0, len(ids))
	byID := make(map[string]StoredEvent, len(w.events))
	for _, ev := range w.events {
		byID[ev.EventID] = ev
	}
	for _, id := range ids {
		out = append(out, byID[id])
	}
	return out
}

func lowerASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}
