package discoveryset

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hirforge/hircompile/pkg/canonicalize"
	"github.com/hirforge/hircompile/pkg/merkle"
)

// bundleManifest records the hash of every file written into a bundle plus
// a Merkle root over their parsed JSON content, so a recipient can verify a
// single file's membership with an InclusionProof instead of re-hashing the
// whole bundle.
type bundleManifest struct {
	HidStruct  string            `json:"hid_struct"`
	Files      map[string]string `json:"files"`
	MerkleRoot string            `json:"merkle_root"`
}

// BuildBundle assembles a Proof-Carrying Discovery Bundle: the canonical
// HIR, every receipt written for it, and a manifest of content hashes,
// packed into a zip archive at outPath.
//
// Grounded on original_source/src/discos/artifact/bundle.py's
// build_pcdb_bundle; archive/zip replaces Python's zipfile (the examples
// carry no third-party archive format, so this is the one place this
// package reaches for the standard library over an ecosystem dependency —
// there is no zip/tar library in the retrieval pack to ground an
// alternative on).
func (w *Workspace) BuildBundle(hidStruct, outPath string) (string, error) {
	hirPath := filepath.Join(w.cfg.ObjectsPath(), hidStruct+".json")
	hirBytes, err := os.ReadFile(hirPath)
	if err != nil {
		return "", fmt.Errorf("read stored hypothesis %q: %w", hidStruct, err)
	}

	receipts, err := w.ListReceipts(hidStruct)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", fmt.Errorf("create bundle output dir: %w", err)
	}

	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create bundle %q: %w", outPath, err)
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)

	manifest := bundleManifest{HidStruct: hidStruct, Files: map[string]string{}}
	merkleInput := map[string]interface{}{}

	addFile := func(arcname string, data []byte) error {
		fw, err := zw.Create(arcname)
		if err != nil {
			return fmt.Errorf("create zip entry %q: %w", arcname, err)
		}
		if _, err := fw.Write(data); err != nil {
			return fmt.Errorf("write zip entry %q: %w", arcname, err)
		}
		manifest.Files[arcname] = canonicalize.HashBytes(data)
		var parsed any
		if err := json.Unmarshal(data, &parsed); err == nil {
			merkleInput[arcname] = parsed
		}
		return nil
	}

	if err := addFile("hir.json", hirBytes); err != nil {
		_ = zw.Close()
		return "", err
	}

	for _, rp := range receipts {
		data, err := os.ReadFile(rp)
		if err != nil {
			_ = zw.Close()
			return "", fmt.Errorf("read receipt %q: %w", rp, err)
		}
		if err := addFile("receipts/"+filepath.Base(rp), data); err != nil {
			_ = zw.Close()
			return "", err
		}
	}

	tree, err := merkle.BuildMerkleTree(merkleInput)
	if err != nil {
		_ = zw.Close()
		return "", fmt.Errorf("build bundle merkle tree: %w", err)
	}
	manifest.MerkleRoot = tree.Root

	manifestBytes, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		_ = zw.Close()
		return "", fmt.Errorf("marshal bundle manifest: %w", err)
	}
	if err := addFile("manifest.json", manifestBytes); err != nil {
		_ = zw.Close()
		return "", err
	}

	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("finalize bundle %q: %w", outPath, err)
	}

	w.recordEvent(hidStruct, "bundle")
	return outPath, nil
}
