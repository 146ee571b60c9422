package merkle

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/hirforge/hircompile/pkg/canonicalize"
)

type MerkleLeaf struct {
	Path      string
	LeafBytes []byte
	LeafHash  string
}

type MerkleTree struct {
	Leaves []MerkleLeaf
	Root   string
	Nodes  [][]string // levels of node hashes
}

// BuildMerkleTree constructs a Merkle Tree from a map of path->value.
func BuildMerkleTree(data map[string]interface{}) (*MerkleTree, error) {
	// 1. Extract and sort paths
	paths := make([]string, 0, len(data))
	for k := range data {
		paths = append(paths, k)
	}
	sort.Strings(paths)

	// 2. Build leaves
	leaves := make([]MerkleLeaf, len(paths))
	for i, path := range paths {
		value := data[path]

		// Leaf calculation: "hircompile:canary-bundle:leaf:v1\0" || path || "\0" || Canonical(val)
		canBytes, err := canonicalize.Canonical(value)
		if err != nil {
			return nil, err
		}

		leafBytes := buildLeafBytes(path, canBytes)
		leaves[i] = MerkleLeaf{
			Path:      path,
			LeafBytes: leafBytes,
			LeafHash:  sha256Hex(leafBytes),
		}
	}

	// 3. Build tree bottom-up
	if len(leaves) == 0 {
		return &MerkleTree{Root: ""}, nil // Or specific empty root? Spec doesn't say.
	}

	tree := &MerkleTree{Leaves: leaves}
	currentLevel := extractHashes(leaves)

	for len(currentLevel) > 1 {
		tree.Nodes = append(tree.Nodes, currentLevel)
		currentLevel = buildNextLevel(currentLevel)
	}

	tree.Root = currentLevel[0]
	// Store root level too? Spec implies Nodes stores levels.
	tree.Nodes = append(tree.Nodes, currentLevel)

	return tree, nil
}

func buildLeafBytes(path string, canonical []byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("hircompile:canary-bundle:leaf:v1")
	buf.WriteByte(0)
	buf.WriteString(path)
	buf.WriteByte(0)
	buf.Write(canonical)
	return buf.Bytes()
}

func extractHashes(leaves []MerkleLeaf) []string {
	hashes := make([]string, len(leaves))
	for i, l := range leaves {
		hashes[i] = l.LeafHash
	}
	return hashes
}

func buildNextLevel(hashes []string) []string {
	count := len(hashes)
	if count%2 != 0 {
		hashes = append(hashes, hashes[count-1]) // Duplicate last
		count++
	}

	nextLevel := make([]string, count/2)
	for i := 0; i < count; i += 2 {
		nextLevel[i/2] = buildNodeHash(hashes[i], hashes[i+1])
	}
	return nextLevel
}

func buildNodeHash(left, right string) string {
	var buf bytes.Buffer
	buf.WriteString("hircompile:canary-bundle:node:v1")
	buf.WriteByte(0)
	buf.Write(hexToBytes(left))
	buf.Write(hexToBytes(right))
	return sha256Hex(buf.Bytes())
}

func sha256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func hexToBytes(s string) []byte {
	b, _ := hex.DecodeString(s)
	return b
}

// Prove builds an InclusionProof for path, walking tree.Nodes bottom-up and
// recording each level's sibling hash. A level's last entry pairs with
// itself when the level has odd length, mirroring buildNextLevel's padding.
func (t *MerkleTree) Prove(path string) (InclusionProof, bool) {
	idx := -1
	for i, l := range t.Leaves {
		if l.Path == path {
			idx = i
			break
		}
	}
	if idx < 0 || len(t.Nodes) == 0 {
		return InclusionProof{}, false
	}

	proof := InclusionProof{
		LeafPath:   path,
		LeafHash:   t.Leaves[idx].LeafHash,
		MerkleRoot: t.Root,
	}

	cur := idx
	for level := 0; level < len(t.Nodes)-1; level++ {
		nodes := t.Nodes[level]
		// side records the SIBLING's position, matching VerifyInclusionProof's
		// reading of step.Side ("L" = sibling is left, current is right).
		var sibIdx int
		var side string
		if cur%2 == 0 {
			side = "R" // current is left, sibling is right
			sibIdx = cur + 1
			if sibIdx >= len(nodes) {
				sibIdx = cur // odd tail pairs with itself
			}
		} else {
			side = "L" // current is right, sibling is left
			sibIdx = cur - 1
		}
		proof.ProofPath = append(proof.ProofPath, ProofStep{Side: side, SiblingHash: nodes[sibIdx]})
		cur /= 2
	}

	return proof, true
}
