// Package search provides the exact nearest-neighbor vector index and its
// persisted artifacts.
package search

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/smarthealth/quotekit/domain/search"
)

// Artifact file names. Both live in the same directory and are loaded
// together; the metadata array's length must equal the vector count.
const (
	VectorsFile  = "vectors.bin"
	MetadataFile = "meta.json"
)

const (
	indexMagic   = "QKVI"
	indexVersion = uint32(1)

	// minNorm guards normalization against degenerate zero vectors.
	minNorm = 1e-8
)

// FlatIndex is an exact inner-product nearest-neighbor index over
// L2-normalized vectors, equivalent to cosine similarity. It is built or
// loaded offline and then treated as read-only; concurrent searches are
// safe because they only read. Rebuilding means producing a new instance
// and publishing it through a Handle.
type FlatIndex struct {
	dim     int
	vectors []float32 // row-major, dim stride, normalized
	meta    []search.RecordMeta
}

// NewFlatIndex creates an empty index. Dimension is discovered from the
// first vectors stored.
func NewFlatIndex() *FlatIndex {
	return &FlatIndex{}
}

// Build replaces the index contents with the given vectors and metadata.
// Vectors are normalized with max(‖v‖₂, 1e-8) as divisor. Ids are assigned
// by position, 0-based and contiguous.
func (x *FlatIndex) Build(vectors [][]float64, meta []search.RecordMeta) error {
	fresh := &FlatIndex{}
	if err := fresh.Add(vectors, meta); err != nil {
		return err
	}
	*x = *fresh
	return nil
}

// Add appends entries to the index, initializing it when empty. Insertion
// order determines ids; the same normalization rule as Build applies.
func (x *FlatIndex) Add(vectors [][]float64, meta []search.RecordMeta) error {
	if len(vectors) != len(meta) {
		return fmt.Errorf("%w: %d vectors for %d metadata records",
			search.ErrDimensionMismatch, len(vectors), len(meta))
	}
	if len(vectors) == 0 {
		return nil
	}

	dim := x.dim
	if dim == 0 {
		dim = len(vectors[0])
	}

	appended := make([]float32, 0, len(vectors)*dim)
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d",
				search.ErrDimensionMismatch, i, len(v), dim)
		}
		appended = append(appended, normalize(v)...)
	}

	x.dim = dim
	x.vectors = append(x.vectors, appended...)
	x.meta = append(x.meta, meta...)
	return nil
}

// Count returns the number of stored entries.
func (x *FlatIndex) Count() int {
	if x.dim == 0 {
		return 0
	}
	return len(x.vectors) / x.dim
}

// Meta returns the metadata record for the given id.
func (x *FlatIndex) Meta(id int) search.RecordMeta {
	return x.meta[id]
}

// Search returns up to k entries ordered by descending inner-product
// score, ties broken by ascending id. The query is normalized the same
// way stored vectors are. Searching an empty index fails with
// ErrIndexNotLoaded; a query of the wrong dimension fails with
// ErrDimensionMismatch.
func (x *FlatIndex) Search(query []float64, k int) ([]search.Result, error) {
	n := x.Count()
	if n == 0 {
		return nil, search.ErrIndexNotLoaded
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index has %d",
			search.ErrDimensionMismatch, len(query), x.dim)
	}
	if k <= 0 {
		return []search.Result{}, nil
	}
	if k > n {
		k = n
	}

	q := normalize(query)

	type match struct {
		id    int
		score float64
	}
	matches := make([]match, n)
	for id := 0; id < n; id++ {
		row := x.vectors[id*x.dim : (id+1)*x.dim]
		var dot float64
		for j, qv := range q {
			dot += float64(qv) * float64(row[j])
		}
		matches[id] = match{id: id, score: dot}
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].score != matches[j].score {
			return matches[i].score > matches[j].score
		}
		return matches[i].id < matches[j].id
	})

	results := make([]search.Result, k)
	for i := 0; i < k; i++ {
		m := matches[i]
		results[i] = search.NewResult(m.id, m.score, x.meta[m.id])
	}
	return results, nil
}

// Stats reports the index state. An empty index reports the distinct
// not-loaded state instead of erroring.
func (x *FlatIndex) Stats() search.Stats {
	n := x.Count()
	if n == 0 {
		return search.EmptyStats()
	}
	return search.NewStats(n, x.dim, len(x.meta))
}

// Save persists the vector store and the metadata list as two coupled
// artifacts in dir, creating parent directories as needed.
func (x *FlatIndex) Save(dir string) error {
	if x.Count() == 0 {
		return search.ErrIndexNotLoaded
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create index directory: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(indexMagic)
	for _, v := range []uint32{indexVersion, uint32(x.dim), uint32(x.Count())} {
		if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
			return fmt.Errorf("encode index header: %w", err)
		}
	}
	if err := binary.Write(&buf, binary.LittleEndian, x.vectors); err != nil {
		return fmt.Errorf("encode vectors: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, VectorsFile), buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write vector store: %w", err)
	}

	metaJSON, err := json.Marshal(x.meta)
	if err != nil {
		return fmt.Errorf("encode metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, MetadataFile), metaJSON, 0o644); err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}
	return nil
}

// LoadFlatIndex restores an index from the two artifacts in dir. It fails
// with ErrIndexNotFound when either artifact is absent and ErrIndexCorrupt
// when the artifacts are mutually inconsistent.
func LoadFlatIndex(dir string) (*FlatIndex, error) {
	vecPath := filepath.Join(dir, VectorsFile)
	metaPath := filepath.Join(dir, MetadataFile)

	raw, err := os.ReadFile(vecPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", search.ErrIndexNotFound, vecPath)
		}
		return nil, fmt.Errorf("read vector store: %w", err)
	}
	metaJSON, err := os.ReadFile(metaPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", search.ErrIndexNotFound, metaPath)
		}
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	headerSize := len(indexMagic) + 3*4
	if len(raw) < headerSize || string(raw[:4]) != indexMagic {
		return nil, fmt.Errorf("%w: bad vector store header", search.ErrIndexCorrupt)
	}
	version := binary.LittleEndian.Uint32(raw[4:8])
	dim := int(binary.LittleEndian.Uint32(raw[8:12]))
	count := int(binary.LittleEndian.Uint32(raw[12:16]))
	if version != indexVersion {
		return nil, fmt.Errorf("%w: unsupported vector store version %d", search.ErrIndexCorrupt, version)
	}
	if dim <= 0 || count <= 0 {
		return nil, fmt.Errorf("%w: empty vector store", search.ErrIndexCorrupt)
	}

	payload := raw[headerSize:]
	if len(payload) != count*dim*4 {
		return nil, fmt.Errorf("%w: vector payload is %d bytes, want %d",
			search.ErrIndexCorrupt, len(payload), count*dim*4)
	}
	vectors := make([]float32, count*dim)
	if err := binary.Read(bytes.NewReader(payload), binary.LittleEndian, vectors); err != nil {
		return nil, fmt.Errorf("%w: decode vectors: %v", search.ErrIndexCorrupt, err)
	}

	var meta []search.RecordMeta
	if err := json.Unmarshal(metaJSON, &meta); err != nil {
		return nil, fmt.Errorf("%w: decode metadata: %v", search.ErrIndexCorrupt, err)
	}
	if len(meta) != count {
		return nil, fmt.Errorf("%w: %d metadata records for %d vectors",
			search.ErrIndexCorrupt, len(meta), count)
	}

	return &FlatIndex{dim: dim, vectors: vectors, meta: meta}, nil
}

// normalize scales v to unit norm, guarding against zero vectors, and
// quantizes to float32 so that in-memory and persisted vectors score
// identically.
func normalize(v []float64) []float32 {
	var sum float64
	for _, f := range v {
		sum += f * f
	}
	norm := math.Max(math.Sqrt(sum), minNorm)

	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f / norm)
	}
	return out
}
