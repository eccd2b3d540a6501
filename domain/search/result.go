package search

// Result is one ranked hit from a vector index search: a read-only
// projection of an index entry plus the query-specific score.
type Result struct {
	id      int
	score   float64
	snippet string
	premium *float64
}

// NewResult creates a new Result.
func NewResult(id int, score float64, meta RecordMeta) Result {
	return Result{
		id:      id,
		score:   score,
		snippet: meta.Text,
		premium: meta.PremiumINR,
	}
}

// ID returns the entry's insertion-order id.
func (r Result) ID() int { return r.id }

// Score returns the inner-product similarity to the query.
func (r Result) Score() float64 { return r.score }

// Snippet returns the entry's display text.
func (r Result) Snippet() string { return r.snippet }

// PremiumINR returns the historical premium, or nil when unknown.
func (r Result) PremiumINR() *float64 { return r.premium }

// Stats describes the state of a vector index.
type Stats struct {
	loaded        bool
	count         int
	dimension     int
	metadataCount int
}

// NewStats creates index stats for a loaded index.
func NewStats(count, dimension, metadataCount int) Stats {
	return Stats{
		loaded:        true,
		count:         count,
		dimension:     dimension,
		metadataCount: metadataCount,
	}
}

// EmptyStats reports the distinct not-loaded state of an empty index.
func EmptyStats() Stats { return Stats{} }

// Loaded reports whether the index holds any entries.
func (s Stats) Loaded() bool { return s.loaded }

// Count returns the number of stored vectors.
func (s Stats) Count() int { return s.count }

// Dimension returns the vector dimension.
func (s Stats) Dimension() int { return s.dimension }

// MetadataCount returns the number of metadata records.
func (s Stats) MetadataCount() int { return s.metadataCount }
