package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/smarthealth/quotekit/domain/profile"
	"github.com/smarthealth/quotekit/domain/search"
	vecsearch "github.com/smarthealth/quotekit/infrastructure/search"
	"github.com/smarthealth/quotekit/internal/log"
)

// Defaults for the ingestion pipeline.
const (
	DefaultIngestBatchSize = 32
	DefaultIngestParallel  = 4
)

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	Records   int
	Dimension int
	IndexDir  string
}

// Ingestion builds the vector index from a CSV of historical quotes:
// each row becomes one encoded record text, texts are embedded in
// bounded-parallel batches, and the resulting index is saved to disk.
type Ingestion struct {
	embedder  search.Embedder
	batchSize int
	parallel  int
	logger    *log.Logger
}

// IngestionOption configures an Ingestion.
type IngestionOption func(*Ingestion)

// WithIngestBatchSize sets how many texts go into one embedding request.
func WithIngestBatchSize(n int) IngestionOption {
	return func(i *Ingestion) {
		if n > 0 {
			i.batchSize = n
		}
	}
}

// WithIngestParallel sets how many embedding batches run concurrently.
func WithIngestParallel(n int) IngestionOption {
	return func(i *Ingestion) {
		if n > 0 {
			i.parallel = n
		}
	}
}

// WithIngestLogger sets the ingestion logger.
func WithIngestLogger(l *log.Logger) IngestionOption {
	return func(i *Ingestion) { i.logger = l }
}

// NewIngestion creates an Ingestion pipeline.
func NewIngestion(embedder search.Embedder, opts ...IngestionOption) *Ingestion {
	ing := &Ingestion{
		embedder:  embedder,
		batchSize: DefaultIngestBatchSize,
		parallel:  DefaultIngestParallel,
		logger:    log.Default(),
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestCSV reads the CSV at csvPath, embeds up to limit records (all when
// limit <= 0), builds the index, and saves it under indexDir.
func (i *Ingestion) IngestCSV(ctx context.Context, csvPath, indexDir string, limit int) (IngestStats, error) {
	records, err := readQuoteCSV(csvPath, limit)
	if err != nil {
		return IngestStats{}, err
	}
	if len(records) == 0 {
		return IngestStats{}, fmt.Errorf("no records in %s", csvPath)
	}
	i.logger.Info("loaded quote records", "path", csvPath, "count", len(records))

	texts := make([]string, len(records))
	meta := make([]search.RecordMeta, len(records))
	for n, rec := range records {
		texts[n] = profile.EncodeText(rec.profile)
		meta[n] = search.RecordMeta{
			Text:       texts[n],
			PremiumINR: rec.premium,
			Extra:      rec.extra,
		}
	}

	vectors, err := i.embedAll(ctx, texts)
	if err != nil {
		return IngestStats{}, fmt.Errorf("embed records: %w", err)
	}

	idx := vecsearch.NewFlatIndex()
	if err := idx.Build(vectors, meta); err != nil {
		return IngestStats{}, fmt.Errorf("build index: %w", err)
	}
	if err := idx.Save(indexDir); err != nil {
		return IngestStats{}, fmt.Errorf("save index: %w", err)
	}

	stats := idx.Stats()
	i.logger.Info("index built",
		"records", stats.Count(),
		"dimension", stats.Dimension(),
		"dir", indexDir,
	)
	return IngestStats{
		Records:   stats.Count(),
		Dimension: stats.Dimension(),
		IndexDir:  indexDir,
	}, nil
}

// embedAll embeds texts in batches, up to i.parallel batches in flight.
// Results keep the input order.
func (i *Ingestion) embedAll(ctx context.Context, texts []string) ([][]float64, error) {
	vectors := make([][]float64, len(texts))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(i.parallel)

	for start := 0; start < len(texts); start += i.batchSize {
		end := min(start+i.batchSize, len(texts))
		batch := texts[start:end]
		offset := start

		g.Go(func() error {
			embedded, err := i.embedder.Embed(ctx, batch)
			if err != nil {
				return err
			}
			if len(embedded) != len(batch) {
				return fmt.Errorf("%w: got %d vectors for %d texts",
					search.ErrDimensionMismatch, len(embedded), len(batch))
			}
			mu.Lock()
			copy(vectors[offset:], embedded)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// quoteRecord is one parsed CSV row.
type quoteRecord struct {
	profile profile.Profile
	premium *float64
	extra   map[string]any
}

// readQuoteCSV parses the historical quote CSV into profiles. Column
// headers follow the source dataset (Age, Gender, Location, ...,
// Premium_INR); unknown columns are preserved as metadata extras.
func readQuoteCSV(path string, limit int) ([]quoteRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for idx, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = idx
	}

	var records []quoteRecord
	for {
		if limit > 0 && len(records) >= limit {
			break
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row %d: %w", len(records)+2, err)
		}
		records = append(records, parseQuoteRow(header, cols, row))
	}
	return records, nil
}

func parseQuoteRow(header []string, cols map[string]int, row []string) quoteRecord {
	field := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	p := profile.Profile{
		Age:                    intField(field("age")),
		Gender:                 field("gender"),
		Location:               field("location"),
		Occupation:             field("occupation"),
		NumberOfInsuredMembers: intField(field("number_of_insured_members")),
		FamilyDetails:          field("family_details"),
		PreExistingConditions:  field("pre_existing_conditions"),
		PastMedicalHistory:     field("past_medical_history"),
		FamilyMedicalHistory:   field("family_medical_history"),
		HeightCM:               floatField(field("height_cm")),
		WeightKG:               floatField(field("weight_kg")),
		PregnancyStatus:        field("pregnancy_status"),
		SmokingTobaccoUse:      field("smoking_tobacco_use"),
		AlcoholConsumption:     field("alcohol_consumption"),
		ExerciseFrequency:      field("exercise_frequency"),
		PlanType:               field("plan_type"),
		SumInsured:             intField(field("sum_insured")),
		PolicyTermYears:        intField(field("policy_term_years")),
		PremiumPaymentMode:     field("premium_payment_mode"),
	}

	premium := floatField(field("premium_inr"))

	extra := make(map[string]any)
	for idx, name := range header {
		if idx >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[idx])
		if value == "" {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "premium_inr" {
			continue
		}
		extra[key] = value
	}
	if len(extra) == 0 {
		extra = nil
	}

	return quoteRecord{profile: p, premium: premium, extra: extra}
}

func intField(s string) *int {
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		// Tolerate "2.0" style numerics from spreadsheet exports.
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil {
			return nil
		}
		v = int(f)
	}
	return &v
}

func floatField(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
