// Package importer loads reference rates, sales/cost lines and
// reconciliation inputs from CSV or XLSX files into the store.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Dataset kinds, one per seed subcommand.
const (
	KindRates          = "rates"
	KindLines          = "lines"
	KindReconciliation = "reconciliation"
)

// Dataset file stems. A file belongs to a dataset when its base name is the
// stem or starts with stem + "_" (vat_rates_2024.xlsx).
const (
	DatasetVatRates          = domain.TableVatRates
	DatasetOmRates           = domain.TableOmRates
	DatasetOctroiRates       = domain.TableOctroiRates
	DatasetExtraTaxRules     = domain.TableExtraTaxRules
	DatasetSalesLines        = "sales_lines"
	DatasetCostLines         = "cost_lines"
	DatasetClientInvoices    = "client_invoices"
	DatasetCostDocuments     = "cost_documents"
	DatasetCostDocumentLines = "cost_document_lines"
)

var kindDatasets = map[string][]string{
	KindRates:          {DatasetVatRates, DatasetOmRates, DatasetOctroiRates, DatasetExtraTaxRules},
	KindLines:          {DatasetSalesLines, DatasetCostLines},
	KindReconciliation: {DatasetClientInvoices, DatasetCostDocuments, DatasetCostDocumentLines},
}

// Kinds lists the dataset kinds in import order.
func Kinds() []string {
	return []string{KindRates, KindLines, KindReconciliation}
}

// Store is the write side used by the importer.
type Store interface {
	ReplaceRates(ctx context.Context, set domain.RateSet) error
	InsertSalesLines(ctx context.Context, lines []domain.SalesLine) error
	InsertCostLines(ctx context.Context, lines []domain.CostLine) error
	UpsertClientInvoices(ctx context.Context, invoices []domain.ClientInvoice) error
	UpsertCostDocs(ctx context.Context, docs []domain.CostDoc) error
}

// Summary reports what one import wrote.
type Summary struct {
	Kind  string         `json:"kind"`
	Files []string       `json:"files"`
	Rows  map[string]int `json:"rows"`
}

type Importer struct {
	store   Store
	workers int
}

// New returns an importer parsing at most workers files at once.
func New(store Store, workers int) *Importer {
	if workers < 1 {
		workers = 1
	}
	return &Importer{store: store, workers: workers}
}

// Import reads every file of kind found in files and writes the result.
// Files of other kinds are ignored.
func (im *Importer) Import(ctx context.Context, kind string, files []string) (Summary, error) {
	datasets, ok := kindDatasets[kind]
	if !ok {
		return Summary{}, fmt.Errorf("unknown import kind %q", kind)
	}

	selected := SelectFiles(files, datasets)
	summary := Summary{Kind: kind, Files: []string{}, Rows: map[string]int{}}
	for _, fs := range selected {
		summary.Files = append(summary.Files, fs...)
	}
	sort.Strings(summary.Files)

	if len(summary.Files) == 0 {
		log.Warn().Str("kind", kind).Msg("No file to import")
		return summary, nil
	}

	records, err := im.readAll(ctx, selected)
	if err != nil {
		return summary, err
	}

	switch kind {
	case KindRates:
		err = im.writeRates(ctx, records, summary.Rows)
	case KindLines:
		err = im.writeLines(ctx, records, summary.Rows)
	case KindReconciliation:
		err = im.writeReconciliation(ctx, records, summary.Rows)
	}
	if err != nil {
		return summary, err
	}

	log.Info().Str("kind", kind).Int("files", len(summary.Files)).Interface("rows", summary.Rows).Msg("Import completed")
	return summary, nil
}

// readAll parses the selected files with a bounded worker pool. Records of a
// dataset are merged in file path order whatever order the parses finish in.
func (im *Importer) readAll(ctx context.Context, selected map[string][]string) (map[string][]Record, error) {
	parsed := make(map[string][][]Record, len(selected))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.workers)

	for dataset, files := range selected {
		files = append([]string(nil), files...)
		sort.Strings(files)
		slots := make([][]Record, len(files))
		parsed[dataset] = slots

		for i, path := range files {
			dataset, i, path := dataset, i, path
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				recs, err := ReadFile(path)
				if err != nil {
					return err
				}
				log.Debug().Str("file", path).Str("dataset", dataset).Int("rows", len(recs)).Msg("File parsed")
				slots[i] = recs
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]Record, len(parsed))
	for dataset, slots := range parsed {
		var recs []Record
		for _, r := range slots {
			recs = append(recs, r...)
		}
		out[dataset] = recs
	}
	return out, nil
}

func (im *Importer) writeRates(ctx context.Context, records map[string][]Record, rows map[string]int) error {
	set := domain.RateSet{
		Vat:    toVatRates(records[DatasetVatRates]),
		Om:     toOmRates(records[DatasetOmRates]),
		Octroi: toOctroiRates(records[DatasetOctroiRates]),
		Extra:  toExtraTaxRules(records[DatasetExtraTaxRules]),
	}
	rows[DatasetVatRates] = len(set.Vat)
	rows[DatasetOmRates] = len(set.Om)
	rows[DatasetOctroiRates] = len(set.Octroi)
	rows[DatasetExtraTaxRules] = len(set.Extra)

	if err := im.store.ReplaceRates(ctx, set); err != nil {
		return fmt.Errorf("failed to import rates: %w", err)
	}
	return nil
}

func (im *Importer) writeLines(ctx context.Context, records map[string][]Record, rows map[string]int) error {
	sales := toSalesLines(records[DatasetSalesLines])
	costs := toCostLines(records[DatasetCostLines])
	rows[DatasetSalesLines] = len(sales)
	rows[DatasetCostLines] = len(costs)

	if len(sales) > 0 {
		if err := im.store.InsertSalesLines(ctx, sales); err != nil {
			return fmt.Errorf("failed to import sales lines: %w", err)
		}
	}
	if len(costs) > 0 {
		if err := im.store.InsertCostLines(ctx, costs); err != nil {
			return fmt.Errorf("failed to import cost lines: %w", err)
		}
	}
	return nil
}

func (im *Importer) writeReconciliation(ctx context.Context, records map[string][]Record, rows map[string]int) error {
	invoices := toClientInvoices(records[DatasetClientInvoices])
	docs := toCostDocs(records[DatasetCostDocuments], records[DatasetCostDocumentLines])
	rows[DatasetClientInvoices] = len(invoices)
	rows[DatasetCostDocuments] = len(docs)
	lineCount := 0
	for _, d := range docs {
		lineCount += len(d.Lines)
	}
	rows[DatasetCostDocumentLines] = lineCount

	if len(invoices) > 0 {
		if err := im.store.UpsertClientInvoices(ctx, invoices); err != nil {
			return fmt.Errorf("failed to import client invoices: %w", err)
		}
	}
	if len(docs) > 0 {
		if err := im.store.UpsertCostDocs(ctx, docs); err != nil {
			return fmt.Errorf("failed to import cost documents: %w", err)
		}
	}
	return nil
}

// SelectFiles groups the supported files by the dataset their name designates.
func SelectFiles(files []string, datasets []string) map[string][]string {
	out := make(map[string][]string)
	for _, path := range files {
		if !Supported(path) {
			continue
		}
		base := filepath.Base(path)
		stem := NormalizeHeader(strings.TrimSuffix(base, filepath.Ext(base)))
		for _, ds := range datasets {
			if stem == ds || strings.HasPrefix(stem, ds+"_") {
				out[ds] = append(out[ds], path)
				break
			}
		}
	}
	return out
}

// Supported reports whether the file extension can be read.
func Supported(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".txt", ".xlsx", ".xlsm":
		return true
	}
	return false
}

// ListDir returns the supported files directly under dir.
func ListDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !Supported(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.Strings(files)
	return files, nil
}
