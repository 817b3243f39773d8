package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/exportops/backend-go/internal/domain"
	"github.com/andresuchdata/exportops/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type ratesRepository struct {
	db *DB
}

func NewRatesRepository(db *DB) repository.RatesRepository {
	return &ratesRepository{db: db}
}

// Rows keep their configured order. The seed inserts them in file order, so
// the identity column replays it and rows[0] stays the first configured row.
const (
	vatRatesQuery = `
		SELECT territory_code, COALESCE(rate_percent, 0) AS rate_percent, start_date, end_date
		FROM vat_rates
		ORDER BY id`

	omRatesQuery = `
		SELECT territory_code, COALESCE(om_rate, 0) AS om_rate, COALESCE(omr_rate, 0) AS omr_rate, start_date, end_date
		FROM om_rates
		ORDER BY id`

	octroiRatesQuery = `
		SELECT territory_code, COALESCE(rate_percent, 0) AS rate_percent, start_date, end_date
		FROM octroi_rates
		ORDER BY id`

	extraTaxRulesQuery = `
		SELECT territory_code, COALESCE(label, '') AS label, COALESCE(rate_percent, 0) AS rate_percent,
		       COALESCE(flat_amount, 0) AS flat_amount, start_date, end_date
		FROM extra_tax_rules
		ORDER BY id`
)

// LoadRates reads the four tables concurrently. A missing table leaves its
// slice empty and adds a warning; any other failure aborts the load.
func (r *ratesRepository) LoadRates(ctx context.Context) (domain.RateSnapshot, error) {
	var (
		set      domain.RateSet
		warnings = make([]string, 4)
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return r.selectTable(gctx, domain.TableVatRates, vatRatesQuery, &set.Vat, &warnings[0])
	})
	g.Go(func() error {
		return r.selectTable(gctx, domain.TableOmRates, omRatesQuery, &set.Om, &warnings[1])
	})
	g.Go(func() error {
		return r.selectTable(gctx, domain.TableOctroiRates, octroiRatesQuery, &set.Octroi, &warnings[2])
	})
	g.Go(func() error {
		return r.selectTable(gctx, domain.TableExtraTaxRules, extraTaxRulesQuery, &set.Extra, &warnings[3])
	})

	if err := g.Wait(); err != nil {
		return domain.RateSnapshot{}, err
	}

	snapshot := domain.RateSnapshot{Rates: set, Warnings: []string{}, LoadedAt: time.Now()}
	for _, w := range warnings {
		if w != "" {
			snapshot.Warnings = append(snapshot.Warnings, w)
		}
	}
	return snapshot, nil
}

func (r *ratesRepository) selectTable(ctx context.Context, table, query string, dest interface{}, warning *string) error {
	w, err := classifyLoadError(table, r.db.SelectContext(ctx, dest, query))
	*warning = w
	return err
}

// classifyLoadError turns a missing reference table into a warning and
// wraps every other failure.
func classifyLoadError(table string, err error) (string, error) {
	if err == nil {
		return "", nil
	}
	if IsMissingTableError(err) {
		log.Warn().Err(err).Str("table", table).Msg("Reference table missing, rates treated as empty")
		return MissingTableWarning(table), nil
	}
	return "", fmt.Errorf("load %s: %w", table, err)
}

// MissingTableWarning is the advisory emitted for an absent reference table.
func MissingTableWarning(table string) string {
	return fmt.Sprintf("table %s absente: taux considérés comme nuls", table)
}
