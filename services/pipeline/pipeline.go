// Package pipeline runs the full batch: fetch through the raw cache,
// normalize, build the star schema, write parquet.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"uefadata-backend/lib/rawcache"
	"uefadata-backend/lib/scrapers/kassiesa"
	"uefadata-backend/lib/scrapers/uefaapi"
	"uefadata-backend/services/columnar"
	"uefadata-backend/services/normalize"
	"uefadata-backend/services/starschema"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/pipeline")

// FetchError wraps a fetch that still failed after the client's own
// retries. The (source, year) it names is skipped, not fatal.
type FetchError struct {
	Source string
	Year   int
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s year %d: %v", e.Source, e.Year, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Options wires the pipeline. Cache is required; nil clients disable
// their sources (cache-only mode).
type Options struct {
	Cache         rawcache.Store
	Kassiesa      *kassiesa.Client
	UefaAPI       *uefaapi.Client
	Aliases       normalize.Aliases
	FromYear      int
	ToYear        int
	RefreshLatest bool
}

type Pipeline struct {
	cache         rawcache.Store
	kassiesa      *kassiesa.Client
	uefaAPI       *uefaapi.Client
	resolver      *normalize.Resolver
	fromYear      int
	toYear        int
	refreshLatest bool
}

func New(opts Options) *Pipeline {
	return &Pipeline{
		cache:         opts.Cache,
		kassiesa:      opts.Kassiesa,
		uefaAPI:       opts.UefaAPI,
		resolver:      normalize.NewResolver(opts.Aliases),
		fromYear:      opts.FromYear,
		toYear:        opts.ToYear,
		refreshLatest: opts.RefreshLatest,
	}
}

// SourceStatus is one (source, year) cell of the run.
type SourceStatus struct {
	Source    string
	Year      int
	FromCache bool
	Skipped   bool
	Err       error
}

// Summary is what the CLI renders after a run.
type Summary struct {
	Statuses     []SourceStatus
	Matches      int
	CountryRanks int
	ClubSeasons  int
	ClubCoeffs   int
	CountryCoefs int
	Files        []string
}

// Fetched counts the statuses that hit the network.
func (s *Summary) Fetched() int {
	n := 0
	for _, status := range s.Statuses {
		if !status.FromCache && status.Err == nil && !status.Skipped {
			n++
		}
	}
	return n
}

type fetchFunc func(ctx context.Context, year int) (payload []byte, prov rawcache.Provenance, err error)

type source struct {
	name  string
	fetch fetchFunc
}

func (p *Pipeline) sources() []source {
	var out []source
	if p.kassiesa != nil {
		out = append(out,
			source{kassiesa.SourceMatches, func(ctx context.Context, year int) ([]byte, rawcache.Provenance, error) {
				res, err := p.kassiesa.FetchMatchPage(ctx, year)
				return res.Body, provenance(res.URL, res.Status, res.FetchedAt), err
			}},
			source{kassiesa.SourceCountries, func(ctx context.Context, year int) ([]byte, rawcache.Provenance, error) {
				res, err := p.kassiesa.FetchCountryRankingPage(ctx, year)
				return res.Body, provenance(res.URL, res.Status, res.FetchedAt), err
			}},
			source{kassiesa.SourceClubSeasons, func(ctx context.Context, year int) ([]byte, rawcache.Provenance, error) {
				res, err := p.kassiesa.FetchClubSeasonPage(ctx, year)
				return res.Body, provenance(res.URL, res.Status, res.FetchedAt), err
			}},
		)
	}
	if p.uefaAPI != nil {
		out = append(out,
			source{uefaapi.SourceClubCoefficients, func(ctx context.Context, year int) ([]byte, rawcache.Provenance, error) {
				res, err := p.uefaAPI.FetchClubCoefficients(ctx, year)
				return res.Body, provenance(res.URL, res.Status, res.FetchedAt), err
			}},
			source{uefaapi.SourceCountryCoefficients, func(ctx context.Context, year int) ([]byte, rawcache.Provenance, error) {
				res, err := p.uefaAPI.FetchCountryCoefficients(ctx, year)
				return res.Body, provenance(res.URL, res.Status, res.FetchedAt), err
			}},
		)
	}
	return out
}

// Fetch fills the cache for every configured (source, year). Cached
// entries are reused without a network call, except the newest year
// when the pipeline was built with RefreshLatest. Failed fetches are
// recorded and skipped.
func (p *Pipeline) Fetch(ctx context.Context) []SourceStatus {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()

	var statuses []SourceStatus
	for year := p.fromYear; year <= p.toYear; year++ {
		for _, src := range p.sources() {
			statuses = append(statuses, p.fetchOne(ctx, src, year))
		}
	}

	span.SetAttributes(attribute.Int("statuses", len(statuses)))
	return statuses
}

func (p *Pipeline) fetchOne(ctx context.Context, src source, year int) SourceStatus {
	status := SourceStatus{Source: src.name, Year: year}

	refresh := p.refreshLatest && year == p.toYear
	if !refresh {
		_, err := p.cache.Get(ctx, src.name, year)
		if err == nil {
			status.FromCache = true
			return status
		}
		if !errors.Is(err, rawcache.ErrNotFound) {
			status.Err = err
			status.Skipped = true
			return status
		}
	}

	payload, prov, err := src.fetch(ctx, year)
	if err != nil {
		status.Err = &FetchError{Source: src.name, Year: year, Err: err}
		status.Skipped = true
		slog.WarnContext(ctx, "skipping source year after failed fetch",
			"source", src.name, "year", year, "err", err)
		return status
	}
	if _, err := p.cache.Put(ctx, src.name, year, payload, prov); err != nil {
		status.Err = err
		status.Skipped = true
		return status
	}
	slog.InfoContext(ctx, "fetched", "source", src.name, "year", year, "bytes", len(payload))
	return status
}

func provenance(url string, status int, fetchedAt time.Time) rawcache.Provenance {
	return rawcache.Provenance{URL: url, Status: status, FetchedAt: fetchedAt}
}

// Run executes the whole batch and writes parquet under outputDir.
func (p *Pipeline) Run(ctx context.Context, outputDir string) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()

	summary := &Summary{Statuses: p.Fetch(ctx)}

	builder := starschema.NewBuilder()
	for year := p.fromYear; year <= p.toYear; year++ {
		if err := p.loadYear(ctx, builder, summary, year); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return summary, err
		}
	}

	schema, err := builder.Build(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	files, err := columnar.NewWriter(outputDir).WriteSchema(ctx, schema)
	summary.Files = files
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	slog.InfoContext(ctx, "pipeline run complete",
		"matches", summary.Matches,
		"club_seasons", summary.ClubSeasons,
		"club_coefficients", summary.ClubCoeffs,
		"country_coefficients", summary.CountryCoefs,
		"files", len(files),
	)
	return summary, nil
}

// loadYear reads one year's cached payloads into the builder. Missing
// cache entries (failed or never fetched) are skipped with a warning.
func (p *Pipeline) loadYear(ctx context.Context, builder *starschema.Builder, summary *Summary, year int) error {
	load := func(source string) ([]byte, bool, error) {
		entry, err := p.cache.Get(ctx, source, year)
		if errors.Is(err, rawcache.ErrNotFound) {
			slog.WarnContext(ctx, "no cache entry, season skipped for source",
				"source", source, "year", year)
			return nil, false, nil
		}
		if err != nil {
			return nil, false, err
		}
		return entry.Payload, true, nil
	}

	if payload, ok, err := load(kassiesa.SourceMatches); err != nil {
		return err
	} else if ok {
		rows, err := kassiesa.ParseMatchPage(kassiesa.Decode(payload), year)
		if err != nil {
			return err
		}
		records := normalize.Matches(ctx, rows, p.resolver)
		summary.Matches += len(records)
		builder.AddMatches(records)
	}

	if payload, ok, err := load(kassiesa.SourceCountries); err != nil {
		return err
	} else if ok {
		rows, err := kassiesa.ParseCountryRankingPage(kassiesa.Decode(payload), year)
		if err != nil {
			return err
		}
		records := normalize.CountryRankings(ctx, rows, p.resolver)
		summary.CountryRanks += len(records)
		builder.AddCountryRankings(records)
	}

	if payload, ok, err := load(kassiesa.SourceClubSeasons); err != nil {
		return err
	} else if ok {
		rows, err := kassiesa.ParseClubSeasonPage(kassiesa.Decode(payload), year)
		if err != nil {
			return err
		}
		records := normalize.ClubSeasons(ctx, rows, p.resolver)
		summary.ClubSeasons += len(records)
		builder.AddClubSeasons(records)
	}

	if payload, ok, err := load(uefaapi.SourceClubCoefficients); err != nil {
		return err
	} else if ok {
		members, err := uefaapi.ParseMembers(payload)
		if err != nil {
			return err
		}
		records := normalize.ClubCoefficients(ctx, members, year, p.resolver)
		summary.ClubCoeffs += len(records)
		builder.AddClubCoefficients(records)
	}

	if payload, ok, err := load(uefaapi.SourceCountryCoefficients); err != nil {
		return err
	} else if ok {
		members, err := uefaapi.ParseMembers(payload)
		if err != nil {
			return err
		}
		records := normalize.CountryCoefficients(ctx, members, year, p.resolver)
		summary.CountryCoefs += len(records)
		builder.AddCountryCoefficients(records)
	}

	return nil
}
