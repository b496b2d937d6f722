// Package rawcache stores raw fetched payloads per (source, year) so a
// re-run of the pipeline never refetches what it already has. Entries
// are immutable: a new Put for the same key creates a new timestamped
// entry instead of overwriting, and Get always returns the newest one.
package rawcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("lib/rawcache")

var ErrNotFound = errors.New("no cache entry for source/year")

// Provenance records where a cached payload came from.
type Provenance struct {
	URL       string    `json:"url"`
	Status    int       `json:"status"`
	FetchedAt time.Time `json:"fetched_at"`
}

type Entry struct {
	Source     string
	Year       int
	Stamp      string
	Payload    []byte
	Provenance Provenance
}

type Store interface {
	// Get returns the newest entry for (source, year), or ErrNotFound.
	Get(ctx context.Context, source string, year int) (Entry, error)
	// Put writes a new immutable entry for (source, year).
	Put(ctx context.Context, source string, year int, payload []byte, prov Provenance) (Entry, error)
	// List returns every entry (payloads omitted), newest last per key.
	List(ctx context.Context) ([]Entry, error)
}

const stampLayout = "20060102T150405.000000000Z"

// FS is the on-disk store. Layout:
//
//	<root>/<source>/<year>/<stamp>/payload
//	<root>/<source>/<year>/<stamp>/provenance.json
type FS struct {
	root string
	now  func() time.Time
}

func NewFS(root string) FS {
	return FS{root: root, now: time.Now}
}

// NewFSWithClock exists so tests can pin entry stamps.
func NewFSWithClock(root string, now func() time.Time) FS {
	return FS{root: root, now: now}
}

func (s FS) keyDir(source string, year int) string {
	return filepath.Join(s.root, source, strconv.Itoa(year))
}

func (s FS) Get(ctx context.Context, source string, year int) (Entry, error) {
	ctx, span := tracer.Start(ctx, "Get")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", source),
		attribute.Int("year", year),
	)

	dir := s.keyDir(source, year)
	stamps, err := readStamps(dir)
	if err != nil {
		// only a missing key dir means "not cached"; a cache that
		// cannot be read must not look like a cache miss
		if os.IsNotExist(err) {
			return Entry{}, ErrNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read cache directory")
		return Entry{}, err
	}
	if len(stamps) == 0 {
		return Entry{}, ErrNotFound
	}
	newest := stamps[len(stamps)-1]

	entry, err := readEntry(filepath.Join(dir, newest), source, year, newest, true)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to read cache entry")
		return Entry{}, err
	}
	span.SetAttributes(attribute.Int("payload_size", len(entry.Payload)))
	return entry, nil
}

func (s FS) Put(ctx context.Context, source string, year int, payload []byte, prov Provenance) (Entry, error) {
	ctx, span := tracer.Start(ctx, "Put")
	defer span.End()
	span.SetAttributes(
		attribute.String("source", source),
		attribute.Int("year", year),
		attribute.Int("payload_size", len(payload)),
	)

	stamp := s.now().UTC().Format(stampLayout)
	dir := filepath.Join(s.keyDir(source, year), stamp)
	if _, err := os.Stat(dir); err == nil {
		err = fmt.Errorf("cache entry %s/%d/%s already exists", source, year, stamp)
		span.RecordError(err)
		span.SetStatus(codes.Error, "refusing to overwrite cache entry")
		return Entry{}, err
	}

	// build the entry in a temp dir, then rename it into place so a
	// killed run never leaves a half-written entry behind
	if err := os.MkdirAll(s.keyDir(source, year), 0o755); err != nil {
		return Entry{}, err
	}
	tmp, err := os.MkdirTemp(s.keyDir(source, year), ".tmp-")
	if err != nil {
		return Entry{}, err
	}
	defer os.RemoveAll(tmp)

	if err := os.WriteFile(filepath.Join(tmp, "payload"), payload, 0o644); err != nil {
		return Entry{}, err
	}
	sidecar, err := json.MarshalIndent(prov, "", "  ")
	if err != nil {
		return Entry{}, err
	}
	if err := os.WriteFile(filepath.Join(tmp, "provenance.json"), sidecar, 0o644); err != nil {
		return Entry{}, err
	}
	if err := os.Rename(tmp, dir); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to commit cache entry")
		return Entry{}, err
	}

	return Entry{
		Source:     source,
		Year:       year,
		Stamp:      stamp,
		Payload:    payload,
		Provenance: prov,
	}, nil
}

func (s FS) List(ctx context.Context) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, "List")
	defer span.End()

	var out []Entry
	sources, err := os.ReadDir(s.root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for _, src := range sources {
		if !src.IsDir() {
			continue
		}
		years, err := os.ReadDir(filepath.Join(s.root, src.Name()))
		if err != nil {
			return nil, err
		}
		for _, yr := range years {
			year, err := strconv.Atoi(yr.Name())
			if err != nil || !yr.IsDir() {
				continue
			}
			dir := filepath.Join(s.root, src.Name(), yr.Name())
			stamps, err := readStamps(dir)
			if err != nil {
				return nil, err
			}
			for _, stamp := range stamps {
				entry, err := readEntry(filepath.Join(dir, stamp), src.Name(), year, stamp, false)
				if err != nil {
					return nil, err
				}
				out = append(out, entry)
			}
		}
	}
	span.SetAttributes(attribute.Int("entries", len(out)))
	return out, nil
}

func readStamps(dir string) ([]string, error) {
	children, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var stamps []string
	for _, c := range children {
		if !c.IsDir() {
			continue
		}
		if _, err := time.Parse(stampLayout, c.Name()); err != nil {
			continue
		}
		stamps = append(stamps, c.Name())
	}
	sort.Strings(stamps)
	return stamps, nil
}

func readEntry(dir, source string, year int, stamp string, withPayload bool) (Entry, error) {
	entry := Entry{Source: source, Year: year, Stamp: stamp}

	sidecar, err := os.ReadFile(filepath.Join(dir, "provenance.json"))
	if err != nil {
		return Entry{}, err
	}
	if err := json.Unmarshal(sidecar, &entry.Provenance); err != nil {
		return Entry{}, err
	}

	if withPayload {
		entry.Payload, err = os.ReadFile(filepath.Join(dir, "payload"))
		if err != nil {
			return Entry{}, err
		}
	}
	return entry, nil
}
