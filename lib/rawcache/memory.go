package rawcache

import (
	"context"
	"fmt"
	"sort"
	"time"
)

type memoryKey struct {
	source string
	year   int
}

// Memory is an in-memory Store used by tests and by dry runs that
// should never touch the disk.
type Memory struct {
	entries map[memoryKey][]Entry
	now     func() time.Time
}

func NewMemory() *Memory {
	return NewMemoryWithClock(time.Now)
}

func NewMemoryWithClock(now func() time.Time) *Memory {
	return &Memory{
		entries: map[memoryKey][]Entry{},
		now:     now,
	}
}

func (m *Memory) Get(ctx context.Context, source string, year int) (Entry, error) {
	stack := m.entries[memoryKey{source, year}]
	if len(stack) == 0 {
		return Entry{}, ErrNotFound
	}
	return stack[len(stack)-1], nil
}

func (m *Memory) Put(ctx context.Context, source string, year int, payload []byte, prov Provenance) (Entry, error) {
	key := memoryKey{source, year}
	stamp := m.now().UTC().Format(stampLayout)
	for _, existing := range m.entries[key] {
		if existing.Stamp == stamp {
			return Entry{}, fmt.Errorf("cache entry %s/%d/%s already exists", source, year, stamp)
		}
	}

	entry := Entry{
		Source:     source,
		Year:       year,
		Stamp:      stamp,
		Payload:    append([]byte(nil), payload...),
		Provenance: prov,
	}
	m.entries[key] = append(m.entries[key], entry)
	return entry, nil
}

func (m *Memory) List(ctx context.Context) ([]Entry, error) {
	var out []Entry
	for _, stack := range m.entries {
		for _, entry := range stack {
			entry.Payload = nil
			out = append(out, entry)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Stamp < out[j].Stamp
	})
	return out, nil
}
