package ledger

import (
	"bytes"
	"sort"

	"github.com/google/uuid"
)

// Entry is one row of the ranking
type Entry struct {
	ID      uuid.UUID
	Seconds int64
}

// PageInfo describes a clamped page of the ranking
type PageInfo struct {
	Page       int // zero-based, after clamping
	TotalPages int // always >= 1
	Total      int
	Offset     int // rank of the first entry on the page minus one
}

// before reports whether a ranks ahead of b: more seconds first, then
// identity ascending so equal playtimes order the same way on every run.
func before(a, b Entry) bool {
	if a.Seconds != b.Seconds {
		return a.Seconds > b.Seconds
	}
	return bytes.Compare(a.ID[:], b.ID[:]) < 0
}

// Sorted returns the whole table in ranking order
func (s *Store) Sorted() []Entry {
	snap := s.Snapshot()

	entries := make([]Entry, 0, len(snap))
	for id, secs := range snap {
		entries = append(entries, Entry{ID: id, Seconds: secs})
	}
	sort.Slice(entries, func(i, j int) bool {
		return before(entries[i], entries[j])
	})
	return entries
}

// TopN returns at most n entries in ranking order.
func (s *Store) TopN(n int) []Entry {
	if n <= 0 {
		return []Entry{}
	}
	entries := s.Sorted()
	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}

// Rank returns the 1-based position of id. The boolean is false when the
// identity has no record.
func (s *Store) Rank(id uuid.UUID) (int, bool) {
	snap := s.Snapshot()

	secs, ok := snap[id]
	if !ok {
		return 0, false
	}

	self := Entry{ID: id, Seconds: secs}
	rank := 1
	for other, otherSecs := range snap {
		if other == id {
			continue
		}
		if before(Entry{ID: other, Seconds: otherSecs}, self) {
			rank++
		}
	}
	return rank, true
}

// Page returns one page of the ranking. Out-of-range pages clamp to the
// nearest valid one; an empty ledger still reports one (empty) page.
func (s *Store) Page(page, size int) ([]Entry, PageInfo) {
	if size <= 0 {
		size = 1
	}

	entries := s.Sorted()
	totalPages := (len(entries) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	if page >= totalPages {
		page = totalPages - 1
	}
	if page < 0 {
		page = 0
	}

	start := page * size
	end := start + size
	if end > len(entries) {
		end = len(entries)
	}

	return entries[start:end], PageInfo{
		Page:       page,
		TotalPages: totalPages,
		Total:      len(entries),
		Offset:     start,
	}
}
