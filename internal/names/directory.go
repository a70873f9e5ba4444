package names

import (
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"
	"golang.org/x/text/cases"
)

// Unknown is shown for identities that never reported a name
const Unknown = "Unknown"

// Directory remembers the last display name of each identity. Both
// directions are bounded LRU caches, so the least recently seen players are
// forgotten first.
type Directory struct {
	mu     sync.Mutex
	byID   *lru.Cache // uuid.UUID -> string
	byName *lru.Cache // folded name -> uuid.UUID
}

// NewDirectory creates a directory holding at most size identities
func NewDirectory(size int) (*Directory, error) {
	if size < 1 {
		size = 1
	}

	byID, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	byName, err := lru.New(size)
	if err != nil {
		return nil, err
	}

	return &Directory{
		byID:   byID,
		byName: byName,
	}, nil
}

// Remember records name as the current display name of id. Empty names are
// ignored.
func (d *Directory) Remember(id uuid.UUID, name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.byID.Peek(id); ok {
		oldKey := foldKey(old.(string))
		if owner, ok := d.byName.Peek(oldKey); ok && owner.(uuid.UUID) == id {
			d.byName.Remove(oldKey)
		}
	}

	d.byID.Add(id, name)
	d.byName.Add(foldKey(name), id)
}

// Name returns the last known name of id, or Unknown
func (d *Directory) Name(id uuid.UUID) string {
	if v, ok := d.byID.Get(id); ok {
		return v.(string)
	}
	return Unknown
}

// Lookup finds the identity last seen with name, ignoring case
func (d *Directory) Lookup(name string) (uuid.UUID, bool) {
	v, ok := d.byName.Get(foldKey(strings.TrimSpace(name)))
	if !ok {
		return uuid.Nil, false
	}
	return v.(uuid.UUID), true
}

// Suggest returns up to limit known names that fuzzy-match query, best first.
// An empty query lists names alphabetically.
func (d *Directory) Suggest(query string, limit int) []string {
	if limit <= 0 {
		return []string{}
	}

	d.mu.Lock()
	known := make([]string, 0, d.byID.Len())
	for _, k := range d.byID.Keys() {
		if v, ok := d.byID.Peek(k); ok {
			known = append(known, v.(string))
		}
	}
	d.mu.Unlock()

	var out []string
	query = strings.TrimSpace(query)
	if query == "" {
		sort.Slice(known, func(i, j int) bool {
			return foldKey(known[i]) < foldKey(known[j])
		})
		out = known
	} else {
		matches := fuzzy.FindFrom(foldKey(query), foldedSource(known))
		out = make([]string, 0, len(matches))
		for _, m := range matches {
			out = append(out, known[m.Index])
		}
	}

	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Names returns a copy of every remembered identity and its name
func (d *Directory) Names() map[uuid.UUID]string {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[uuid.UUID]string, d.byID.Len())
	for _, k := range d.byID.Keys() {
		if v, ok := d.byID.Peek(k); ok {
			out[k.(uuid.UUID)] = v.(string)
		}
	}
	return out
}

// Load remembers every entry of names, typically the stored names read at
// startup
func (d *Directory) Load(names map[uuid.UUID]string) {
	for id, name := range names {
		d.Remember(id, name)
	}
}

// Len returns the number of remembered identities
func (d *Directory) Len() int {
	return d.byID.Len()
}

func foldKey(name string) string {
	// a Caser is stateful and not safe for concurrent use
	return cases.Fold().String(name)
}

// foldedSource lets fuzzy match case-insensitively while reporting indexes
// into the original names
type foldedSource []string

func (s foldedSource) String(i int) string { return foldKey(s[i]) }
func (s foldedSource) Len() int            { return len(s) }
