// Package cache keeps slice tables in memory within a byte budget.
//
// Finished slices are loaded on demand and evicted wholesale when the
// budget is exceeded. The tables of the slice under construction are
// pinned and survive every eviction.
package cache

import (
	"errors"
	"fmt"
	"sync"

	"github.com/avast/retry-go/v4"
	"github.com/pbnjay/memory"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/domino14/checkersdb/directory"
	"github.com/domino14/checkersdb/packed"
)

var (
	// ErrAllocation is returned when an allocation would cross the hard
	// limit. The cache answers it with a memory panic and one retry.
	ErrAllocation = errors.New("allocation over hard limit")
	// ErrOutOfMemory is returned when an allocation still fails after a
	// memory panic. The build cannot continue.
	ErrOutOfMemory = errors.New("out of memory")
)

// allocAttempts is the first try plus the retry after a memory panic.
const allocAttempts = 2

// Loader reads a finished slice table.
type Loader interface {
	Load(id directory.SliceID, size int64) (*packed.Table, error)
}

type entry struct {
	table  *packed.Table
	pinned bool
}

// Cache holds resident slice tables.
type Cache struct {
	sync.RWMutex
	dir    *directory.Directory
	loader Loader

	budget    int64
	hardLimit int64
	used      int64
	panics    int
	entries   map[directory.SliceID]*entry
}

// DefaultBudget returns the given fraction of the machine's memory.
func DefaultBudget(fraction float64) int64 {
	return int64(float64(memory.TotalMemory()) * fraction)
}

// New creates a cache. A budget or hard limit of zero or less is replaced
// by the machine's total memory.
func New(dir *directory.Directory, loader Loader, budget, hardLimit int64) *Cache {
	total := int64(memory.TotalMemory())
	if budget <= 0 {
		budget = total
	}
	if hardLimit <= 0 {
		hardLimit = total
	}
	log.Info().Int64("budget", budget).Int64("hard-limit", hardLimit).Msg("cache-created")
	return &Cache{
		dir:       dir,
		loader:    loader,
		budget:    budget,
		hardLimit: hardLimit,
		entries:   map[directory.SliceID]*entry{},
	}
}

// Size returns the number of positions of a slice.
func (c *Cache) Size(id directory.SliceID) int64 {
	return c.dir.Size(id)
}

// IsResident reports whether a slice's table is in memory.
func (c *Cache) IsResident(id directory.SliceID) bool {
	c.RLock()
	defer c.RUnlock()
	_, ok := c.entries[id]
	return ok
}

// Used returns the bytes held by resident tables.
func (c *Cache) Used() int64 {
	c.RLock()
	defer c.RUnlock()
	return c.used
}

// Budget returns the soft byte budget.
func (c *Cache) Budget() int64 {
	return c.budget
}

// Panics returns how many memory panics happened so far.
func (c *Cache) Panics() int {
	c.RLock()
	defer c.RUnlock()
	return c.panics
}

// Acquire returns the table of a finished slice, loading it if needed.
// A table handed out stays valid after it is evicted; it just stops being
// counted against the budget.
func (c *Cache) Acquire(id directory.SliceID) (*packed.Table, error) {
	c.RLock()
	e, ok := c.entries[id]
	c.RUnlock()
	if ok {
		return e.table, nil
	}

	c.Lock()
	defer c.Unlock()
	if e, ok := c.entries[id]; ok {
		return e.table, nil
	}
	rec, err := c.dir.Record(id)
	if err != nil {
		return nil, err
	}
	if err := c.reserve(rec.Bytes()); err != nil {
		return nil, err
	}
	t, err := c.loader.Load(id, rec.Size)
	if err != nil {
		c.used -= rec.Bytes()
		return nil, err
	}
	c.entries[id] = &entry{table: t}
	return t, nil
}

// Allocate returns a table of Unknown values for the slice being built.
// The table is pinned until Unpin is called.
func (c *Cache) Allocate(id directory.SliceID) (*packed.Table, error) {
	c.Lock()
	defer c.Unlock()
	rec, err := c.dir.Record(id)
	if err != nil {
		return nil, err
	}
	if old, ok := c.entries[id]; ok {
		// rebuilding a resident slice reuses its buffer.
		old.table.Fill(packed.Unknown)
		old.pinned = true
		return old.table, nil
	}
	if err := c.reserve(rec.Bytes()); err != nil {
		return nil, err
	}
	t := packed.NewTable(rec.Size)
	c.entries[id] = &entry{table: t, pinned: true}
	return t, nil
}

// Unpin makes a slice's table evictable. The table stays resident.
func (c *Cache) Unpin(id directory.SliceID) {
	c.Lock()
	defer c.Unlock()
	if e, ok := c.entries[id]; ok {
		e.pinned = false
	}
}

// reserve accounts for bytes of new memory. When the hard limit would be
// crossed, every unpinned table is dropped and the reservation retried
// once. Callers hold the write lock.
func (c *Cache) reserve(bytes int64) error {
	err := retry.Do(
		func() error {
			if c.used+bytes > c.hardLimit {
				return ErrAllocation
			}
			return nil
		},
		retry.Attempts(allocAttempts),
		retry.Delay(0),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, ErrAllocation)
		}),
		retry.OnRetry(func(n uint, err error) {
			if n+1 >= allocAttempts {
				return
			}
			log.Warn().Int64("bytes", bytes).Int64("used", c.used).Msg("allocation-failed")
			c.memoryPanic()
		}),
	)
	if err != nil {
		return fmt.Errorf("%w: %d bytes requested, %d in use, limit %d",
			ErrOutOfMemory, bytes, c.used, c.hardLimit)
	}
	c.used += bytes
	return nil
}

// evict drops every unpinned table and returns the bytes freed.
func (c *Cache) evict() int64 {
	victims := lo.PickBy(c.entries, func(_ directory.SliceID, e *entry) bool {
		return !e.pinned
	})
	var freed int64
	for id, e := range victims {
		freed += e.table.Bytes()
		delete(c.entries, id)
	}
	c.used -= freed
	return freed
}

// UnloadAll evicts every finished table.
func (c *Cache) UnloadAll() {
	c.Lock()
	defer c.Unlock()
	freed := c.evict()
	log.Info().Int64("freed", freed).Int64("used", c.used).Msg("unloaded-all")
}

// MemoryPanic evicts every table except those of the slice being built.
func (c *Cache) MemoryPanic() {
	c.Lock()
	defer c.Unlock()
	c.memoryPanic()
}

func (c *Cache) memoryPanic() {
	c.panics++
	freed := c.evict()
	log.Warn().Int64("freed", freed).Int64("used", c.used).
		Int("panics", c.panics).Msg("memory-panic")
}

// BeforeBuild clears the cache ahead of a new slice if the budget is
// exceeded.
func (c *Cache) BeforeBuild() {
	if c.Used() > c.budget {
		c.UnloadAll()
	}
}

// Relieve drops finished tables in the middle of a build if the budget is
// exceeded.
func (c *Cache) Relieve() {
	if c.Used() > c.budget {
		c.MemoryPanic()
	}
}
