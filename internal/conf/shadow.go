package conf

import (
	"sync"

	"github.com/dshills/conftree/internal/conf/node"
	"github.com/dshills/conftree/internal/conf/opt"
	"github.com/dshills/conftree/internal/logging"
)

// Shadow is the shared store between a writing tree and its reader caches.
// Every committed change is mirrored into the shadow's slot array under the
// mutex; caches copy matching slots out on Update.
type Shadow struct {
	mu    sync.Mutex
	root  *Config
	slots []opt.Value
}

// CreateShadow attaches a shadow store to the tree and seeds it with the
// current values. It panics on a schema-only tree or when called twice.
func (c *Config) CreateShadow() *Shadow {
	if c.schemaOnly {
		panic("conf: shadow on schema-only tree")
	}
	if c.shadow != nil {
		panic("conf: shadow already created")
	}
	s := &Shadow{root: c, slots: make([]opt.Value, c.shadowCount)}
	for _, e := range c.entries {
		if e.shadowSlot >= 0 {
			s.slots[e.shadowSlot] = e.Opt.Type.Copy(c.groups[e.group].values[e.slot])
		}
	}
	c.shadow = s
	return s
}

// Shadow returns the shared store, or nil before CreateShadow.
func (c *Config) Shadow() *Shadow { return c.shadow }

// Cache is a reader-side snapshot of one sub-table of the tree. A cache is
// owned by a single reader goroutine; different goroutines use different
// caches over the same Shadow.
type Cache struct {
	shadow *Shadow
	cfg    *Config
	group  int
	ts     int64
}

// NewCache builds a cache over the given sub-table; nil means the whole
// tree. It panics if the sub-table is not nested anywhere in the tree.
func NewCache(s *Shadow, sub *opt.SubOptions, log *logging.Logger) *Cache {
	root := s.root
	cfg := New(root.schema, WithLogger(log), WithDefaults(root.defaults))

	grp := 0
	if sub != nil {
		grp = -1
		for i, g := range cfg.groups {
			if g.sub == sub {
				grp = i
				break
			}
		}
		if grp < 0 {
			panic("conf: sub-table is not part of the tree")
		}
	}

	included := make([]bool, len(cfg.groups))
	for i := range cfg.groups {
		included[i] = isGroupIncluded(cfg, i, grp)
	}
	var kept []*Entry
	for _, e := range cfg.entries {
		if included[e.group] {
			kept = append(kept, e)
		}
	}
	cfg.entries = kept
	for i, g := range cfg.groups {
		if !included[i] {
			g.values = nil
		}
	}

	// ts starts below any counter value so the first Update always copies
	// the seeded slots, including values committed before CreateShadow.
	cc := &Cache{shadow: s, cfg: cfg, group: grp, ts: -1}
	cc.Update()
	return cc
}

// isGroupIncluded reports whether top is g or one of its ancestors.
func isGroupIncluded(c *Config, g, top int) bool {
	for ; g >= 0; g = c.groups[g].parent {
		if g == top {
			return true
		}
	}
	return false
}

// Update pulls pending changes from the shadow into the cache's private
// storage and reports whether anything was copied. The no-change path is a
// single atomic load with no locking.
func (cc *Cache) Update() bool {
	// Group indices are identical across builds of the same descriptor
	// table, so cc.group addresses the writer's counter directly. The
	// counter covers the whole subtree because commits bump every ancestor.
	g := cc.shadow.root.groups[cc.group]
	ts := g.ts.Load()
	if ts <= cc.ts {
		return false
	}
	cc.shadow.mu.Lock()
	ts = g.ts.Load()
	for _, e := range cc.cfg.entries {
		if e.shadowSlot >= 0 {
			cc.cfg.groups[e.group].values[e.slot] = e.Opt.Type.Copy(cc.shadow.slots[e.shadowSlot])
		}
	}
	cc.shadow.mu.Unlock()
	cc.ts = ts
	return true
}

// Get returns the cached value of an option within the cache's sub-table.
func (cc *Cache) Get(name string) (opt.Value, error) { return cc.cfg.Get(name) }

// GetText returns the cached value printed by its type.
func (cc *Cache) GetText(name string) (string, error) { return cc.cfg.GetText(name) }

// GetNode returns the cached value in structured form.
func (cc *Cache) GetNode(name string) (node.Node, error) { return cc.cfg.GetNode(name) }
