package conf

import (
	"sync/atomic"

	"github.com/dshills/conftree/internal/conf/notify"
	"github.com/dshills/conftree/internal/conf/opt"
	"github.com/dshills/conftree/internal/logging"
)

// SetFlags modify how a single set operation behaves.
type SetFlags uint16

const (
	// SetCheckOnly validates the name, flags, and value without storing
	// anything.
	SetCheckOnly SetFlags = 1 << iota

	// SetFromCmdline marks the value as coming from the command line. Such
	// values survive later config-file sets made with SetPreserveCmdline.
	SetFromCmdline

	// SetFromConfigFile marks the value as coming from a config file;
	// options carrying FlagNoConfig reject it.
	SetFromConfigFile

	// SetPreParseOnly restricts the operation to pre-parse options; all
	// others are silently skipped.
	SetPreParseOnly

	// SetPreserveCmdline downgrades the set to a check when the option was
	// already set from the command line.
	SetPreserveCmdline

	// SetNoFixed rejects options carrying FlagFixed; used once runtime
	// changes of fixed options are no longer possible.
	SetNoFixed

	// SetNoPreParse rejects pre-parse options, the complement of
	// SetPreParseOnly for the main parse stage.
	SetNoPreParse

	// SetBackup saves the previous value before overwriting, for a later
	// RestoreBackups.
	SetBackup
)

// IncludeFunc loads a config file referenced by the "include" pseudo-option.
// The flags are the flags of the triggering set operation.
type IncludeFunc func(path string, flags SetFlags) error

// group is one flattened descriptor table. Index 0 is the root; children
// point at their parent by index.
type group struct {
	sub    *opt.SubOptions // nil only in zero value, never once built
	parent int             // -1 for the root

	// values holds one slot per storage-bearing entry of this group.
	// nil when the tree is schema-only.
	values []opt.Value

	// ts counts committed changes in this group or any of its descendants.
	// Written under the shadow lock, read without it.
	ts atomic.Int64
}

// Entry is one resolved option of the tree: a descriptor plus its full
// dash-joined name and storage location.
type Entry struct {
	// Opt is the externally owned descriptor.
	Opt *opt.Option

	// Name is the full flattened name ("network-timeout").
	Name string

	group      int
	slot       int // index into the owning group's values, -1 when storageless
	shadowSlot int // index into the shadow's slot array, -1 when unshared
	def        opt.Value

	setFromCmdline bool
	setLocally     bool
	hidden         bool
	warned         bool
}

// IsSetLocally reports whether the entry was explicitly set since creation
// or the last backup restore.
func (e *Entry) IsSetLocally() bool { return e.setLocally }

// IsSetFromCmdline reports whether the entry's current value came from the
// command line.
func (e *Entry) IsSetFromCmdline() bool { return e.setFromCmdline }

// DefaultValue returns the entry's effective default.
func (e *Entry) DefaultValue() opt.Value { return e.Opt.Type.Copy(e.def) }

type backupRecord struct {
	e     *Entry
	saved opt.Value
}

// Config is one configuration tree. All mutating methods must be called
// from the single goroutine that owns the tree; concurrent readers go
// through a Cache instead.
type Config struct {
	log      *logging.Logger
	notifier *notify.Notifier

	schema      *opt.SubOptions
	defaults    map[string]opt.Value
	schemaOnly  bool
	topLevel    bool
	useProfiles bool

	groups  []*group
	entries []*Entry

	shadow      *Shadow
	shadowCount int

	includeFunc IncludeFunc
	levelFunc   func(string)

	profiles     []*Profile
	profileDepth int

	backups []backupRecord

	includeDepth  int
	subOptWarned  bool
	nodeNegWarned bool
}

// Option configures a Config at construction time.
type Option func(*Config)

// WithLogger sets the message sink. Defaults to a logger that discards
// everything.
func WithLogger(log *logging.Logger) Option {
	return func(c *Config) { c.log = log }
}

// WithDefaults supplies default values keyed by full option name. An
// option's embedded default still wins over this template.
func WithDefaults(defaults map[string]opt.Value) Option {
	return func(c *Config) { c.defaults = defaults }
}

// WithIncludeFunc enables the "include" pseudo-option.
func WithIncludeFunc(fn IncludeFunc) Option {
	return func(c *Config) { c.includeFunc = fn }
}

// WithTopLevel marks the tree as the program's main option table: names are
// printed with a "--" prefix and listings sort case-insensitively.
func WithTopLevel() Option {
	return func(c *Config) { c.topLevel = true }
}

// WithProfiles enables the "profile" and "show-profile" pseudo-options.
// Profiles can be staged on any tree; only trees built with this option
// apply them through the textual set path.
func WithProfiles() Option {
	return func(c *Config) { c.useProfiles = true }
}

// WithNotifier sets the change notifier. Defaults to a fresh one.
func WithNotifier(n *notify.Notifier) Option {
	return func(c *Config) { c.notifier = n }
}

// WithLevelRefresh overrides what happens when an option carrying
// FlagTermLevel is committed. The callback receives the printed value. By
// default the tree's own logger level is adjusted.
func WithLevelRefresh(fn func(level string)) Option {
	return func(c *Config) { c.levelFunc = fn }
}

// WithSchemaOnly builds the tree without any value storage. Such a tree
// serves name resolution and listings only; sets fail.
func WithSchemaOnly() Option {
	return func(c *Config) { c.schemaOnly = true }
}

// New builds a configuration tree from a descriptor table. The table and
// everything it references must stay alive and unmodified for the lifetime
// of the tree. New panics if the same sub-table is nested twice, since
// table identity is what names a group.
func New(schema *opt.SubOptions, options ...Option) *Config {
	c := &Config{
		log:      logging.NullLogger,
		notifier: notify.New(),
		schema:   schema,
	}
	for _, o := range options {
		o(c)
	}
	c.addGroup(schema, -1, "")
	return c
}

func (c *Config) addGroup(sub *opt.SubOptions, parent int, prefix string) int {
	for _, g := range c.groups {
		if g.sub == sub {
			panic("conf: descriptor table nested twice in the same tree")
		}
	}
	idx := len(c.groups)
	c.groups = append(c.groups, &group{sub: sub, parent: parent})
	for i := range sub.Opts {
		c.addEntry(idx, &sub.Opts[i], prefix)
	}
	return idx
}

func (c *Config) addEntry(groupIdx int, o *opt.Option, prefix string) {
	name := prefix
	if o.Name != "" {
		if name != "" {
			name += "-"
		}
		name += o.Name
	}
	e := &Entry{
		Opt:        o,
		Name:       name,
		group:      groupIdx,
		slot:       -1,
		shadowSlot: -1,
		hidden:     o.Deprecation != "",
	}
	tf := o.Type.Flags()
	if tf&opt.FlagHasChild != 0 {
		// The entry for the table itself lives in the child group, so
		// sub-option strings resolve against it.
		e.group = c.addGroup(o.Sub, groupIdx, name)
		c.entries = append(c.entries, e)
		return
	}
	if !o.NoStorage && tf&opt.FlagNoStorage == 0 {
		e.def = c.defaultFor(o, name, groupIdx)
		if !c.schemaOnly {
			g := c.groups[groupIdx]
			e.slot = len(g.values)
			g.values = append(g.values, o.Type.Copy(e.def))
			if o.Flags&opt.FlagGlobal == 0 {
				e.shadowSlot = c.shadowCount
				c.shadowCount++
			}
		}
	}
	c.entries = append(c.entries, e)
}

func (c *Config) defaultFor(o *opt.Option, fullName string, groupIdx int) opt.Value {
	if o.Default != nil {
		return o.Type.Copy(*o.Default)
	}
	if d := c.groups[groupIdx].sub.Defaults; d != nil {
		if v, ok := d[o.Name]; ok {
			return o.Type.Copy(v)
		}
	}
	if c.defaults != nil {
		if v, ok := c.defaults[fullName]; ok {
			return o.Type.Copy(v)
		}
	}
	return opt.Value{}
}

// Notifier returns the tree's change notifier.
func (c *Config) Notifier() *notify.Notifier { return c.notifier }

// Dup returns an independent copy of the tree with the same descriptor
// table and current values. The copy shares no mutable state with the
// original: no shadow, no caches, a fresh notifier.
func (c *Config) Dup() *Config {
	d := &Config{
		log:         c.log,
		notifier:    notify.New(),
		schema:      c.schema,
		defaults:    c.defaults,
		schemaOnly:  c.schemaOnly,
		topLevel:    c.topLevel,
		useProfiles: c.useProfiles,
		includeFunc: c.includeFunc,
		levelFunc:   c.levelFunc,
	}
	d.addGroup(c.schema, -1, "")
	for i, e := range c.entries {
		de := d.entries[i]
		if e.slot < 0 {
			continue
		}
		d.groups[de.group].values[de.slot] = e.Opt.Type.Copy(c.groups[e.group].values[e.slot])
		de.setFromCmdline = e.setFromCmdline
		de.setLocally = e.setLocally
	}
	return d
}

// notifyChange publishes a committed mutation: shadow propagation first,
// then observers, then a possible log-level refresh.
func (c *Config) notifyChange(e *Entry, old opt.Value, flags SetFlags) {
	cur := c.groups[e.group].values[e.slot]
	if c.shadow != nil && e.shadowSlot >= 0 {
		c.shadow.mu.Lock()
		c.shadow.slots[e.shadowSlot] = e.Opt.Type.Copy(cur)
		for g := e.group; g >= 0; g = c.groups[g].parent {
			c.groups[g].ts.Add(1)
		}
		c.shadow.mu.Unlock()
	}

	src := notify.SourceAPI
	switch {
	case flags&SetFromCmdline != 0:
		src = notify.SourceCmdline
	case flags&SetFromConfigFile != 0:
		src = notify.SourceConfigFile
	}
	c.notifier.Publish(notify.Change{
		Name:   e.Name,
		Old:    e.Opt.Type.Print(old),
		New:    e.Opt.Type.Print(cur),
		Source: src,
	})

	if e.Opt.Flags&opt.FlagTermLevel != 0 {
		text := e.Opt.Type.Print(cur)
		if c.levelFunc != nil {
			c.levelFunc(text)
		} else {
			c.log.SetLevel(logging.ParseLevel(text))
		}
	}
}

// SetIncludeFunc installs the include handler after construction. Used when
// the loader needs a reference to the tree it serves.
func (c *Config) SetIncludeFunc(fn IncludeFunc) { c.includeFunc = fn }

// Close restores backed-up values and detaches the tree from its observers.
// The tree must not be used afterwards.
func (c *Config) Close() {
	c.RestoreBackups()
	c.notifier = notify.New()
}
