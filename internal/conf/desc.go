package conf

import (
	"github.com/dshills/conftree/internal/conf/opt"
	"github.com/dshills/conftree/internal/logging"
)

// ObjDesc describes a pluggable object (filter, backend) whose options form
// a tree of their own.
type ObjDesc struct {
	// Name identifies the object kind, for messages.
	Name string

	// Options is the object's descriptor table.
	Options *opt.SubOptions

	// Defaults is a default-value template keyed by full option name.
	Defaults map[string]opt.Value
}

// ObjSettings is one configured instance of an object: which kind, plus the
// key/value pairs to apply.
type ObjSettings struct {
	Name  string
	Pairs [][2]string
}

// NewFromDesc builds a value-bearing tree for one object instance.
func NewFromDesc(d *ObjDesc, log *logging.Logger) *Config {
	return New(d.Options, WithLogger(log), WithDefaults(d.Defaults))
}

// NewFromDescSchemaOnly builds a storageless tree for name resolution and
// listings, e.g. for generated documentation.
func NewFromDescSchemaOnly(d *ObjDesc, log *logging.Logger) *Config {
	return New(d.Options, WithLogger(log), WithDefaults(d.Defaults), WithSchemaOnly())
}

// FromDescAndArgs builds a tree for an object instance and applies its
// settings, stopping at the first pair that fails.
func FromDescAndArgs(d *ObjDesc, s ObjSettings, log *logging.Logger) (*Config, error) {
	c := NewFromDesc(d, log)
	if err := c.SetPairs(s.Pairs); err != nil {
		return nil, err
	}
	return c, nil
}

// SetPairs applies key/value pairs in order, stopping at the first failure.
func (c *Config) SetPairs(pairs [][2]string) error {
	for _, kv := range pairs {
		if err := c.SetOption(kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

// ApplyDefaults resets every stored option to its default and clears the
// set marks. Observers are notified of each value that changes.
func (c *Config) ApplyDefaults() {
	for _, e := range c.entries {
		if e.slot < 0 {
			continue
		}
		old := c.groups[e.group].values[e.slot]
		e.setLocally = false
		e.setFromCmdline = false
		if e.Opt.Type.Equal(old, e.def) {
			continue
		}
		c.groups[e.group].values[e.slot] = e.Opt.Type.Copy(e.def)
		c.notifyChange(e, old, 0)
	}
}
