package conf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dshills/conftree/internal/conf/node"
	"github.com/dshills/conftree/internal/conf/opt"
)

const (
	maxAliasDepth   = 16
	maxIncludeDepth = 8
)

// displayName renders an option name for messages, with a "--" prefix on a
// top-level tree.
func (c *Config) displayName(name string) string {
	if c.topLevel {
		return "--" + name
	}
	return name
}

// findEntry matches a name against the flattened entry list, including
// wildcard entries whose declared name ends with "*".
func (c *Config) findEntry(name string) *Entry {
	for _, e := range c.entries {
		if e.Name == "" {
			continue
		}
		if e.Name == name {
			return e
		}
		if e.Opt.Type.Flags()&opt.FlagAllowWildcard != 0 && strings.HasSuffix(e.Name, "*") &&
			strings.HasPrefix(name, e.Name[:len(e.Name)-1]) {
			return e
		}
	}
	return nil
}

// resolve maps a name to its entry, chasing aliases and emitting one-time
// deprecation and removal diagnostics.
func (c *Config) resolve(name string) (*Entry, error) {
	return c.resolveDepth(name, 0)
}

func (c *Config) resolveDepth(name string, depth int) (*Entry, error) {
	e := c.findEntry(name)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownOption, c.displayName(name))
	}
	switch e.Opt.Type {
	case opt.TypeAlias:
		target := e.Opt.Alias
		if e.Opt.Deprecation != "" && !e.warned {
			e.warned = true
			c.log.Warn("option %s was replaced with %s: %s",
				c.displayName(name), c.displayName(target), e.Opt.Deprecation)
		}
		if depth >= maxAliasDepth {
			return nil, fmt.Errorf("%w: alias loop at option %s", ErrUnknownOption, c.displayName(name))
		}
		return c.resolveDepth(target, depth+1)
	case opt.TypeRemoved:
		if !e.warned {
			e.warned = true
			msg := e.Opt.RemovedMsg
			if msg == "" {
				msg = "no replacement"
			}
			c.log.Fatal("option %s was removed: %s", c.displayName(name), msg)
		}
		return nil, fmt.Errorf("%w: %s", ErrOptionRemoved, c.displayName(name))
	}
	if e.Opt.Deprecation != "" && !e.warned {
		e.warned = true
		c.log.Warn("option %s is deprecated: %s", c.displayName(name), e.Opt.Deprecation)
	}
	return e, nil
}

// GetEntry resolves a name to its entry, or nil when it does not resolve.
func (c *Config) GetEntry(name string) *Entry {
	e, err := c.resolve(name)
	if err != nil {
		return nil
	}
	return e
}

type setAction int

const (
	actSet setAction = iota
	actCheck
	actSkip
)

// handleSetFlags applies the gate checks of a set operation and decides
// whether to store, only validate, or skip entirely.
func (c *Config) handleSetFlags(e *Entry, flags SetFlags) (setAction, error) {
	of := e.Opt.Flags
	action := actSet
	if flags&SetCheckOnly != 0 {
		action = actCheck
	}
	if flags&SetPreParseOnly != 0 && of&opt.FlagPreParse == 0 {
		return actSkip, nil
	}
	if flags&SetPreserveCmdline != 0 && e.setFromCmdline {
		action = actCheck
	}
	if flags&SetNoFixed != 0 && of&opt.FlagFixed != 0 {
		return 0, fmt.Errorf("%w: option %s cannot be changed at runtime",
			ErrInvalidValue, c.displayName(e.Name))
	}
	if flags&SetNoPreParse != 0 && of&opt.FlagPreParse != 0 {
		return 0, fmt.Errorf("%w: option %s must be set during pre-parse",
			ErrInvalidValue, c.displayName(e.Name))
	}
	if flags&SetFromConfigFile != 0 && of&opt.FlagNoConfig != 0 {
		return 0, fmt.Errorf("%w: option %s cannot be set from a config file",
			ErrInvalidValue, c.displayName(e.Name))
	}
	if flags&SetBackup != 0 {
		if of&opt.FlagGlobal != 0 {
			return 0, fmt.Errorf("%w: global option %s cannot be backed up",
				ErrInvalidValue, c.displayName(e.Name))
		}
		if action == actSet {
			c.ensureBackup(e)
		}
	}
	return action, nil
}

// setValue stores a parsed value and runs change propagation. The value is
// deep-copied; the caller keeps ownership of v.
func (c *Config) setValue(e *Entry, v opt.Value, flags SetFlags) error {
	if e.slot < 0 {
		return fmt.Errorf("%w: option %s has no storage", ErrUnknownOption, c.displayName(e.Name))
	}
	old := c.groups[e.group].values[e.slot]
	c.groups[e.group].values[e.slot] = e.Opt.Type.Copy(v)
	e.setLocally = true
	// The cmdline mark is sticky: later sets from other sources keep it.
	if flags&SetFromCmdline != 0 {
		e.setFromCmdline = true
	}
	c.notifyChange(e, old, flags)
	return nil
}

// parseOption is the textual set path shared by command line, config files,
// and profiles. It resolves the name (including "no-" negation), applies
// the flag gates, intercepts pseudo-options, and parses and stores the
// value.
func (c *Config) parseOption(name, param string, flags SetFlags) error {
	e, err := c.resolve(name)
	if err != nil {
		if !errors.Is(err, ErrUnknownOption) {
			return err
		}
		base, ok := strings.CutPrefix(name, "no-")
		if !ok {
			return err
		}
		be, berr := c.resolve(base)
		if berr != nil || be.Opt.Type.Flags()&opt.FlagBoolLike == 0 {
			return err
		}
		if param != "" {
			return fmt.Errorf("%w: %s", ErrDisallowParam, c.displayName(name))
		}
		e, param = be, "no"
	}

	action, err := c.handleSetFlags(e, flags)
	if err != nil {
		return err
	}
	if action == actSkip {
		return nil
	}
	set := action == actSet

	if set {
		c.log.Debug("setting option %s=%q", e.Name, param)
	}

	switch e.Name {
	case "include":
		if c.includeFunc != nil {
			return c.parseInclude(param, set, flags)
		}
	case "profile":
		if c.useProfiles {
			return c.parseProfileOption(param, set, flags)
		}
	case "show-profile":
		if c.useProfiles {
			return c.showProfileOption(param)
		}
	case "list-options":
		if set {
			c.PrintOptionList()
		}
		return ErrExit
	}

	if e.Opt.Type.Flags()&opt.FlagHasChild != 0 {
		if !c.subOptWarned {
			c.subOptWarned = true
			c.log.Warn("suboption passing is deprecated, use flat %s-... options",
				c.displayName(e.Name))
		}
		return c.parseSubOptions(e, param, flags)
	}

	if param == "" && e.Opt.Type.Flags()&opt.FlagNoParam == 0 {
		return fmt.Errorf("%w: %s", ErrMissingParam, c.displayName(e.Name))
	}

	v, err := e.Opt.Type.Parse(e.Opt, c.displayName(e.Name), param)
	if err != nil {
		return err
	}
	if !set {
		return nil
	}
	return c.setValue(e, v, flags)
}

// parseSubOptions splits a flattened "key=value,key=value" string and
// re-enters parseOption with full child names. Values containing commas
// need the flat spelling instead.
func (c *Config) parseSubOptions(e *Entry, param string, flags SetFlags) error {
	if param == "" {
		return nil
	}
	for _, pair := range strings.Split(param, ",") {
		if pair == "" {
			continue
		}
		k, v, _ := strings.Cut(pair, "=")
		if err := c.parseOption(e.Name+"-"+k, v, flags); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) parseInclude(param string, set bool, flags SetFlags) error {
	if param == "" {
		return fmt.Errorf("%w: %s", ErrMissingParam, c.displayName("include"))
	}
	if !set {
		return nil
	}
	if c.includeDepth >= maxIncludeDepth {
		c.log.Error("config file inclusion too deep, ignoring %q", param)
		return fmt.Errorf("%w: config file inclusion too deep", ErrInvalidValue)
	}
	c.includeDepth++
	err := c.includeFunc(param, flags)
	c.includeDepth--
	return err
}

// SetOption parses and stores a textual value.
func (c *Config) SetOption(name, value string) error {
	return c.SetOptionFlags(name, value, 0)
}

// SetOptionFlags parses and stores a textual value under the given set
// flags. Failures are logged; exit requests are not failures and pass
// through silently.
func (c *Config) SetOptionFlags(name, value string, flags SetFlags) error {
	err := c.parseOption(name, value, flags)
	if err != nil && !errors.Is(err, ErrExit) {
		c.log.Error("error setting option %s=%q: %v", c.displayName(name), value, err)
	}
	return err
}

// SetOptionNode stores a structured value. String nodes go through the
// type's textual parser, so the node path accepts everything the textual
// path does. Pseudo-options are not reachable through nodes.
func (c *Config) SetOptionNode(name string, n node.Node, flags SetFlags) error {
	e, err := c.resolve(name)
	if err != nil {
		if base, ok := strings.CutPrefix(name, "no-"); ok && errors.Is(err, ErrUnknownOption) {
			negates := (n.Kind == node.KindString && n.Str == "") ||
				(n.Kind == node.KindFlag && n.Flag)
			if negates {
				if be, berr := c.resolve(base); berr == nil && be.Opt.Type.Flags()&opt.FlagBoolLike != 0 {
					if !c.nodeNegWarned {
						c.nodeNegWarned = true
						c.log.Warn("setting %s through the API is deprecated, set %s to 'no' instead",
							c.displayName(name), c.displayName(base))
					}
					e, err = be, nil
					n = node.String("no")
				}
			}
		}
		if err != nil {
			c.log.Error("error setting option %s: %v", c.displayName(name), err)
			return err
		}
	}

	action, err := c.handleSetFlags(e, flags)
	if err != nil {
		c.log.Error("error setting option %s: %v", c.displayName(name), err)
		return err
	}
	if action == actSkip {
		return nil
	}

	v, err := opt.ValueFromNode(e.Opt, n)
	if err != nil {
		c.log.Error("error setting option %s: %v", c.displayName(name), err)
		return err
	}
	if action == actCheck {
		return nil
	}
	c.log.Debug("setting option %s=%s", e.Name, e.Opt.Type.Print(v))
	return c.setValue(e, v, flags)
}

// SetRaw stores an already-parsed value on a resolved entry.
func (c *Config) SetRaw(e *Entry, v opt.Value, flags SetFlags) error {
	if e == nil || e.slot < 0 {
		return fmt.Errorf("%w: entry has no storage", ErrUnknownOption)
	}
	action, err := c.handleSetFlags(e, flags)
	if err != nil {
		return err
	}
	if action != actSet {
		return nil
	}
	return c.setValue(e, v, flags)
}

// Get returns a deep copy of an option's current value.
func (c *Config) Get(name string) (opt.Value, error) {
	e, err := c.resolve(name)
	if err != nil {
		return opt.Value{}, err
	}
	if e.slot < 0 {
		return opt.Value{}, fmt.Errorf("%w: option %s has no value",
			ErrUnknownOption, c.displayName(name))
	}
	return e.Opt.Type.Copy(c.groups[e.group].values[e.slot]), nil
}

// GetText returns an option's current value printed by its type.
func (c *Config) GetText(name string) (string, error) {
	e, err := c.resolve(name)
	if err != nil {
		return "", err
	}
	if e.slot < 0 {
		return "", fmt.Errorf("%w: option %s has no value",
			ErrUnknownOption, c.displayName(name))
	}
	return e.Opt.Type.Print(c.groups[e.group].values[e.slot]), nil
}

// GetNode returns an option's current value in structured form.
func (c *Config) GetNode(name string) (node.Node, error) {
	e, err := c.resolve(name)
	if err != nil {
		return node.Node{}, err
	}
	if e.slot < 0 {
		return node.Node{}, fmt.Errorf("%w: option %s has no value",
			ErrUnknownOption, c.displayName(name))
	}
	return opt.ValueToNode(e.Opt, c.groups[e.group].values[e.slot]), nil
}
