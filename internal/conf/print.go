package conf

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/conftree/internal/conf/opt"
)

// PrintOptionList writes the full option listing through the logger, one
// line per visible option with type, constraints, default, and flag
// markers. Top-level trees sort case-insensitively; others keep declaration
// order.
func (c *Config) PrintOptionList() {
	var list []*Entry
	for _, e := range c.entries {
		if e.Name == "" || e.hidden || e.Opt.Type.Flags()&opt.FlagHasChild != 0 {
			continue
		}
		list = append(list, e)
	}
	if c.topLevel {
		sort.SliceStable(list, func(i, j int) bool {
			return strings.ToLower(list[i].Name) < strings.ToLower(list[j].Name)
		})
	}

	c.log.Info("Options:")
	for _, e := range list {
		c.log.Info("%s", c.optionLine(e))
	}
	c.log.Info("Total: %d options", len(list))
}

func (c *Config) optionLine(e *Entry) string {
	var b strings.Builder
	fmt.Fprintf(&b, " %-30s %s", c.displayName(e.Name), e.Opt.Type.Name())
	o := e.Opt
	if len(o.Choices) > 0 {
		fmt.Fprintf(&b, " (choices: %s)", strings.Join(o.Choices, ", "))
	}
	switch {
	case o.HasMin && o.HasMax:
		fmt.Fprintf(&b, " (%v to %v)", o.Min, o.Max)
	case o.HasMin:
		fmt.Fprintf(&b, " (min %v)", o.Min)
	case o.HasMax:
		fmt.Fprintf(&b, " (max %v)", o.Max)
	}
	if !o.NoStorage && o.Type.Flags()&opt.FlagNoStorage == 0 {
		if def := o.Type.Print(e.def); def != "" {
			fmt.Fprintf(&b, " (default: %s)", def)
		}
	}
	if o.Flags&opt.FlagGlobal != 0 {
		b.WriteString(" [global]")
	}
	if o.Flags&opt.FlagNoConfig != 0 {
		b.WriteString(" [nocfg]")
	}
	if o.Flags&opt.FlagFile != 0 {
		b.WriteString(" [file]")
	}
	return b.String()
}

// OptionNames returns the full names of all visible options in declaration
// order.
func (c *Config) OptionNames() []string {
	var names []string
	for _, e := range c.entries {
		if e.Name == "" || e.hidden || e.Opt.Type.Flags()&opt.FlagHasChild != 0 {
			continue
		}
		names = append(names, e.Name)
	}
	return names
}

// PositionalOption returns the name of the p-th visible option, counting
// from zero in declaration order, or "" when out of range.
func (c *Config) PositionalOption(p int) string {
	if p < 0 {
		return ""
	}
	n := 0
	for _, e := range c.entries {
		if e.Name == "" || e.hidden || e.Opt.Type.Flags()&opt.FlagHasChild != 0 {
			continue
		}
		if n == p {
			return e.Name
		}
		n++
	}
	return ""
}

// RequiresParam reports whether setting the named option needs a parameter.
// Negated spellings and "-clr" suffixed options take none.
func (c *Config) RequiresParam(name string) (bool, error) {
	if base, ok := strings.CutPrefix(name, "no-"); ok {
		if e, err := c.resolve(base); err == nil && e.Opt.Type.Flags()&opt.FlagBoolLike != 0 {
			return false, nil
		}
	}
	e, err := c.resolve(name)
	if err != nil {
		return false, err
	}
	if strings.HasSuffix(name, "-clr") {
		return false, nil
	}
	return e.Opt.Type.Flags()&opt.FlagNoParam == 0, nil
}
