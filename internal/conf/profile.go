package conf

import (
	"fmt"
	"strings"

	"github.com/dshills/conftree/internal/conf/node"
)

const maxProfileDepth = 20

// ProfilePair is one staged key/value of a profile.
type ProfilePair struct {
	Key   string
	Value string
}

// Profile is a named bundle of option values, validated when staged and
// applied as a unit.
type Profile struct {
	Name  string
	Desc  string
	Pairs []ProfilePair
}

// AddProfile returns the profile with the given name, creating it if
// needed. The empty name and the reserved name "default" return nil.
func (c *Config) AddProfile(name string) *Profile {
	if name == "" || name == "default" {
		return nil
	}
	if p := c.FindProfile(name); p != nil {
		return p
	}
	p := &Profile{Name: name}
	c.profiles = append(c.profiles, p)
	return p
}

// FindProfile returns the named profile or nil.
func (c *Config) FindProfile(name string) *Profile {
	for _, p := range c.profiles {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// SetProfileOption validates a key/value against the tree without storing
// it, then stages it on the profile.
func (c *Config) SetProfileOption(p *Profile, name, value string) error {
	if err := c.parseOption(name, value, SetCheckOnly|SetFromConfigFile); err != nil {
		return err
	}
	p.Pairs = append(p.Pairs, ProfilePair{Key: name, Value: value})
	return nil
}

// SetProfile applies a profile's staged pairs. Pairs that fail to apply are
// logged and skipped; the rest of the profile is still applied.
func (c *Config) SetProfile(p *Profile, flags SetFlags) error {
	if c.profileDepth > maxProfileDepth {
		c.log.Warn("profile inclusion too deep")
		return fmt.Errorf("%w: profile inclusion too deep", ErrInvalidValue)
	}
	c.profileDepth++
	for _, pair := range p.Pairs {
		_ = c.SetOptionFlags(pair.Key, pair.Value, flags|SetFromConfigFile)
	}
	c.profileDepth--
	return nil
}

// parseProfileOption serves the "profile" pseudo-option: "help" lists the
// known profiles, anything else is a comma-separated list of profiles to
// apply.
func (c *Config) parseProfileOption(param string, set bool, flags SetFlags) error {
	if param == "help" {
		c.ListProfiles()
		return ErrExit
	}
	if param == "" {
		return fmt.Errorf("%w: %s", ErrMissingParam, c.displayName("profile"))
	}
	if !set {
		return nil
	}
	for _, name := range strings.Split(param, ",") {
		if name == "" {
			continue
		}
		p := c.FindProfile(name)
		if p == nil {
			c.log.Warn("unknown profile %q", name)
			return fmt.Errorf("%w: unknown profile %q", ErrInvalidValue, name)
		}
		if err := c.SetProfile(p, flags); err != nil {
			return err
		}
	}
	return nil
}

// showProfileOption serves the "show-profile" pseudo-option. It always
// requests an exit; an unknown profile is reported through the log first.
func (c *Config) showProfileOption(param string) error {
	if param == "" {
		return fmt.Errorf("%w: %s", ErrMissingParam, c.displayName("show-profile"))
	}
	p := c.FindProfile(param)
	if p == nil {
		c.log.Error("unknown profile %q", param)
		return ErrExit
	}
	c.showProfile(p)
	return ErrExit
}

// showProfile prints a profile's contents, recursing into profiles it
// references through a "profile" pair with increasing indentation.
func (c *Config) showProfile(p *Profile) {
	if c.profileDepth == 0 {
		desc := p.Desc
		if desc != "" {
			desc = ": " + desc
		}
		c.log.Info("Profile %s%s", p.Name, desc)
	}
	c.profileDepth++
	indent := strings.Repeat("  ", c.profileDepth)
	for _, pair := range p.Pairs {
		c.log.Info("%s%s=%s", indent, pair.Key, pair.Value)
		if pair.Key != "profile" || c.profileDepth >= maxProfileDepth {
			continue
		}
		for _, name := range strings.Split(pair.Value, ",") {
			if sub := c.FindProfile(name); sub != nil {
				c.showProfile(sub)
			}
		}
	}
	c.profileDepth--
}

// ListProfiles prints the known profiles and their descriptions.
func (c *Config) ListProfiles() {
	c.log.Info("Available profiles:")
	for _, p := range c.profiles {
		c.log.Info("  %s  %s", p.Name, p.Desc)
	}
}

// Profiles returns the staged profiles in structured form: an array of maps
// with "name", "profile-desc", and "options" keys.
func (c *Config) Profiles() node.Node {
	out := node.Array()
	for _, p := range c.profiles {
		m := node.Map()
		m.Set("name", node.String(p.Name))
		if p.Desc != "" {
			m.Set("profile-desc", node.String(p.Desc))
		}
		opts := node.Array()
		for _, pair := range p.Pairs {
			kv := node.Map()
			kv.Set("key", node.String(pair.Key))
			kv.Set("value", node.String(pair.Value))
			opts.Add(kv)
		}
		m.Set("options", opts)
		out.Add(m)
	}
	return out
}
