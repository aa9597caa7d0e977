// Package loader reads TOML config files into a configuration tree.
//
// Nested tables map to the tree's flattened names: [network] timeout = 5
// sets "network-timeout". Tables under [profile.<name>] are staged as
// profiles instead of applied. A top-level "include" key loads another file
// through the tree's include handling, subject to its depth limit.
package loader

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"github.com/dshills/conftree/internal/conf"
	"github.com/dshills/conftree/internal/logging"
)

// Loader applies config files to one tree. Creating a Loader installs it as
// the tree's include handler.
type Loader struct {
	cfg *conf.Config
	log *logging.Logger
}

// New binds a loader to a tree.
func New(cfg *conf.Config, log *logging.Logger) *Loader {
	l := &Loader{cfg: cfg, log: log}
	cfg.SetIncludeFunc(l.Include)
	return l
}

// Include implements the tree's include handler.
func (l *Loader) Include(path string, flags conf.SetFlags) error {
	return l.LoadFile(path, flags)
}

// LoadFile reads and applies one config file.
func (l *Loader) LoadFile(path string, flags conf.SetFlags) error {
	l.log.Info("reading config file %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := l.Load(data, flags); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}
	return nil
}

// Load applies TOML config data. Individual options that fail to apply are
// logged and skipped; the first such error is returned after the rest of
// the file has been processed. Exit requests abort immediately.
func (l *Loader) Load(data []byte, flags conf.SetFlags) error {
	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	if profs, ok := raw["profile"].(map[string]any); ok {
		l.stageProfiles(profs)
		delete(raw, "profile")
	}

	var pairs [][2]string
	if err := flatten("", raw, &pairs); err != nil {
		return err
	}

	var firstErr error
	for _, kv := range pairs {
		err := l.cfg.SetOptionFlags(kv[0], kv[1], flags|conf.SetFromConfigFile)
		if errors.Is(err, conf.ErrExit) {
			return err
		}
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// stageProfiles registers [profile.<name>] tables. Staging failures only
// warn; one bad profile key must not reject the whole file.
func (l *Loader) stageProfiles(profs map[string]any) {
	for _, name := range sortedKeys(profs) {
		body, ok := profs[name].(map[string]any)
		if !ok {
			l.log.Warn("profile %q is not a table, ignoring", name)
			continue
		}
		p := l.cfg.AddProfile(name)
		if p == nil {
			l.log.Warn("ignoring reserved profile name %q", name)
			continue
		}
		if desc, ok := body["profile-desc"].(string); ok {
			p.Desc = desc
			delete(body, "profile-desc")
		}
		var pairs [][2]string
		if err := flatten("", body, &pairs); err != nil {
			l.log.Warn("profile %q: %v", name, err)
			continue
		}
		for _, kv := range pairs {
			if err := l.cfg.SetProfileOption(p, kv[0], kv[1]); err != nil {
				l.log.Warn("profile %q: option %s: %v", name, kv[0], err)
			}
		}
	}
}

// flatten converts nested tables to dash-joined names, in sorted key order
// so application is deterministic.
func flatten(prefix string, m map[string]any, out *[][2]string) error {
	for _, k := range sortedKeys(m) {
		name := k
		if prefix != "" {
			name = prefix + "-" + k
		}
		if sub, ok := m[k].(map[string]any); ok {
			if err := flatten(name, sub, out); err != nil {
				return err
			}
			continue
		}
		s, err := formatValue(m[k])
		if err != nil {
			return fmt.Errorf("option %s: %w", name, err)
		}
		*out = append(*out, [2]string{name, s})
	}
	return nil
}

// formatValue renders a decoded TOML value in the textual form the option
// types parse.
func formatValue(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool:
		if v {
			return "yes", nil
		}
		return "no", nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case []any:
		parts := make([]string, 0, len(v))
		for _, el := range v {
			s, err := formatValue(el)
			if err != nil {
				return "", err
			}
			parts = append(parts, s)
		}
		return strings.Join(parts, ","), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
