// Package checkconf provides smart diffing of INI-style check configuration
// files (tempest.conf and friends), so operators can see exactly what a
// config change touched before a check is re-run.
package checkconf

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/unknwon/goconfig"
)

// ValueChange records an in-place value modification.
type ValueChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

// Diff is the difference between two INI configs, keyed by section then key.
// Added holds keys present only in the new config, Removed keys present only
// in the old one, Changed keys present in both with different values.
type Diff struct {
	Added   map[string]map[string]string      `json:"added,omitempty"`
	Removed map[string]map[string]string      `json:"removed,omitempty"`
	Changed map[string]map[string]ValueChange `json:"changed,omitempty"`
}

// Parse reads an INI document into section -> key -> value maps. Empty
// content parses to an empty config.
func Parse(content string) (map[string]map[string]string, error) {
	sections := make(map[string]map[string]string)
	if strings.TrimSpace(content) == "" {
		return sections, nil
	}

	cfg, err := goconfig.LoadFromReader(bytes.NewReader([]byte(content)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse INI config: %w", err)
	}

	for _, section := range cfg.GetSectionList() {
		keys := make(map[string]string)
		for _, key := range cfg.GetKeyList(section) {
			if value, err := cfg.GetValue(section, key); err == nil {
				keys[key] = value
			}
		}
		sections[section] = keys
	}
	return sections, nil
}

// Compare diffs two INI documents.
func Compare(oldContent, newContent string) (*Diff, error) {
	oldCfg, err := Parse(oldContent)
	if err != nil {
		return nil, fmt.Errorf("old config: %w", err)
	}
	newCfg, err := Parse(newContent)
	if err != nil {
		return nil, fmt.Errorf("new config: %w", err)
	}

	diff := &Diff{
		Added:   make(map[string]map[string]string),
		Removed: make(map[string]map[string]string),
		Changed: make(map[string]map[string]ValueChange),
	}

	for section, newKeys := range newCfg {
		oldKeys, existed := oldCfg[section]
		for key, newValue := range newKeys {
			if !existed {
				diff.add(diff.Added, section, key, newValue)
				continue
			}
			oldValue, ok := oldKeys[key]
			switch {
			case !ok:
				diff.add(diff.Added, section, key, newValue)
			case oldValue != newValue:
				if diff.Changed[section] == nil {
					diff.Changed[section] = make(map[string]ValueChange)
				}
				diff.Changed[section][key] = ValueChange{Old: oldValue, New: newValue}
			}
		}
	}

	for section, oldKeys := range oldCfg {
		newKeys, exists := newCfg[section]
		for key, oldValue := range oldKeys {
			if _, ok := newKeys[key]; !exists || !ok {
				diff.add(diff.Removed, section, key, oldValue)
			}
		}
	}

	return diff, nil
}

func (d *Diff) add(dst map[string]map[string]string, section, key, value string) {
	if dst[section] == nil {
		dst[section] = make(map[string]string)
	}
	dst[section][key] = value
}

// Empty reports whether the two configs were semantically identical.
func (d *Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// String renders a human-readable report, sections and keys sorted.
// Added keys are prefixed with "+", removed with "-", changed with "~".
func (d *Diff) String() string {
	if d.Empty() {
		return "no changes\n"
	}

	var b strings.Builder
	for _, section := range d.sections() {
		fmt.Fprintf(&b, "[%s]\n", section)
		for _, key := range sortedKeys(d.Added[section]) {
			fmt.Fprintf(&b, "+ %s = %s\n", key, d.Added[section][key])
		}
		for _, key := range sortedKeys(d.Removed[section]) {
			fmt.Fprintf(&b, "- %s = %s\n", key, d.Removed[section][key])
		}
		changed := make([]string, 0, len(d.Changed[section]))
		for key := range d.Changed[section] {
			changed = append(changed, key)
		}
		sort.Strings(changed)
		for _, key := range changed {
			change := d.Changed[section][key]
			fmt.Fprintf(&b, "~ %s = %s -> %s\n", key, change.Old, change.New)
		}
	}
	return b.String()
}

// sections returns every section mentioned anywhere in the diff, sorted.
func (d *Diff) sections() []string {
	seen := make(map[string]bool)
	for section := range d.Added {
		seen[section] = true
	}
	for section := range d.Removed {
		seen[section] = true
	}
	for section := range d.Changed {
		seen[section] = true
	}
	sections := make([]string, 0, len(seen))
	for section := range seen {
		sections = append(sections, section)
	}
	sort.Strings(sections)
	return sections
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
