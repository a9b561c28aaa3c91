// Package equivalence maps a normalized token to the set of tokens treated as
// interchangeable when matching speech against a script: homophones, digit and
// word numerals, and common misrecognitions.
//
// Tables are built once and never mutated, so a *Table is safe for
// concurrent use. Source mappings may be asymmetric; NewTable stores their
// symmetric closure so that B is equivalent to A whenever A is equivalent to B.
package equivalence

import (
	"fmt"
	"io"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"ai-teleprompter-service/internal/prompter/script"
)

// DefaultMappings is the built-in homophone and numeral table.
var DefaultMappings = map[string][]string{
	"2":      {"to", "too", "two"},
	"4":      {"for", "four"},
	"8":      {"ate", "eight"},
	"to":     {"2", "too", "two"},
	"too":    {"2", "to", "two"},
	"two":    {"2", "to", "too"},
	"for":    {"4", "four"},
	"four":   {"4", "for"},
	"ate":    {"8", "eight"},
	"eight":  {"8", "ate"},
	"their":  {"there", "theyre"},
	"there":  {"their", "theyre"},
	"theyre": {"their", "there"},
	"your":   {"youre"},
	"youre":  {"your"},
	"know":   {"no"},
	"no":     {"know"},
	"see":    {"sea"},
	"sea":    {"see"},
	"hear":   {"here"},
	"here":   {"hear"},
}

// Table is an immutable equivalence mapping.
type Table struct {
	forms map[string]map[string]struct{}
}

// NewTable builds a table from one or more mappings. Keys and alternates are
// normalized with script.Normalize; later mappings add to earlier ones.
func NewTable(mappings ...map[string][]string) *Table {
	t := &Table{forms: make(map[string]map[string]struct{})}
	for _, m := range mappings {
		for key, alts := range m {
			k := script.Normalize(key)
			if k == "" {
				continue
			}
			for _, alt := range alts {
				a := script.Normalize(alt)
				if a == "" || a == k {
					continue
				}
				t.link(k, a)
				t.link(a, k)
			}
		}
	}
	return t
}

func (t *Table) link(from, to string) {
	set, ok := t.forms[from]
	if !ok {
		set = make(map[string]struct{})
		t.forms[from] = set
	}
	set[to] = struct{}{}
}

var defaultTable = sync.OnceValue(func() *Table {
	return NewTable(DefaultMappings)
})

// Default returns the process-wide table built from DefaultMappings.
func Default() *Table {
	return defaultTable()
}

// EquivalentForms returns the sorted set of tokens equivalent to token,
// including token itself. Lookup is case-normalized; a token with no entry
// yields a singleton set.
func (t *Table) EquivalentForms(token string) []string {
	k := script.Normalize(token)
	set := t.forms[k]
	forms := make([]string, 0, len(set)+1)
	forms = append(forms, k)
	for f := range set {
		forms = append(forms, f)
	}
	sort.Strings(forms)
	return forms
}

// Equivalent reports whether the normalized tokens a and b are the same or
// listed as equivalent. Both arguments must already be normalized.
func (t *Table) Equivalent(a, b string) bool {
	if a == b {
		return true
	}
	_, ok := t.forms[a][b]
	return ok
}

// Len returns the number of tokens that have at least one alternate.
func (t *Table) Len() int {
	return len(t.forms)
}

// Pairs calls fn for every stored (token, alternate) pair.
func (t *Table) Pairs(fn func(a, b string)) {
	for a, set := range t.forms {
		for b := range set {
			fn(a, b)
		}
	}
}

// Load reads a YAML mapping of token to alternates and returns a table
// combining DefaultMappings with it.
func Load(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("equivalence: open %q: %w", path, err)
	}
	defer f.Close()

	t, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("equivalence: parse %q: %w", path, err)
	}
	return t, nil
}

// LoadFromReader decodes a YAML mapping from r and merges it into the defaults.
func LoadFromReader(r io.Reader) (*Table, error) {
	extra := map[string][]string{}
	if err := yaml.NewDecoder(r).Decode(&extra); err != nil && err != io.EOF {
		return nil, fmt.Errorf("equivalence: decode yaml: %w", err)
	}
	return NewTable(DefaultMappings, extra), nil
}
