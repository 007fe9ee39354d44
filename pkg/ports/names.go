package ports

import (
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// AliasRule rewrites one unstable OS port name to its canonical logical
// name. A rule applies when the first space-separated word of the OS name
// equals Match and the full name contains both Contains and Ordinal (empty
// means "don't care"). An empty Replace keeps the OS name as-is, which stops
// later rules from rewriting it.
//
// Matching on substrings rather than full names is deliberate: a localized
// macOS reports "QuNexus Portii 1" where an english one reports
// "QuNexus Port 1", and only the ordinal is stable.
type AliasRule struct {
	Match    string `yaml:"match"`
	Contains string `yaml:"contains,omitempty"`
	Ordinal  string `yaml:"ordinal,omitempty"`
	Replace  string `yaml:"replace"`
}

func (r AliasRule) applies(name, firstWord string) bool {
	if r.Match != firstWord {
		return false
	}
	if r.Contains != "" && !strings.Contains(name, r.Contains) {
		return false
	}
	if r.Ordinal != "" && !strings.Contains(name, r.Ordinal) {
		return false
	}
	return true
}

// builtinRules covers the legacy multi-port devices whose OS names drift.
// Order matters: the bootloader rules must run before the plain ones.
var builtinRules = []AliasRule{
	{Match: "QuNexus", Ordinal: "1", Replace: "QuNexus Port 1"},
	{Match: "QuNexus", Ordinal: "2", Replace: "QuNexus Port 2"},
	{Match: "QuNexus", Ordinal: "3", Replace: "QuNexus Port 3"},

	{Match: "SSCOM", Ordinal: "1", Replace: "SSCOM Port 1"},
	{Match: "SSCOM", Ordinal: "2", Replace: "SSCOM Port 2"},
	{Match: "MIDIIN2", Contains: "SSCOM", Replace: "SSCOM Port 2"},
	{Match: "MIDIOUT2", Contains: "SSCOM", Replace: "SSCOM Port 2"},

	{Match: "SoftStep", Contains: "Bootloader", Ordinal: "1", Replace: "SoftStep Bootloader"},
	{Match: "SoftStep", Contains: "Bootloader", Replace: ""}, // bootloader port 2 is inert
	{Match: "SoftStep", Ordinal: "1", Replace: "SoftStep Control Surface"},
	{Match: "SoftStep", Ordinal: "2", Replace: "SoftStep Expander"},

	{Match: "12Step", Ordinal: "1", Replace: "12Step Port 1"},
	{Match: "12Step", Ordinal: "2", Replace: "12Step Port 2"},
	{Match: "MIDIIN2", Contains: "12Step", Replace: "12Step Port 2"},
	{Match: "MIDIOUT2", Contains: "12Step", Replace: "12Step Port 2"},

	{Match: "K-Mix", Contains: "Audio", Replace: "Audio Control"},
	{Match: "K-Mix", Contains: "Control Surface", Replace: "Control Surface"},
	{Match: "K-Mix", Contains: "Expander", Replace: "Expander"},
}

// Normalize maps an OS-reported port name to its canonical logical name
// using the built-in alias rules. Unmatched names pass through unchanged.
func Normalize(name string) string {
	return normalize(name, nil)
}

// normalize applies extra rules first so operator-supplied rules can
// override the built-in table.
func normalize(name string, extra []AliasRule) string {
	firstWord, _, _ := strings.Cut(name, " ")
	for _, rules := range [][]AliasRule{extra, builtinRules} {
		for _, r := range rules {
			if !r.applies(name, firstWord) {
				continue
			}
			if r.Replace == "" {
				return name
			}
			return r.Replace
		}
	}
	return name
}

// LoadAliasRules reads extra alias rules from a YAML document of the form:
//
//	aliases:
//	  - match: QuNeo
//	    replace: QUNEO
func LoadAliasRules(r io.Reader) ([]AliasRule, error) {
	var doc struct {
		Aliases []AliasRule `yaml:"aliases"`
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse alias rules: %w", err)
	}
	for i, rule := range doc.Aliases {
		if rule.Match == "" {
			return nil, fmt.Errorf("alias rule %d: match must not be empty", i)
		}
	}
	return doc.Aliases, nil
}
