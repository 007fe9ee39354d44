package ports

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"qunexus english", "QuNexus Port 1", "QuNexus Port 1"},
		{"qunexus localized", "QuNexus Portii 2", "QuNexus Port 2"},
		{"qunexus port 3", "QuNexus Puerte 3", "QuNexus Port 3"},
		{"sscom", "SSCOM Port 1", "SSCOM Port 1"},
		{"sscom windows second port", "MIDIIN2 (SSCOM)", "SSCOM Port 2"},
		{"softstep", "SoftStep Anschluss 1", "SoftStep Control Surface"},
		{"softstep expander", "SoftStep Port 2", "SoftStep Expander"},
		{"softstep bootloader", "SoftStep Bootloader Port 1", "SoftStep Bootloader"},
		{"softstep bootloader inert port", "SoftStep Bootloader Port 2", "SoftStep Bootloader Port 2"},
		{"twelvestep windows", "MIDIOUT2 (12Step)", "12Step Port 2"},
		{"kmix prefixed", "K-Mix Audio Control", "Audio Control"},
		{"hardcoded name untouched", "QuNeo", "QuNeo"},
		{"unknown device untouched", "Launchpad Mini MK3", "Launchpad Mini MK3"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.in))
		})
	}
}

func TestNormalizeExtraRulesOverrideBuiltin(t *testing.T) {
	extra := []AliasRule{{Match: "QuNexus", Ordinal: "1", Replace: "QuNexus Alt"}}
	assert.Equal(t, "QuNexus Alt", normalize("QuNexus Port 1", extra))
	// Untouched ordinals still hit the built-in table.
	assert.Equal(t, "QuNexus Port 2", normalize("QuNexus Port 2", extra))
}

func TestLoadAliasRules(t *testing.T) {
	doc := `
aliases:
  - match: QuNeo
    replace: QUNEO
  - match: BopPad
    contains: Legacy
    ordinal: "2"
    replace: BopPad Port 2
`
	rules, err := LoadAliasRules(strings.NewReader(doc))
	require.NoError(t, err)
	require.Len(t, rules, 2)
	assert.Equal(t, AliasRule{Match: "QuNeo", Replace: "QUNEO"}, rules[0])
	assert.Equal(t, "QUNEO", normalize("QuNeo", rules))
}

func TestLoadAliasRulesRejectsBadInput(t *testing.T) {
	_, err := LoadAliasRules(strings.NewReader("aliases:\n  - replace: x\n"))
	require.Error(t, err)

	_, err = LoadAliasRules(strings.NewReader("aliasses: []\n"))
	require.Error(t, err)
}
