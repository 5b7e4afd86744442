package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyNoMatch(t *testing.T) {
	set := MustCompile([]Rule{
		{Pattern: "yoga", Name: "Yoga", Weekly: true, Time: "+15"},
		{Pattern: "pilates", Weekly: true},
	})

	got := set.Classify("Birthday party")
	assert.Equal(t, Outcome{Weekly: false, Label: "Birthday party", Directive: ""}, got)
}

func TestClassifyNilAndEmpty(t *testing.T) {
	var nilSet *Set
	assert.Equal(t, Outcome{Label: "x"}, nilSet.Classify("x"))
	assert.Equal(t, 0, nilSet.Len())

	empty := MustCompile(nil)
	assert.Equal(t, Outcome{Label: "x"}, empty.Classify("x"))
}

func TestClassifyCaseInsensitiveSearch(t *testing.T) {
	set := MustCompile([]Rule{{Pattern: "yoga", Name: "Yoga", Weekly: true}})

	got := set.Classify("Tuesday HATHA YOGA class")
	assert.True(t, got.Weekly)
	assert.Equal(t, "Yoga", got.Label)
}

func TestClassifyLastMatchWins(t *testing.T) {
	set := MustCompile([]Rule{
		{Pattern: "club", Name: "Club", Weekly: true, Time: "=10:00"},
		{Pattern: "bridge", Name: "Bridge Club", Weekly: true},
		{Pattern: "bridge club special", Weekly: false},
	})

	t.Run("later rule overrides label, keeps earlier directive", func(t *testing.T) {
		got := set.Classify("Bridge club")
		assert.Equal(t, Outcome{Weekly: true, Label: "Bridge Club", Directive: "=10:00"}, got)
	})

	t.Run("weekly is overwritten, not or-ed", func(t *testing.T) {
		got := set.Classify("Bridge Club Special")
		assert.False(t, got.Weekly)
		assert.Equal(t, "Bridge Club", got.Label)
		assert.Equal(t, "=10:00", got.Directive)
	})
}

func TestClassifyBareRuleOnlyTogglesWeekly(t *testing.T) {
	set := MustCompile([]Rule{{Pattern: "scouts", Weekly: true}})

	got := set.Classify("Scouts")
	assert.Equal(t, Outcome{Weekly: true, Label: "Scouts"}, got)
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile([]Rule{{Pattern: "("}})
	require.Error(t, err)

	_, err = Compile([]Rule{{Pattern: "  "}})
	require.ErrorIs(t, err, ErrEmptyPattern)

}

func TestCompileKeepsRuleWithInvalidDirective(t *testing.T) {
	set, err := Compile([]Rule{{Pattern: "yoga", Name: "Yoga", Weekly: true, Time: "at noon"}})
	require.NoError(t, err)
	assert.Equal(t, 1, set.Len())
	assert.Equal(t, Outcome{Weekly: true, Label: "Yoga", Directive: "at noon"}, set.Classify("Hatha yoga"))
}

func TestParseLegacy(t *testing.T) {
	got := ParseLegacy([]string{"yoga|Yoga", "scouts"})
	assert.Equal(t, []Rule{
		{Pattern: "yoga", Name: "Yoga", Weekly: true},
		{Pattern: "scouts", Weekly: true},
	}, got)
}

func TestParseYes(t *testing.T) {
	for _, s := range []string{"yes", "Y", "TRUE", "True"} {
		assert.True(t, ParseYes(s), s)
	}
	for _, s := range []string{"", "no", "false", "0"} {
		assert.False(t, ParseYes(s), s)
	}
}
