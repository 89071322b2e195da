package moderation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestModerator(t *testing.T, words ...string) *Moderator {
	t.Helper()
	m, err := NewModerator(words, '*')
	require.NoError(t, err)
	return m
}

func Test_Censor_Replaces_Forbidden_Word(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "stupid")

	req.Equal("that was ******", m.Censor("that was stupid"))
}

func Test_Censor_Leaves_Clean_Text_Alone(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "stupid")

	req.Equal("see you at the track", m.Censor("see you at the track"))
}

func Test_Censor_Is_Case_Insensitive(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "stupid")

	req.Equal("******", m.Censor("StUpId"))
}

func Test_Censor_Catches_Leet_Substitutions(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "hate")

	req.Equal("i **** this", m.Censor("i h4te this"))
	// The span covers everything between the first and last matched rune,
	// interior separators included.
	req.Equal("i ***** this", m.Censor("i h@t e this"))
}

func Test_Censor_Multiple_Occurrences(t *testing.T) {
	req := require.New(t)
	m := newTestModerator(t, "idiot")

	req.Equal("*****, total *****", m.Censor("idiot, total idiot"))
}

func Test_LoadWords_Reads_Embedded_Lists(t *testing.T) {
	req := require.New(t)

	words, err := LoadWords()
	req.NoError(err)
	req.NotEmpty(words)
	req.Contains(words, "stupid")
	for _, w := range words {
		req.NotEmpty(w)
		req.NotContains(w, "#")
	}
}
