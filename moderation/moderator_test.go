package moderation

import (
	"log/slog"
	"testing"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func newTestModerator(t *testing.T, words ...string) *Moderator {
	t.Helper()
	mod, err := NewModerator(words, '#', logs.GetLoggerFromLevel(slog.LevelDebug))
	require.NoError(t, err)
	return mod
}

func TestModerator_Moderate(t *testing.T) {
	mod := newTestModerator(t, "badger", "snake")

	tests := []struct {
		name    string
		content string
		want    string
		words   []string
		matches int
	}{
		{
			name:    "clean message is left as is",
			content: "see you at noon",
			want:    "see you at noon",
		},
		{
			name:    "disguised repetitions count once per occurrence",
			content: "badger B.4.d.g.€r badger!",
			want:    "###### ########## ######!",
			words:   []string{"badger"},
			matches: 3,
		},
		{
			name:    "words glued together",
			content: "snakebadger",
			want:    "###########",
			words:   []string{"snake", "badger"},
			matches: 2,
		},
		{
			name:    "accents around a match are kept",
			content: "Un été avec un SNAKE",
			want:    "Un été avec un #####",
			words:   []string{"snake"},
			matches: 1,
		},
		{
			name:    "empty message",
			content: "",
			want:    "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)

			review := mod.Moderate(tt.content)

			req.Equal(tt.want, review.Content)
			req.Equal(tt.words, review.CensoredWords)
			req.Equal(tt.matches, review.Matches)
			req.Equal(tt.matches > 0, review.Censored())
		})
	}
}

func TestModerator_Reports_Dictionary_Spelling_Once(t *testing.T) {
	req := require.New(t)

	// Given three spellings of the same word
	mod := newTestModerator(t, "Badger", "badger", "b-a-d-g-e-r")

	// When the word appears twice
	review := mod.Moderate("a BADGER and a badger")

	// Then both are masked and the first spelling is reported
	req.Equal("a ###### and a ######", review.Content)
	req.Equal([]string{"Badger"}, review.CensoredWords)
	req.Equal(2, review.Matches)
}

func TestModerator_Dictionary_Of_Separators_Only(t *testing.T) {
	req := require.New(t)

	mod := newTestModerator(t, "...", ",,,", "")

	review := mod.Moderate("Hello ...")

	req.Equal("Hello ...", review.Content)
	req.False(review.Censored())
	req.Nil(review.CensoredWords)
}

func TestModerator_Detects_Language(t *testing.T) {
	req := require.New(t)
	mod := newTestModerator(t, "badger")

	review := mod.Moderate("This is a long english sentence about a badger living quietly in the forest")

	req.Equal("This is a long english sentence about a ###### living quietly in the forest", review.Content)
	req.Equal("en", review.Lang)
}
