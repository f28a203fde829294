package runtime

import (
	"chat-relay/errors"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
)

func TestCensoredLoader_LoadAll_Embedded(t *testing.T) {
	req := require.New(t)

	// When the embedded dictionaries are loaded
	data, err := NewCensoredLoader(nil).LoadAll(DefaultCensoredDir)

	// Then every language file is found and comments are skipped
	req.NoError(err)
	req.ElementsMatch([]string{"en", "fr"}, data.Languages)
	req.Contains(data.Words, "idiot")
	req.Contains(data.Words, "connard")
	for _, w := range data.Words {
		req.NotContains(w, "#")
	}
}

func TestCensoredLoader_LoadAll_Deduplicates(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{
		"words/en.txt":    {Data: []byte("badger\r\nsnake\n\n")},
		"words/de.txt":    {Data: []byte("badger\n")},
		"words/README.md": {Data: []byte("ignored")},
	}

	data, err := NewCensoredLoader(files).LoadAll("words")

	req.NoError(err)
	req.Equal([]string{"badger", "snake"}, data.Words)
	req.ElementsMatch([]string{"en", "de"}, data.Languages)
}

func TestCensoredLoader_LoadAll_Empty(t *testing.T) {
	req := require.New(t)
	files := fstest.MapFS{"words/en.txt": {Data: []byte("# nothing\n")}}

	_, err := NewCensoredLoader(files).LoadAll("words")

	req.ErrorIs(err, errors.ErrEmptyWords)
}
