package moderation

import (
	"log/slog"
	"unicode"

	"github.com/abadojack/whatlanggo"
	goahocorasick "github.com/anknown/ahocorasick"
)

// Moderator masks the dictionary words found in chat text.
// Matching ignores case, separators and the usual leet substitutions,
// so "B.4.d.g.€r" is caught by "badger".
type Moderator struct {
	log     *slog.Logger
	matcher *goahocorasick.Machine
	entries map[string]string // folded form -> dictionary entry
	mask    rune
}

// Review is the outcome of moderating one message.
type Review struct {
	Content string
	// CensoredWords lists each matched dictionary entry once, by first appearance.
	CensoredWords []string
	// Matches counts every masked occurrence.
	Matches int
	Lang    string
}

func (r Review) Censored() bool { return r.Matches > 0 }

var leet = map[rune]rune{
	'4': 'a', '@': 'a',
	'3': 'e', '€': 'e',
	'1': 'i', '!': 'i', '|': 'i',
	'0': 'o',
	'5': 's', '$': 's',
}

// NewModerator builds the automaton from the dictionary.
// Entries folding to the same letters are kept once, entries without any letter are skipped.
func NewModerator(words []string, mask rune, log *slog.Logger) (*Moderator, error) {
	m := &Moderator{log: log, entries: make(map[string]string), mask: mask}
	var patterns [][]rune
	for _, word := range words {
		letters := fold([]rune(word)).letters
		if len(letters) == 0 {
			log.Debug("Skipping censored entry without letters", "entry", word)
			continue
		}
		if _, ok := m.entries[string(letters)]; ok {
			continue
		}
		m.entries[string(letters)] = word
		patterns = append(patterns, letters)
	}
	if len(patterns) == 0 {
		return m, nil
	}

	m.matcher = new(goahocorasick.Machine)
	if err := m.matcher.Build(patterns); err != nil {
		return nil, err
	}
	return m, nil
}

// Moderate masks every occurrence rune for rune, separators inside a match included,
// and detects the language of the original content (ISO 639-1, empty when unknown).
func (m *Moderator) Moderate(content string) Review {
	review := Review{Content: content, Lang: whatlanggo.Detect(content).Lang.Iso6391()}
	if m.matcher == nil {
		return review
	}
	runes := []rune(content)
	text := fold(runes)
	if len(text.letters) == 0 {
		return review
	}

	seen := make(map[string]bool)
	for _, term := range m.matcher.MultiPatternSearch(text.letters, false) {
		end := term.Pos + len(term.Word)
		if term.Pos < 0 || end > len(text.at) {
			continue
		}
		for i := text.at[term.Pos]; i <= text.at[end-1]; i++ {
			runes[i] = m.mask
		}
		review.Matches++
		if entry := m.entries[string(term.Word)]; !seen[entry] {
			seen[entry] = true
			review.CensoredWords = append(review.CensoredWords, entry)
		}
	}
	if review.Censored() {
		review.Content = string(runes)
		m.log.Debug("Message censored", "matches", review.Matches, "lang", review.Lang)
	}
	return review
}

// folded is a text reduced to its comparable letters,
// at holds the index in the original runes of each letter.
type folded struct {
	letters []rune
	at      []int
}

func fold(runes []rune) folded {
	f := folded{letters: make([]rune, 0, len(runes)), at: make([]int, 0, len(runes))}
	for i, r := range runes {
		if l, ok := letterOf(r); ok {
			f.letters = append(f.letters, l)
			f.at = append(f.at, i)
		}
	}
	return f
}

// letterOf returns the lowercase letter r stands for, false for a separator.
func letterOf(r rune) (rune, bool) {
	if l, ok := leet[r]; ok {
		return l, true
	}
	if unicode.IsPunct(r) || unicode.IsSpace(r) || unicode.IsSymbol(r) {
		return 0, false
	}
	return unicode.ToLower(r), true
}
