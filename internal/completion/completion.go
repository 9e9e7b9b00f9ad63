// Package completion implements the Tab-completion session model from
// spec.md §4.10: word extraction, pluggable providers (file, command,
// variable), fuzzy ranking via junegunn/fzf's matching algorithm, and
// cycling state for the Completion overlay.
package completion

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// Priority orders candidates within a tie-broken-by-text sort.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
	PriorityExact
)

// Item is a single completion candidate.
type Item struct {
	Text     string
	Priority Priority
	Score    int32
}

// boundaryChars are the shell word-boundary characters per spec.md
// §4.10: whitespace plus the pipeline/redirection metacharacters.
const boundaryChars = "|&;<>() \t\n"

// ExtractWord returns the word under the cursor byte offset, plus its
// byte-range [start,end) in input, and whether it sits in command
// position (start of line, or after a '|', '&' or ';' separator,
// ignoring blanks in between).
func ExtractWord(input []byte, cursor int) (word string, start, end int, atCommandStart bool) {
	if cursor > len(input) {
		cursor = len(input)
	}
	start = cursor
	for start > 0 && !strings.ContainsRune(boundaryChars, rune(input[start-1])) {
		start--
	}
	end = cursor
	for end < len(input) && !strings.ContainsRune(boundaryChars, rune(input[end])) {
		end++
	}
	word = string(input[start:end])

	atCommandStart = true
	for i := start - 1; i >= 0; i-- {
		c := input[i]
		if c == ' ' || c == '\t' {
			continue
		}
		atCommandStart = c == '|' || c == '&' || c == ';'
		break
	}
	return word, start, end, atCommandStart
}

// Provider supplies candidate completions for a prefix.
type Provider interface {
	Complete(prefix string, atCommandStart bool) []Item
}

// FileProvider completes filesystem paths, grounded on spec.md §4.10's
// file-provider contract.
type FileProvider struct {
	// ReadDir allows tests to stub directory listing; defaults to
	// os.ReadDir when nil.
	ReadDir func(dir string) ([]os.DirEntry, error)
}

func (p FileProvider) readDir(dir string) ([]os.DirEntry, error) {
	if p.ReadDir != nil {
		return p.ReadDir(dir)
	}
	return os.ReadDir(dir)
}

func (p FileProvider) Complete(prefix string, _ bool) []Item {
	dir, namePrefix := splitPath(prefix)
	entries, err := p.readDir(dir)
	if err != nil {
		return nil
	}
	hidden := strings.HasPrefix(namePrefix, ".")
	var items []Item
	for _, e := range entries {
		name := e.Name()
		if !hidden && strings.HasPrefix(name, ".") {
			continue
		}
		if !strings.HasPrefix(name, namePrefix) {
			continue
		}
		full := joinCompletion(dir, name)
		pri := PriorityNormal
		if e.IsDir() {
			full += "/"
			pri = PriorityHigh
		}
		if name == namePrefix {
			pri = PriorityExact
		}
		items = append(items, Item{Text: full, Priority: pri})
	}
	return items
}

func splitPath(prefix string) (dir, namePrefix string) {
	dir, namePrefix = filepath.Split(prefix)
	if dir == "" {
		dir = "."
	}
	return dir, namePrefix
}

func joinCompletion(dir, name string) string {
	if dir == "." {
		return name
	}
	return dir + name
}

// CommandProvider completes executables on PATH, used only when the
// word being completed is in command position.
type CommandProvider struct {
	PathEnv string // defaults to os.Getenv("PATH") when empty
	ReadDir func(dir string) ([]os.DirEntry, error)
}

func (p CommandProvider) Complete(prefix string, atCommandStart bool) []Item {
	if !atCommandStart {
		return nil
	}
	pathEnv := p.PathEnv
	if pathEnv == "" {
		pathEnv = os.Getenv("PATH")
	}
	readDir := os.ReadDir
	if p.ReadDir != nil {
		readDir = p.ReadDir
	}
	seen := map[string]bool{}
	var items []Item
	for _, dir := range filepath.SplitList(pathEnv) {
		entries, err := readDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if !strings.HasPrefix(name, prefix) || seen[name] {
				continue
			}
			seen[name] = true
			items = append(items, Item{Text: name, Priority: PriorityNormal})
		}
	}
	return items
}

// VariableProvider completes environment variable names when prefix
// starts with '$'.
type VariableProvider struct {
	Environ func() []string // defaults to os.Environ when nil
}

func (p VariableProvider) Complete(prefix string, _ bool) []Item {
	if !strings.HasPrefix(prefix, "$") {
		return nil
	}
	namePrefix := prefix[1:]
	environ := os.Environ
	if p.Environ != nil {
		environ = p.Environ
	}
	var items []Item
	for _, kv := range environ() {
		name, _, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, namePrefix) {
			continue
		}
		items = append(items, Item{Text: "$" + name, Priority: PriorityNormal})
	}
	return items
}

// Rank scores items against query using fzf's V2 fuzzy matcher and
// returns them sorted by (priority desc, score desc, text asc).
func Rank(items []Item, query string) []Item {
	if query != "" {
		slab := util.MakeSlab(100*1024, 2048)
		pattern := []rune(query)
		ranked := make([]Item, 0, len(items))
		for _, it := range items {
			chars := util.ToChars([]byte(it.Text))
			res, _ := algo.FuzzyMatchV2(false, true, true, &chars, pattern, false, slab)
			if res.Start < 0 {
				continue
			}
			it.Score = int32(res.Score)
			ranked = append(ranked, it)
		}
		items = ranked
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Priority != items[j].Priority {
			return items[i].Priority > items[j].Priority
		}
		if items[i].Score != items[j].Score {
			return items[i].Score > items[j].Score
		}
		return items[i].Text < items[j].Text
	})
	return items
}

// Session is the Completion-overlay cycling state from spec.md §4.10.
type Session struct {
	OriginalWord string
	WordStart    int
	WordEnd      int
	Items        []Item
	CurrentIndex int
}

// NewSession builds a session after the first Tab has produced ≥2
// candidates; the caller has already applied Items[0] to the buffer.
func NewSession(originalWord string, start, end int, items []Item) *Session {
	return &Session{OriginalWord: originalWord, WordStart: start, WordEnd: end, Items: items, CurrentIndex: 0}
}

// Advance moves to the next item, wrapping, and returns its text.
func (s *Session) Advance() string {
	s.CurrentIndex = (s.CurrentIndex + 1) % len(s.Items)
	return s.Items[s.CurrentIndex].Text
}

// Retreat moves to the previous item, wrapping, and returns its text.
func (s *Session) Retreat() string {
	s.CurrentIndex = (s.CurrentIndex - 1 + len(s.Items)) % len(s.Items)
	return s.Items[s.CurrentIndex].Text
}

// Current returns the text of the currently previewed item.
func (s *Session) Current() string { return s.Items[s.CurrentIndex].Text }
