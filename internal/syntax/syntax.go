// Package syntax classifies shell command-line text into colorable
// regions: keywords, commands, strings, variables, numbers, operators,
// paths, and comments. It is a pure, stateless function of the buffer
// bytes — no incremental state is kept, matching spec.md §4.6's
// requirement that incremental classification (a future optimization)
// must always agree with a full re-classification.
package syntax

import "strings"

// Kind is the classification of a single region.
type Kind int

const (
	Normal Kind = iota
	Keyword
	Command
	String
	Comment
	Number
	Operator
	Variable
	Path
	Error
)

// Region is a non-overlapping, sorted span of the input classified
// with a single Kind.
type Region struct {
	ByteStart int
	ByteLen   int
	Kind      Kind
}

var keywordSet = map[string]bool{
	"if": true, "then": true, "else": true, "elif": true, "fi": true,
	"for": true, "while": true, "do": true, "done": true, "until": true,
	"case": true, "esac": true, "in": true, "function": true,
	"local": true, "export": true, "readonly": true, "unset": true,
	"return": true, "exit": true, "break": true, "continue": true,
	"true": true, "false": true, "test": true,
}

var builtinSet = map[string]bool{
	"cd": true, "echo": true, "pwd": true, "set": true, "shift": true,
	"eval": true, "exec": true, "trap": true, "wait": true, "jobs": true,
	"alias": true, "unalias": true, "source": true, "type": true,
	"printf": true, "read": true, "let": true, "ulimit": true,
}

var redirOps = []string{"<<<", "<<", "<&", "<", ">>", ">&", ">|", ">", "|&"}

// Classify produces the sorted, non-overlapping region list for the
// given bytes. It applies spec.md §4.6's rules left to right, first
// match wins, re-deriving command-position context as it goes.
func Classify(src []byte) []Region {
	s := string(src)
	var regions []Region
	i := 0
	atCommandStart := true

	for i < len(s) {
		switch {
		case s[i] == ' ' || s[i] == '\t':
			i++
			continue

		case s[i] == '#':
			regions = append(regions, Region{i, len(s) - i, Comment})
			i = len(s)

		case s[i] == '"':
			end := scanDoubleQuoted(s, i)
			regions = append(regions, Region{i, end - i, String})
			i = end
			atCommandStart = false

		case s[i] == '\'':
			end := scanSingleQuoted(s, i)
			regions = append(regions, Region{i, end - i, String})
			i = end
			atCommandStart = false

		case s[i] == '`':
			end := scanBacktick(s, i)
			regions = append(regions, Region{i, end - i, Command})
			i = end
			atCommandStart = false

		case strings.HasPrefix(s[i:], "$("):
			end := scanDollarParen(s, i)
			regions = append(regions, Region{i, end - i, Command})
			i = end
			atCommandStart = false

		case s[i] == '$':
			end := scanVariable(s, i)
			regions = append(regions, Region{i, end - i, Variable})
			i = end
			atCommandStart = false

		case isDigit(s[i]):
			end := scanNumber(s, i)
			regions = append(regions, Region{i, end - i, Number})
			i = end
			atCommandStart = false

		case s[i] == '~' && isTildeWordStart(s, i):
			end := scanWord(s, i)
			regions = append(regions, Region{i, end - i, Path})
			i = end
			atCommandStart = false

		case isRedirOrOperatorStart(s[i]):
			end, opKind := scanOperator(s, i)
			regions = append(regions, Region{i, end - i, opKind})
			i = end
			if opKind == Operator && (s[i-1] == '|' || s[i-1] == '&' || s[i-1] == ';') {
				atCommandStart = true
			} else {
				atCommandStart = false
			}

		default:
			end := scanWord(s, i)
			word := s[i:end]
			kind := classifyWord(word, atCommandStart)
			regions = append(regions, Region{i, end - i, kind})
			i = end
			atCommandStart = kind == Keyword
		}
	}
	return regions
}

func classifyWord(word string, atCommandStart bool) Kind {
	lower := word
	if atCommandStart && keywordSet[lower] {
		return Keyword
	}
	if atCommandStart && builtinSet[lower] {
		return Keyword
	}
	if keywordSet[lower] {
		return Keyword
	}
	if atCommandStart {
		return Command
	}
	if strings.Contains(word, "/") || strings.HasPrefix(word, "~") {
		return Path
	}
	if strings.Contains(word, ".") && len(word) > 2 {
		return Path
	}
	return Normal
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isWordBoundary(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '|', '&', ';', '<', '>', '(', ')', '"', '\'', '`', '$', '#':
		return true
	default:
		return false
	}
}

func scanWord(s string, i int) int {
	j := i
	for j < len(s) && !isWordBoundary(s[j]) {
		j++
	}
	if j == i {
		j++ // always make forward progress
	}
	return j
}

func scanDoubleQuoted(s string, i int) int {
	j := i + 1
	for j < len(s) {
		if s[j] == '\\' && j+1 < len(s) {
			j += 2
			continue
		}
		if s[j] == '"' {
			return j + 1
		}
		j++
	}
	return j
}

func scanSingleQuoted(s string, i int) int {
	j := i + 1
	for j < len(s) && s[j] != '\'' {
		j++
	}
	if j < len(s) {
		return j + 1
	}
	return j
}

func scanBacktick(s string, i int) int {
	j := i + 1
	for j < len(s) && s[j] != '`' {
		j++
	}
	if j < len(s) {
		return j + 1
	}
	return j
}

func scanDollarParen(s string, i int) int {
	depth := 0
	j := i
	for j < len(s) {
		if s[j] == '(' {
			depth++
		} else if s[j] == ')' {
			depth--
			if depth == 0 {
				return j + 1
			}
		}
		j++
	}
	return j
}

var specialVarNames = map[byte]bool{'?': true, '!': true, '$': true, '*': true, '@': true, '#': true}

func scanVariable(s string, i int) int {
	j := i + 1
	if j >= len(s) {
		return j
	}
	if s[j] == '{' {
		depth := 1
		j++
		for j < len(s) && depth > 0 {
			if s[j] == '{' {
				depth++
			} else if s[j] == '}' {
				depth--
			}
			j++
		}
		return j
	}
	if isDigit(s[j]) || specialVarNames[s[j]] {
		return j + 1
	}
	for j < len(s) && (isIdentByte(s[j])) {
		j++
	}
	if j == i+1 {
		return j // bare "$" with nothing recognizable after it
	}
	return j
}

func isIdentByte(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || isDigit(b)
}

func scanNumber(s string, i int) int {
	j := i
	for j < len(s) && isDigit(s[j]) {
		j++
	}
	if j < len(s) && s[j] == '.' {
		j++
		for j < len(s) && isDigit(s[j]) {
			j++
		}
	}
	if j < len(s) && (s[j] == 'e' || s[j] == 'E') {
		k := j + 1
		if k < len(s) && (s[k] == '+' || s[k] == '-') {
			k++
		}
		if k < len(s) && isDigit(s[k]) {
			j = k
			for j < len(s) && isDigit(s[j]) {
				j++
			}
		}
	}
	return j
}

// isTildeWordStart reports whether the '~' at s[i] begins a path-like
// token (immediately followed by '/', another '~', or end of input)
// rather than standing alone as an operator-adjacent character.
func isTildeWordStart(s string, i int) bool {
	if i+1 >= len(s) {
		return true
	}
	switch s[i+1] {
	case '/', '~':
		return true
	default:
		return false
	}
}

func isRedirOrOperatorStart(b byte) bool {
	switch b {
	case '<', '>', '|', '&', ';', '(', ')', '!', '=', '+', '-', '*', '/', '%', '^', '~':
		return true
	default:
		return false
	}
}

func scanOperator(s string, i int) (int, Kind) {
	for _, op := range redirOps {
		if strings.HasPrefix(s[i:], op) {
			return i + len(op), Operator
		}
	}
	j := i
	for j < len(s) && strings.ContainsRune("|&<>;()!=+-*/%^~", rune(s[j])) {
		j++
	}
	if j == i {
		j++
	}
	return j, Operator
}
