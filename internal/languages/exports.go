package languages

import (
	"regexp"
	"strings"
)

var (
	jsDecl = regexp.MustCompile(`^(async[ \t]+function\b|function\b|class\b|const\b|let\b|var\b)`)
	tsDecl = regexp.MustCompile(`^(async[ \t]+function\b|function\b|abstract[ \t]+class\b|class\b|const\b|let\b|var\b|interface\b|type\b|enum\b)`)
)

// ExportDeclarations prefixes every top-level declaration with "export" so the
// test file can import it from ./main. Declarations that already export are
// left as they are, and so is anything nested inside braces, brackets,
// parentheses, strings, template literals or comments.
func ExportDeclarations(code string, ts bool) string {
	re := jsDecl
	if ts {
		re = tsDecl
	}

	var b strings.Builder
	b.Grow(len(code) + 64)
	var sc nestScanner
	for _, line := range strings.SplitAfter(code, "\n") {
		if sc.topLevel() && re.MatchString(line) {
			b.WriteString("export ")
		}
		b.WriteString(line)
		sc.scan(line)
	}
	return b.String()
}

type scanMode int

const (
	modeCode scanMode = iota
	modeLineComment
	modeBlockComment
	modeSingleQuote
	modeDoubleQuote
	modeTemplate
)

// nestScanner follows just enough JS/TS lexical structure to tell whether
// the next line starts at the top level. Regex literals are not recognised.
type nestScanner struct {
	mode  scanMode
	depth int
	// depth at which each open template substitution ("${") started
	subst []int
}

func (s *nestScanner) topLevel() bool {
	return s.mode == modeCode && s.depth == 0 && len(s.subst) == 0
}

func (s *nestScanner) scan(line string) {
	for i := 0; i < len(line); i++ {
		c := line[i]
		var next byte
		if i+1 < len(line) {
			next = line[i+1]
		}

		switch s.mode {
		case modeLineComment:
			if c == '\n' {
				s.mode = modeCode
			}
		case modeBlockComment:
			if c == '*' && next == '/' {
				s.mode = modeCode
				i++
			}
		case modeSingleQuote, modeDoubleQuote:
			quote := byte('\'')
			if s.mode == modeDoubleQuote {
				quote = '"'
			}
			switch c {
			case '\\':
				i++
			case quote, '\n':
				s.mode = modeCode
			}
		case modeTemplate:
			switch {
			case c == '\\':
				i++
			case c == '`':
				s.mode = modeCode
			case c == '$' && next == '{':
				s.subst = append(s.subst, s.depth)
				s.depth++
				s.mode = modeCode
				i++
			}
		case modeCode:
			switch c {
			case '/':
				switch next {
				case '/':
					s.mode = modeLineComment
					i++
				case '*':
					s.mode = modeBlockComment
					i++
				}
			case '\'':
				s.mode = modeSingleQuote
			case '"':
				s.mode = modeDoubleQuote
			case '`':
				s.mode = modeTemplate
			case '{', '(', '[':
				s.depth++
			case '}', ')', ']':
				if s.depth > 0 {
					s.depth--
				}
				if n := len(s.subst); c == '}' && n > 0 && s.depth == s.subst[n-1] {
					s.subst = s.subst[:n-1]
					s.mode = modeTemplate
				}
			}
		}
	}
}
