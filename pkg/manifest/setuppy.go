package manifest

import (
	"os"
	"strings"
	"unicode"

	"github.com/pipsight/pipsight/pkg/errors"
)

// SetupPy statically extracts install_requires entries from a setup.py
// call without executing any Python. Only literal string elements of the
// install_requires list are honored; computed elements are ignored.
// Structural problems (unterminated strings or brackets inside the setup
// call) are reported as parse errors.
type SetupPy struct{}

// Parse scans the file for a setup(...) call and returns the literal
// install_requires entries as production dependencies.
func (p *SetupPy) Parse(path string) ([]Dependency, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFilesystem, err, "cannot read %s", path)
	}

	entries, err := scanInstallRequires(string(data))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeParsing, err, "failed to parse setup.py")
	}

	var deps []Dependency
	for _, entry := range entries {
		req, err := ParseRequirement(entry)
		if err != nil {
			continue
		}
		deps = append(deps, req.dependency(path, false))
	}
	return deps, nil
}

// pyScanner walks Python source one rune at a time, skipping comments and
// string contents when asked.
type pyScanner struct {
	src []rune
	pos int
}

var errBadSyntax = errors.New(errors.ErrCodeParsing, "unterminated construct")

func scanInstallRequires(src string) ([]string, error) {
	s := &pyScanner{src: []rune(src)}

	for !s.eof() {
		found, err := s.skipToIdentifier("setup")
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, nil // no setup() call in the file
		}
		if !s.skipSpace() || s.peek() != '(' {
			continue // "setup" used as a plain name
		}
		s.pos++ // consume '('

		entries, found, err := s.scanCallBody()
		if err != nil {
			return nil, err
		}
		if found {
			return entries, nil
		}
	}
	return nil, nil
}

// scanCallBody consumes a parenthesized argument list, collecting the
// install_requires list if present. Returns found=false when the call has
// no literal install_requires keyword.
func (s *pyScanner) scanCallBody() ([]string, bool, error) {
	depth := 1
	for !s.eof() {
		switch c := s.peek(); {
		case c == '#':
			s.skipComment()
		case c == '\'' || c == '"':
			if _, err := s.readString(); err != nil {
				return nil, false, err
			}
		case c == '(' || c == '[' || c == '{':
			depth++
			s.pos++
		case c == ')' || c == ']' || c == '}':
			depth--
			s.pos++
			if depth == 0 {
				return nil, false, nil
			}
		case depth == 1 && isIdentStart(c):
			name := s.readIdentifier()
			if name == "install_requires" && s.atKeywordValue() {
				entries, err := s.readStringList()
				if err != nil {
					return nil, false, err
				}
				return entries, entries != nil, nil
			}
		default:
			s.pos++
		}
	}
	return nil, false, errBadSyntax
}

// atKeywordValue consumes "=" (but not "==") after a keyword name.
func (s *pyScanner) atKeywordValue() bool {
	if !s.skipSpace() {
		return false
	}
	if s.peek() != '=' || (s.pos+1 < len(s.src) && s.src[s.pos+1] == '=') {
		return false
	}
	s.pos++
	return true
}

// readStringList reads a [ ... ] list, returning its literal string
// elements. Returns nil entries (no error) when the value is not a list
// literal. Anything inside the list that is not a string literal is
// skipped.
func (s *pyScanner) readStringList() ([]string, error) {
	if !s.skipSpace() {
		return nil, errBadSyntax
	}
	if s.peek() != '[' {
		return nil, nil
	}
	s.pos++

	entries := []string{}
	depth := 1
	for !s.eof() {
		switch c := s.peek(); {
		case c == '#':
			s.skipComment()
		case c == '\'' || c == '"':
			lit, err := s.readString()
			if err != nil {
				return nil, err
			}
			if depth == 1 {
				entries = append(entries, lit)
			}
		case c == '[' || c == '(' || c == '{':
			depth++
			s.pos++
		case c == ')' || c == '}':
			depth--
			s.pos++
		case c == ']':
			depth--
			s.pos++
			if depth == 0 {
				return entries, nil
			}
		default:
			s.pos++
		}
	}
	return nil, errBadSyntax
}

// readString consumes a quoted string (including triple quotes) and
// returns its contents. Escapes are passed through untouched except for
// escaped quotes.
func (s *pyScanner) readString() (string, error) {
	quote := s.peek()
	triple := s.pos+2 < len(s.src) && s.src[s.pos+1] == quote && s.src[s.pos+2] == quote
	if triple {
		s.pos += 3
	} else {
		s.pos++
	}

	var b strings.Builder
	for !s.eof() {
		c := s.src[s.pos]
		if c == '\\' && s.pos+1 < len(s.src) {
			b.WriteRune(s.src[s.pos+1])
			s.pos += 2
			continue
		}
		if c == quote {
			if !triple {
				s.pos++
				return b.String(), nil
			}
			if s.pos+2 < len(s.src) && s.src[s.pos+1] == quote && s.src[s.pos+2] == quote {
				s.pos += 3
				return b.String(), nil
			}
		}
		if c == '\n' && !triple {
			return "", errBadSyntax
		}
		b.WriteRune(c)
		s.pos++
	}
	return "", errBadSyntax
}

// skipToIdentifier advances until the named identifier appears outside
// strings and comments. Reports whether it was found.
func (s *pyScanner) skipToIdentifier(name string) (bool, error) {
	for !s.eof() {
		c := s.peek()
		switch {
		case c == '#':
			s.skipComment()
		case c == '\'' || c == '"':
			if _, err := s.readString(); err != nil {
				return false, err
			}
		case isIdentStart(c):
			if s.readIdentifier() == name {
				return true, nil
			}
		default:
			s.pos++
		}
	}
	return false, nil
}

func (s *pyScanner) readIdentifier() string {
	start := s.pos
	for !s.eof() && isIdentPart(s.src[s.pos]) {
		s.pos++
	}
	return string(s.src[start:s.pos])
}

func (s *pyScanner) skipComment() {
	for !s.eof() && s.src[s.pos] != '\n' {
		s.pos++
	}
}

// skipSpace advances past whitespace; reports false at EOF.
func (s *pyScanner) skipSpace() bool {
	for !s.eof() && unicode.IsSpace(s.src[s.pos]) {
		s.pos++
	}
	return !s.eof()
}

func (s *pyScanner) peek() rune { return s.src[s.pos] }
func (s *pyScanner) eof() bool  { return s.pos >= len(s.src) }

func isIdentStart(c rune) bool {
	return c == '_' || unicode.IsLetter(c)
}

func isIdentPart(c rune) bool {
	return c == '_' || unicode.IsLetter(c) || unicode.IsDigit(c)
}
