package exports

import (
	"strings"

	"github.com/abhijitnavale/flatpak/pkg/storeerr"
)

// needsQuoting is conservative by design: it avoids escaping most
// regular Exec= lines, which is nice as that can sometimes cause
// problems for apps launching desktop files.
func needsQuoting(s string) bool {
	for _, r := range s {
		if isAsciiAlnum(r) {
			continue
		}
		if strings.ContainsRune("-_%.=:/@", r) {
			continue
		}
		return true
	}
	return false
}

func isAsciiAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

// maybeQuote returns s unchanged if it needs no quoting, otherwise a
// single-quoted token that shellSplit can recover verbatim.
func maybeQuote(s string) string {
	if !needsQuoting(s) {
		return s
	}
	return shellQuote(s)
}

// shellQuote wraps s in single quotes, escaping any embedded single
// quote as '\''.
func shellQuote(s string) string {
	var b strings.Builder
	b.WriteByte('\'')
	for _, r := range s {
		if r == '\'' {
			b.WriteString(`'\''`)
		} else {
			b.WriteRune(r)
		}
	}
	b.WriteByte('\'')
	return b.String()
}

// shellSplit tokenizes s the way a POSIX shell would split a simple
// command line: whitespace-separated words, single and double quoting,
// and backslash escapes outside single quotes.
func shellSplit(s string) ([]string, error) {
	var tokens []string
	var cur strings.Builder
	hasToken := false

	inSingle, inDouble := false, false
	runes := []rune(s)

	for i := 0; i < len(runes); i++ {
		c := runes[i]

		switch {
		case inSingle:
			if c == '\'' {
				inSingle = false
			} else {
				cur.WriteRune(c)
			}
		case inDouble:
			if c == '"' {
				inDouble = false
			} else if c == '\\' && i+1 < len(runes) && strings.ContainsRune(`"\$`+"`", runes[i+1]) {
				i++
				cur.WriteRune(runes[i])
			} else {
				cur.WriteRune(c)
			}
		case c == '\'':
			inSingle = true
			hasToken = true
		case c == '"':
			inDouble = true
			hasToken = true
		case c == '\\':
			if i+1 < len(runes) {
				i++
				cur.WriteRune(runes[i])
				hasToken = true
			}
		case c == ' ' || c == '\t' || c == '\n':
			if hasToken {
				tokens = append(tokens, cur.String())
				cur.Reset()
				hasToken = false
			}
		default:
			cur.WriteRune(c)
			hasToken = true
		}
	}

	if inSingle || inDouble {
		return nil, storeerr.New(storeerr.ParseError, "unterminated quote in command line")
	}
	if hasToken {
		tokens = append(tokens, cur.String())
	}

	return tokens, nil
}
