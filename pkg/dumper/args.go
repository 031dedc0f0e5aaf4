package dumper

import (
	"fmt"
	"strings"
)

// SplitArgs splits a user option string the way a POSIX shell would split
// words: whitespace separates, single quotes are literal, double quotes allow
// backslash escapes of \ " and $.
func SplitArgs(s string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		inWord  bool
		quote   rune
		escaped bool
	)

	for _, r := range s {
		switch {
		case escaped:
			if quote == '"' && r != '"' && r != '\\' && r != '$' {
				current.WriteRune('\\')
			}
			current.WriteRune(r)
			escaped = false
		case quote == '\'':
			if r == '\'' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\\' && quote != '\'':
			escaped = true
			inWord = true
		case quote == '"':
			if r == '"' {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '\'' || r == '"':
			quote = r
			inWord = true
		case r == ' ' || r == '\t' || r == '\n':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}

	if escaped {
		return nil, fmt.Errorf("unterminated escape in options %q", s)
	}
	if quote != 0 {
		return nil, fmt.Errorf("unterminated %c quote in options %q", quote, s)
	}
	if inWord {
		args = append(args, current.String())
	}

	return args, nil
}
