package models

import (
	"fmt"
	"regexp"
	"strings"
)

const patternDelimiters = "/#~@%|!"

// CompilePattern accepts plain RE2 patterns and delimited patterns such as "/^mdc/i".
// Trailing i, m, s and U flags are translated; u is accepted and ignored.
func CompilePattern(pattern string) (*regexp.Regexp, error) {
	if len(pattern) < 2 || !strings.ContainsRune(patternDelimiters, rune(pattern[0])) {
		return regexp.Compile(pattern)
	}

	delimiter := pattern[0]

	end := strings.LastIndexByte(pattern, delimiter)
	if end <= 0 || !isModifierList(pattern[end+1:]) {
		return regexp.Compile(pattern)
	}

	body := pattern[1:end]

	var flags strings.Builder

	for _, flag := range pattern[end+1:] {
		switch flag {
		case 'i', 'm', 's', 'U':
			flags.WriteRune(flag)
		case 'u':
		default:
			return nil, fmt.Errorf("unsupported pattern modifier %q", flag)
		}
	}

	if flags.Len() > 0 {
		body = "(?" + flags.String() + ")" + body
	}

	return regexp.Compile(body)
}

func isModifierList(suffix string) bool {
	for _, r := range suffix {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}

	return true
}
