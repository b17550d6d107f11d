package shared

import "strings"

func ToTitle(s string) string {
	if s == "" {
		return s
	}
	first := strings.ToUpper(s[:1])
	rest := s[1:]
	return first + rest
}

// Plural picks the singular or plural noun for n.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
