package model

import (
	"regexp"
	"strings"
)

var gradYearPattern = regexp.MustCompile(`'(\d{2})(\*?)`)

// GradYear extracts a graduation year suffix such as "'26" from a name.
func GradYear(name string) (string, bool) {
	m := gradYearPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return "'" + m[1] + m[2], true
}

// CleanName strips the graduation year suffix from a name.
func CleanName(name string) string {
	year, ok := GradYear(name)
	if !ok {
		return name
	}
	return strings.TrimSpace(strings.Replace(name, " "+year, "", 1))
}
