// Package template is the pure substitution engine behind outreach drafts.
// It knows nothing about the database or delivery; it only replaces
// {{field_name}} tokens in a string.
package template

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// Render replaces every {{field_name}} token with the matching value from
// fields. Tokens with no matching field are left as literal text: a visible
// {{token}} in a draft flags missing data to the reviewer, where a silent
// blank would hide it.
func Render(tpl string, fields map[string]string) string {
	return tokenPattern.ReplaceAllStringFunc(tpl, func(match string) string {
		name := strings.TrimSpace(strings.Trim(match, "{}"))
		if value, ok := fields[name]; ok {
			return value
		}
		return match
	})
}

// Tokens returns the distinct field names referenced by the template, in
// order of first appearance.
func Tokens(tpl string) []string {
	matches := tokenPattern.FindAllStringSubmatch(tpl, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		names = append(names, m[1])
	}
	return names
}
