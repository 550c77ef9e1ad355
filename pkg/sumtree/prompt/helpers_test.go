package prompt

import "regexp"

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func stripStyles(s string) string {
	return ansi.ReplaceAllString(s, "")
}
