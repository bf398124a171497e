// Package format prepares user-supplied text for Telegram parse modes.
package format

import "strings"

var mdEscaper = strings.NewReplacer(
	`_`, `\_`, `*`, `\*`, "`", "\\`", `[`, `\[`,
)

// MD escapes text for legacy Markdown.
func MD(text string) string {
	return mdEscaper.Replace(text)
}
