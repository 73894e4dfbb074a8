// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import "strings"

// PageSeparator is inserted between consecutive pages of a job's text.
const PageSeparator = "\n--- page break ---\n"

// ligatures maps typographic ligature glyphs to their plain letters. Keyword
// search over artifacts depends on this.
var ligatures = strings.NewReplacer(
	"\ufb00", "ff",
	"\ufb01", "fi",
	"\ufb02", "fl",
	"\ufb03", "ffi",
	"\ufb04", "ffl",
	"\ufb05", "st",
	"\ufb06", "st",
)

// Normalize replaces ligature glyphs in page text.
func Normalize(text string) string {
	return ligatures.Replace(text)
}
