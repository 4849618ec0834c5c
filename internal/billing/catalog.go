package billing

import "strings"

// standardSizes is the closed catalog of table sizes built without a custom
// width charge. Anything not listed here is non-standard.
var standardSizes = map[string]struct{}{
	"18x30": {}, "18x36": {}, "18x48": {},
	"24x24": {}, "24x30": {}, "24x36": {}, "24x42": {}, "24x48": {}, "24x60": {}, "24x72": {},
	"30x30": {}, "30x36": {}, "30x42": {}, "30x48": {}, "30x60": {}, "30x72": {},
	"36x36": {}, "36x48": {}, "36x60": {}, "36x72": {},
	"42x42": {}, "42x60": {}, "42x72": {},
	"48x48": {}, "48x60": {}, "48x72": {}, "48x96": {},
	"60x60": {}, "60x72": {}, "60x96": {},
	"72x72": {}, "72x96": {},
}

// NormalizeSize trims surrounding whitespace. Labels are otherwise matched
// exactly, so "24X36" is not a catalog size.
func NormalizeSize(size string) string {
	return strings.TrimSpace(size)
}

// StandardSizes lists the catalog labels.
func StandardSizes() []string {
	out := make([]string, 0, len(standardSizes))
	for label := range standardSizes {
		out = append(out, label)
	}
	return out
}

// IsNonStandardSize reports whether size is absent from the standard catalog.
// Empty and unrecognized labels are non-standard.
func IsNonStandardSize(size string) bool {
	_, ok := standardSizes[NormalizeSize(size)]
	return !ok
}
