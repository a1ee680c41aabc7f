package animation

import (
	"strconv"
	"strings"
)

// Mode names recognized in qualified clip names. "nomal" is the spelling used
// by the original asset packs and is treated as an alias of "normal".
const (
	ModeNormal        = "normal"
	ModeHappy         = "happy"
	ModePoorCondition = "poorcondition"
	ModeIll           = "ill"

	modeNormalLegacy = "nomal"
)

var modeTokens = map[string]bool{
	ModeNormal:        true,
	modeNormalLegacy:  true,
	ModeHappy:         true,
	ModePoorCondition: true,
	ModeIll:           true,
}

// Start, loop and end segments appear either as a letter or as a word.
var segmentTokens = map[string]bool{
	"a": true, "b": true, "c": true,
	"start": true, "loop": true, "end": true,
}

// FamilyKey strips mode, segment and numeric variant tokens from a qualified
// name. "Walk_Right_A_Start" and "walk_right_b_loop_2" share the key
// "walk_right".
func FamilyKey(name string) string {
	parts := strings.Split(strings.ToLower(name), "_")
	kept := parts[:0]
	for _, p := range parts {
		if p == "" || modeTokens[p] || segmentTokens[p] {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			continue
		}
		kept = append(kept, p)
	}
	return strings.Join(kept, "_")
}

// SameFamily reports whether two names belong to the same family.
func SameFamily(a, b string) bool {
	return FamilyKey(a) == FamilyKey(b)
}
