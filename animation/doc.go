// Package animation holds the frame catalog used by the pet: frames decoded
// from disk, clips built from frame directories, the path-keyed frame cache
// and the fuzzy resolver that turns a logical request such as ("walk_right",
// "happy") into one concrete clip.
//
// Clip names follow the asset layout `<base>_<mode>_<segment>_<variant>`,
// each suffix optional. Clips that differ only in those suffixes form a
// family; a Variant value lets consecutive requests in one family keep the
// same random alternate.
package animation
