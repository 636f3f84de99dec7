// Package patch applies structural (changes, removals) diffs to replay state.
//
// The diff format is the one emitted by the game server's state differ: each
// history step is a two element array whose first element is a tree of
// changed values and whose second element names keys to drop. Everything
// here is pure: inputs are never mutated and every call returns a new tree.
package patch

import (
	"strconv"

	"nanlog/internal/logging"
	"nanlog/internal/value"
)

// Diff is one (changes, removals) history step.
type Diff struct {
	Changes  value.Value
	Removals value.Value
}

// Decompose splits a raw history entry into a Diff. Entries that are not a
// two element array are not diffs and the second result is false.
func Decompose(raw value.Value) (Diff, bool) {
	items := raw.Items()
	if !raw.IsArray() || len(items) != 2 {
		return Diff{}, false
	}
	return Diff{Changes: items[0], Removals: items[1]}, true
}

// Apply applies one raw history entry to state. An entry that does not
// decompose into a (changes, removals) pair is taken as a full replacement.
func Apply(state, raw value.Value) value.Value {
	diff, ok := Decompose(raw)
	if !ok {
		logging.PatchDebug("history entry is not a (changes, removals) pair, replacing state")
		return raw
	}
	return ApplyDiff(state, diff)
}

// ApplyDiff applies changes first, then removals.
func ApplyDiff(state value.Value, diff Diff) value.Value {
	next := ApplyChanges(state, diff.Changes)
	return ApplyRemovals(next, diff.Removals)
}

// ApplyChanges merges a changes tree into state.
func ApplyChanges(state, changes value.Value) value.Value {
	if state.IsNull() {
		return changes
	}
	if !changes.IsObject() {
		return changes
	}
	if state.IsArray() {
		return mergeIntoArray(state, changes)
	}
	return mergeIntoObject(state.Fields(), changes)
}

// mergeIntoObject copies base and merges each changed key into the copy.
// A nil base (primitive state) behaves like an empty object.
func mergeIntoObject(base map[string]value.Value, changes value.Value) value.Value {
	out := make(map[string]value.Value, len(base)+changes.Len())
	for k, v := range base {
		out[k] = v
	}
	mergeFields(out, changes)
	return value.Object(out)
}

func mergeFields(dst map[string]value.Value, changes value.Value) {
	for k, change := range changes.Fields() {
		if prev, ok := dst[k]; ok {
			dst[k] = ApplyChanges(prev, change)
		} else {
			dst[k] = change
		}
	}
}

// mergeIntoArray runs the two phase list patch: the array is viewed as an
// object keyed by stringified index, merged, then rebuilt densely from index
// 0 to the largest numeric key with gaps filled by null. Non-numeric keys
// do not survive reconstruction.
func mergeIntoArray(state, changes value.Value) value.Value {
	items := state.Items()
	synthetic := make(map[string]value.Value, len(items)+changes.Len())
	for i, item := range items {
		synthetic[strconv.Itoa(i)] = item
	}
	mergeFields(synthetic, changes)

	maxIndex := -1
	for k := range synthetic {
		if idx, ok := value.IsIndex(k); ok && idx > maxIndex {
			maxIndex = idx
		}
	}
	if maxIndex < 0 {
		return value.Array()
	}

	rebuilt := make([]value.Value, maxIndex+1)
	for k, v := range synthetic {
		if idx, ok := value.IsIndex(k); ok {
			rebuilt[idx] = v
		}
	}
	return value.Array(rebuilt...)
}

// ApplyRemovals drops keys named by removals from state.
//
// A list of removals deletes those keys from an object. A map of removals
// recurses into matching object keys. Removals aimed at an array are not
// supported and leave the array untouched.
func ApplyRemovals(state, removals value.Value) value.Value {
	if !removals.Truthy() {
		return state
	}
	if !state.IsObject() {
		return state
	}

	switch removals.Kind() {
	case value.KindArray:
		base := state.Fields()
		out := make(map[string]value.Value, len(base))
		for k, v := range base {
			out[k] = v
		}
		for _, key := range removals.Items() {
			if name, ok := key.AsString(); ok {
				delete(out, name)
			}
		}
		return value.Object(out)

	case value.KindObject:
		base := state.Fields()
		out := make(map[string]value.Value, len(base))
		for k, v := range base {
			out[k] = v
		}
		for k, nested := range removals.Fields() {
			if prev, ok := out[k]; ok {
				out[k] = ApplyRemovals(prev, nested)
			}
		}
		return value.Object(out)
	}
	return state
}
