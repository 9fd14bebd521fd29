package sequence

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoUsableDecisions is the sequence-generation failure: the oracle's
// output contained nothing structurally repairable. The caller should retry
// the oracle or ask the user for different inputs.
var ErrNoUsableDecisions = errors.New("no usable decisions after repair")

// Repair converts raw oracle output into a valid DecisionList against a clip
// set of size clipCount (must be >= 1).
//
// Leniency rules, in order:
//  1. a bare JSON object is treated as a one-element list;
//  2. entries that are not objects, or that have a non-numeric clip index,
//     a non-positive duration or an empty description, are discarded one by
//     one, not errored;
//  3. surviving clip indexes are repaired via abs(index) mod clipCount, so
//     every reference lands in range no matter how wrong the oracle was.
//
// Only an output with zero usable entries fails, with ErrNoUsableDecisions.
// The list is returned in original order and is never truncated or padded
// to match a target duration.
func Repair(raw []byte, clipCount int) (DecisionList, error) {
	if clipCount < 1 {
		return nil, errors.New("clip count must be at least 1")
	}

	entries := decodeEntries(raw)

	decisions := make(DecisionList, 0, len(entries))
	for _, e := range entries {
		d, ok := repairEntry(e, clipCount)
		if !ok {
			continue
		}
		decisions = append(decisions, d)
	}

	if len(decisions) == 0 {
		return nil, ErrNoUsableDecisions
	}
	return decisions, nil
}

// decodeEntries parses the raw bytes as a JSON array, accepting a single
// bare object and tolerating model chatter like markdown code fences. Array
// elements decode individually so one stray string or number never takes its
// valid siblings down with it. Anything unparseable yields no entries; the
// zero-usable check in Repair turns that into the failure.
func decodeEntries(raw []byte) []map[string]any {
	text := strings.TrimSpace(string(raw))
	text = stripCodeFence(text)

	var list []json.RawMessage
	if err := json.Unmarshal([]byte(text), &list); err == nil {
		entries := make([]map[string]any, 0, len(list))
		for _, item := range list {
			var e map[string]any
			if err := json.Unmarshal(item, &e); err != nil {
				continue
			}
			entries = append(entries, e)
		}
		return entries
	}

	var single map[string]any
	if err := json.Unmarshal([]byte(text), &single); err == nil {
		return []map[string]any{single}
	}

	return nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// repairEntry applies the structural checks and the index repair to one raw
// entry. ok is false when the entry must be discarded.
func repairEntry(e map[string]any, clipCount int) (Decision, bool) {
	idx, ok := e["clipIndex"].(float64)
	if !ok {
		return Decision{}, false
	}

	duration, ok := e["duration"].(float64)
	if !ok || duration <= 0 {
		return Decision{}, false
	}

	description, ok := e["description"].(string)
	if !ok || description == "" {
		return Decision{}, false
	}

	i := int(idx)
	if i < 0 {
		i = -i
	}

	return Decision{
		ClipIndex:   i % clipCount,
		Duration:    duration,
		Description: description,
	}, true
}
