package device

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"hubspace/internal/domain"
)

// ErrBadAssignment is returned for malformed "class[/instance]=value" input.
var ErrBadAssignment = errors.New("expected class[/instance]=value")

// ParseAssignment parses "class[/instance]=value". The value is decoded as
// JSON when possible (numbers, booleans, objects) and kept as a string
// otherwise, so both brightness=80 and power=on work.
func ParseAssignment(s string) (domain.State, error) {
	key, raw, ok := strings.Cut(s, "=")
	if !ok || key == "" {
		return domain.State{}, fmt.Errorf("%w: %q", ErrBadAssignment, s)
	}
	class, instance, _ := strings.Cut(key, "/")
	if class == "" {
		return domain.State{}, fmt.Errorf("%w: %q", ErrBadAssignment, s)
	}
	var value any
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		value = raw
	}
	return domain.State{FunctionClass: class, FunctionInstance: instance, Value: value}, nil
}

// DiffStates lists the functions of deviceID whose value changed between
// before and after, ordered by function key. Functions that appear only in
// after are reported with a nil Old value; ones that vanish are ignored.
func DiffStates(deviceID string, before, after []domain.State) []domain.StateChange {
	prev := make(map[string]any, len(before))
	for _, s := range before {
		prev[s.Key()] = s.Value
	}
	var changes []domain.StateChange
	for _, s := range after {
		old, seen := prev[s.Key()]
		if seen && reflect.DeepEqual(old, s.Value) {
			continue
		}
		changes = append(changes, domain.StateChange{
			DeviceID: deviceID,
			Key:      s.Key(),
			Old:      old,
			New:      s.Value,
		})
	}
	sort.Slice(changes, func(i, j int) bool { return changes[i].Key < changes[j].Key })
	return changes
}

// FormatValue renders a state value for terminal output.
func FormatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "-"
	case string:
		return val
	case float64, bool:
		return fmt.Sprint(val)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	}
}

// MergeStates returns current with updates applied by function key. Keys not
// present in current are appended in the order given.
func MergeStates(current, updates []domain.State) []domain.State {
	out := append([]domain.State(nil), current...)
	index := make(map[string]int, len(out))
	for i, s := range out {
		index[s.Key()] = i
	}
	for _, u := range updates {
		if i, ok := index[u.Key()]; ok {
			out[i] = u
			continue
		}
		index[u.Key()] = len(out)
		out = append(out, u)
	}
	return out
}
