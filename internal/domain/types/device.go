package types

import "encoding/json"

// Device is a HubSpace metadevice as reported by the cloud.
type Device struct {
	ID           string     `json:"id"`
	DeviceID     string     `json:"device_id"`
	TypeID       string     `json:"type_id,omitempty"`
	Model        string     `json:"model"`
	DeviceClass  string     `json:"device_class"`
	DefaultName  string     `json:"default_name"`
	DefaultImage string     `json:"default_image"`
	FriendlyName string     `json:"friendly_name"`
	Manufacturer string     `json:"manufacturer,omitempty"`
	Functions    []Function `json:"functions"`
	States       []State    `json:"states"`
	Children     []string   `json:"children,omitempty"`
}

// State returns the current value of a function, if the device reported one.
// An empty instance matches states that have no instance.
func (d Device) State(functionClass, functionInstance string) (State, bool) {
	for _, s := range d.States {
		if s.FunctionClass == functionClass && s.FunctionInstance == functionInstance {
			return s, true
		}
	}
	return State{}, false
}

// Function returns the function description for class/instance.
func (d Device) Function(functionClass, functionInstance string) (Function, bool) {
	for _, f := range d.Functions {
		if f.FunctionClass == functionClass && f.FunctionInstance == functionInstance {
			return f, true
		}
	}
	return Function{}, false
}

// Name is the best display name for the device.
func (d Device) Name() string {
	if d.FriendlyName != "" {
		return d.FriendlyName
	}
	return d.DefaultName
}

// State is a single function value. FunctionClass is always set; the instance
// is empty for devices that expose a single function of that class.
type State struct {
	FunctionClass    string `json:"functionClass"`
	Value            any    `json:"value"`
	FunctionInstance string `json:"functionInstance,omitempty"`
	LastUpdateTime   int64  `json:"lastUpdateTime,omitempty"`
}

// Key identifies the function a state belongs to.
func (s State) Key() string {
	if s.FunctionInstance == "" {
		return s.FunctionClass
	}
	return s.FunctionClass + "/" + s.FunctionInstance
}

// Function describes a controllable or reportable capability of a device.
type Function struct {
	ID               string          `json:"id,omitempty"`
	FunctionClass    string          `json:"functionClass"`
	FunctionInstance string          `json:"functionInstance,omitempty"`
	Type             string          `json:"type,omitempty"`
	Values           []FunctionValue `json:"values,omitempty"`

	// Raw is the function exactly as the cloud sent it.
	Raw json.RawMessage `json:"-"`
}

// FunctionValue is one allowed value (category functions) or a numeric range.
type FunctionValue struct {
	Name  string `json:"name"`
	Range *Range `json:"range,omitempty"`
}

// Range bounds a numeric function.
type Range struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// StateChange records a function whose value differs between two snapshots.
type StateChange struct {
	DeviceID string `json:"device_id"`
	Key      string `json:"key"`
	Old      any    `json:"old"`
	New      any    `json:"new"`
}
