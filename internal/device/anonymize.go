package device

import (
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// anonNamespace seeds the UUIDv5 values that replace real identifiers, so
// the same input always anonymises to the same output.
var anonNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("hubspace/anonymize"))

// sensitiveClasses are state functions whose values identify a household.
var sensitiveClasses = map[string]bool{
	"wifi-ssid":        true,
	"wifi-mac-address": true,
	"ble-mac-address":  true,
	"geo-coordinates":  true,
}

const redacted = "redacted"

// Anonymize rewrites raw metadevice documents so they can be attached to a
// bug report: identifiers become stable UUIDs, friendly names are numbered
// and network/location state values are redacted. Relationships between
// documents (children, state.metadeviceId) are preserved.
func Anonymize(raws []json.RawMessage) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(raws))
	for i, raw := range raws {
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("metadevice %d: %w", i, err)
		}
		anonymizeDoc(doc, i+1)
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

func anonymizeDoc(doc map[string]any, n int) {
	if id, ok := doc["id"].(string); ok {
		doc["id"] = anonID(id)
	}
	if id, ok := doc["deviceId"].(string); ok {
		doc["deviceId"] = anonDeviceID(id)
	}
	if _, ok := doc["friendlyName"]; ok {
		doc["friendlyName"] = fmt.Sprintf("friendly-device-%d", n)
	}
	if children, ok := doc["children"].([]any); ok {
		for i, c := range children {
			if id, ok := c.(string); ok {
				children[i] = anonID(id)
			}
		}
	}
	state, ok := doc["state"].(map[string]any)
	if !ok {
		return
	}
	if id, ok := state["metadeviceId"].(string); ok {
		state["metadeviceId"] = anonID(id)
	}
	values, _ := state["values"].([]any)
	for _, v := range values {
		sv, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if class, _ := sv["functionClass"].(string); sensitiveClasses[class] {
			sv["value"] = redacted
		}
	}
}

func anonID(id string) string {
	return uuid.NewSHA1(anonNamespace, []byte(id)).String()
}

// anonDeviceID keeps the 16 hex digit shape of hardware ids.
func anonDeviceID(id string) string {
	u := uuid.NewSHA1(anonNamespace, []byte("device:"+id))
	return hex.EncodeToString(u[:8])
}
