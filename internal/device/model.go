package device

import "hubspace/internal/domain"

// modelFix renames a device whose reported model is a placeholder.
type modelFix struct {
	image       string
	model       string // reported model the fix applies to
	deviceClass string // "" matches any class
	rename      string
}

var modelFixes = []modelFix{
	{image: "ceiling-fan-snyder-park-icon", model: "", rename: "DriskolFan"},
	{image: "ceiling-fan-vinings-icon", model: "", rename: "VinwoodFan"},
	{image: "ceiling-fan-chandra-icon", model: "TBD", deviceClass: "fan", rename: "ZandraFan"},
	{image: "ceiling-fan-ac-cct-dardanus-icon", model: "TBD", deviceClass: "fan", rename: "NevaliFan"},
	{image: "ceiling-fan-slender-icon", model: "", deviceClass: "fan", rename: "TagerFan"},
}

// Normalize returns d with known placeholder models replaced.
func Normalize(d domain.Device) domain.Device {
	for _, fix := range modelFixes {
		if d.DefaultImage != fix.image || d.Model != fix.model {
			continue
		}
		if fix.deviceClass != "" && d.DeviceClass != fix.deviceClass {
			continue
		}
		d.Model = fix.rename
		break
	}
	if d.Functions == nil {
		d.Functions = []domain.Function{}
	}
	if d.States == nil {
		d.States = []domain.State{}
	}
	return d
}
