package device

import (
	"encoding/json"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"hubspace/internal/domain"
)

// TypeDevice is the typeId of metadevices that represent physical devices.
const TypeDevice = "metadevice.device"

// metadevice mirrors the parts of an Afero metadevice we care about.
type metadevice struct {
	ID           string   `json:"id"`
	DeviceID     string   `json:"deviceId"`
	TypeID       string   `json:"typeId"`
	FriendlyName string   `json:"friendlyName"`
	Children     []string `json:"children"`
	Description  struct {
		DefaultImage string `json:"defaultImage"`
		Device       struct {
			DefaultName      string `json:"defaultName"`
			DeviceClass      string `json:"deviceClass"`
			Model            string `json:"model"`
			ManufacturerName string `json:"manufacturerName"`
		} `json:"device"`
		Functions []json.RawMessage `json:"functions"`
	} `json:"description"`
	State struct {
		Values []domain.State `json:"values"`
	} `json:"state"`
}

// FromMetadevice decodes one metadevice document. Missing fields decode to
// their zero values.
func FromMetadevice(raw json.RawMessage) (domain.Device, error) {
	var md metadevice
	if err := json.Unmarshal(raw, &md); err != nil {
		return domain.Device{}, fmt.Errorf("decode metadevice: %w", err)
	}

	functions := make([]domain.Function, 0, len(md.Description.Functions))
	for i, fraw := range md.Description.Functions {
		var f domain.Function
		if err := json.Unmarshal(fraw, &f); err != nil {
			return domain.Device{}, fmt.Errorf("decode metadevice %q function %d: %w", md.ID, i, err)
		}
		f.Raw = append(json.RawMessage(nil), fraw...)
		functions = append(functions, f)
	}

	return Normalize(domain.Device{
		ID:           md.ID,
		DeviceID:     md.DeviceID,
		TypeID:       md.TypeID,
		Model:        md.Description.Device.Model,
		DeviceClass:  md.Description.Device.DeviceClass,
		DefaultName:  md.Description.Device.DefaultName,
		DefaultImage: md.Description.DefaultImage,
		FriendlyName: md.FriendlyName,
		Manufacturer: md.Description.Device.ManufacturerName,
		Functions:    functions,
		States:       md.State.Values,
		Children:     md.Children,
	}), nil
}

// ParseMetadevices decodes the devices in raws. Documents of another type
// (rooms, homes) are skipped; documents without a typeId are kept. Documents
// that fail to decode are reported together while the rest are returned.
func ParseMetadevices(raws []json.RawMessage) ([]domain.Device, error) {
	var errs *multierror.Error
	out := make([]domain.Device, 0, len(raws))
	for i, raw := range raws {
		d, err := FromMetadevice(raw)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("metadevice %d: %w", i, err))
			continue
		}
		if d.TypeID != "" && d.TypeID != TypeDevice {
			continue
		}
		out = append(out, d)
	}
	return out, errs.ErrorOrNil()
}
