package interfaces

import (
	"context"
	"encoding/json"

	domaintypes "hubspace/internal/domain/types"
)

// CloudClient is how we talk to the HubSpace (Afero) REST API.
type CloudClient interface {
	AccountID(ctx context.Context) (domaintypes.AccountID, error)
	Metadevices(ctx context.Context, account domaintypes.AccountID) ([]json.RawMessage, error)
	DeviceState(
		ctx context.Context,
		account domaintypes.AccountID,
		deviceID string,
	) ([]domaintypes.State, error)
	SetDeviceState(
		ctx context.Context,
		account domaintypes.AccountID,
		deviceID string,
		states []domaintypes.State,
	) error
}
