package interfaces

import (
	"context"
	"encoding/json"

	domaintypes "hubspace/internal/domain/types"
)

// TokenProvider hands out a valid bearer token for API requests.
type TokenProvider interface {
	Token(ctx context.Context) (string, error)
}

// AccountService owns the login session and the account id.
type AccountService interface {
	TokenProvider
	Login(ctx context.Context) (domaintypes.AccountProfile, error)
	Logout() error
	AccountID(ctx context.Context) (domaintypes.AccountID, error)
}

// DeviceService is a cached view of the devices on an account.
type DeviceService interface {
	Refresh(ctx context.Context) error
	Devices(ctx context.Context) ([]domaintypes.Device, error)
	Device(ctx context.Context, id string) (domaintypes.Device, error)
	RawDevices(ctx context.Context) ([]json.RawMessage, error)
	DeviceState(ctx context.Context, id string) ([]domaintypes.State, error)
	SetDeviceState(ctx context.Context, id string, states ...domaintypes.State) error
	RefreshStates(ctx context.Context) ([]domaintypes.StateChange, error)
}
