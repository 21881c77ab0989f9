package domain

import (
	interfaces "hubspace/internal/domain/interfaces"
	types "hubspace/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	Username       = types.Username
	AccountID      = types.AccountID
	Fingerprint    = types.Fingerprint
	AccountProfile = types.AccountProfile
	Session        = types.Session
	Device         = types.Device
	State          = types.State
	Function       = types.Function
	FunctionValue  = types.FunctionValue
	Range          = types.Range
	StateChange    = types.StateChange
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	TokenProvider  = interfaces.TokenProvider
	AccountService = interfaces.AccountService
	DeviceService  = interfaces.DeviceService
	CloudClient    = interfaces.CloudClient
	SessionStore   = interfaces.SessionStore
	AccountStore   = interfaces.AccountStore
)
