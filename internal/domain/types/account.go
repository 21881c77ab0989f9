package types

import "time"

// AccountProfile maps a HubSpace login to the account that owns its devices.
type AccountProfile struct {
	Username  Username  `json:"username"`
	AccountID AccountID `json:"account_id"`
	UpdatedAt time.Time `json:"updated_at"`
}
