package types

import "time"

// Session is the long-lived part of a HubSpace login. The refresh token lets a
// later run mint request tokens without repeating the web-app login.
type Session struct {
	Username     Username  `json:"username"`
	RefreshToken string    `json:"refresh_token"`
	SavedAt      time.Time `json:"saved_at"`
}
