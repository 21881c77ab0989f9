// Package device is the cached connection to the devices of one account.
//
// The first call that needs devices loads every metadevice of the account;
// Refresh reloads them. State reads and writes go straight to the API and
// are merged back into the cache. RefreshStates polls every device
// concurrently and reports which function values changed.
package device
