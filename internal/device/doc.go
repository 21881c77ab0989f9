// Package device turns Afero metadevice documents into domain devices.
//
// Besides plain decoding it applies the model fix-ups HubSpace needs: several
// ceiling fans report an empty or "TBD" model and can only be told apart by
// their default image. It also holds the helpers the CLI needs around device
// state: diffing snapshots, parsing "class/instance=value" assignments and
// anonymising raw documents before they are shared.
package device
