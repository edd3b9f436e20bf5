package manifest

import "errors"

// ErrUnknownExternalResource is returned when an ACLDoc's
// ExternalResourceID has no matching resource in the realm.
var ErrUnknownExternalResource = errors.New("manifest: unknown external resource id")
