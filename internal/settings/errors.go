package settings

import "errors"

// ErrNotFound indicates the singleton settings row does not exist yet.
var ErrNotFound = errors.New("settings row not found")
