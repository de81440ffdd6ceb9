package snapshot

import "errors"

var ErrInvalidDocument = errors.New("invalid snapshot document")
