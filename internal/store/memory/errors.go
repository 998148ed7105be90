package memory

import "errors"

// ErrInjected is returned by the fault-injection hooks.
var ErrInjected = errors.New("injected store failure")
