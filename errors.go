package pickedforyou

import (
	"errors"
	"fmt"
)

// ErrSetupRequired is returned by Run when no settings have ever been saved.
// Hosts should present the settings form instead of a recommendation list.
var ErrSetupRequired = errors.New("settings not configured")

// ValidationError reports malformed settings rejected by the save action.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid settings: %s %s", e.Field, e.Reason)
}

// ProviderError reports a failed external fetch. The engine degrades to the
// previously cached list (possibly empty) rather than aborting, so callers
// receive both a usable list and this error.
type ProviderError struct {
	Provider Provider
	Op       string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }
