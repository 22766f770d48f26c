package models

import (
	"errors"
	"fmt"
)

var ErrUnknownProfile = errors.New("unknown strategy profile")

// ConfigError: битый или неполный профиль. Прогон не стартует.
type ConfigError struct {
	Profile string
	Field   string
	Reason  string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("profile %q: %s", e.Profile, e.Reason)
	}
	return fmt.Sprintf("profile %q: %s: %s", e.Profile, e.Field, e.Reason)
}

// DataError: проблема с входной серией (пустая, не читается, не по порядку).
type DataError struct {
	Symbol    string
	Timeframe string
	Err       error
}

func (e *DataError) Error() string {
	return fmt.Sprintf("data %s/%s: %v", e.Symbol, e.Timeframe, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }

// RunError: прогон (symbol, profile) прерван.
type RunError struct {
	Symbol  string
	Profile string
	Err     error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run %s/%s: %v", e.Symbol, e.Profile, e.Err)
}

func (e *RunError) Unwrap() error { return e.Err }
