package config

import "fmt"

// ConfigurationError is returned for settings that must stop the bridge
// before the first poll.
type ConfigurationError struct {
	Param  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("config param %s: %s: %v", e.Param, e.Reason, e.Err)
	}
	return fmt.Sprintf("config param %s: %s", e.Param, e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

func configError(param, reason string, err error) *ConfigurationError {
	return &ConfigurationError{Param: param, Reason: reason, Err: err}
}
