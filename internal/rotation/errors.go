package rotation

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("rotation configuration error")

// ConfigurationError reports a church whose cycles cannot drive a rotation.
// It is raised before anything is written.
type ConfigurationError struct {
	ChurchID string
	Reason   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("church %s: %s", e.ChurchID, e.Reason)
}

// Is makes errors.Is(err, ErrConfiguration) true.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}
