package dispatch

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConfiguration marks invocation errors detected before any worker is
// constructed: unknown camera models, malformed parameters, unknown match
// types, missing required paths.
var ErrConfiguration = errors.New("configuration error")

// configError tags a message with ErrConfiguration for errors.Is checks at
// the CLI boundary.
func configError(operation, message string) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, buildDetail(operation, message, nil))
}

func configErrorf(operation, message string, err error) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, buildDetail(operation, message, err))
}

func buildDetail(operation, message string, err error) string {
	parts := make([]string, 0, 3)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if err != nil {
		parts = append(parts, err.Error())
	}
	if len(parts) == 0 {
		return "invalid invocation"
	}
	return strings.Join(parts, ": ")
}
