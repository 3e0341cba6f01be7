package descriptor

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedConfig reports a structural or referential problem in a
	// descriptor document.
	ErrMalformedConfig = errors.New("malformed config")

	// ErrUnknownNetwork reports a lookup of a network that is not declared.
	ErrUnknownNetwork = errors.New("unknown network")

	// ErrSecretNotSet reports use of an account whose secret reference has
	// no value.
	ErrSecretNotSet = errors.New("secret not set")
)

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedConfig, fmt.Sprintf(format, args...))
}
