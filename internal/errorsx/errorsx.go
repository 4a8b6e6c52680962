// Package errorsx small extensions to the stdlib errors package.
package errorsx

import (
	"errors"
	"fmt"
)

// String useful wrapper for turning string constants
// into errors that interopt well with stdlib functionality.
type String string

func (t String) Error() string {
	return string(t)
}

// New see stdlib errors.New.
func New(s string) error {
	return errors.New(s)
}

// Errorf see stdlib fmt.Errorf.
func Errorf(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}

// Wrap an error with an additional message. returns nil when err is nil.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf an error with a formatted message. returns nil when err is nil.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Compact returns the first non nil error from the set.
func Compact(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}

	return nil
}

// Ignore the error when it matches one of the provided targets.
func Ignore(err error, targets ...error) error {
	for _, t := range targets {
		if errors.Is(err, t) {
			return nil
		}
	}

	return err
}
