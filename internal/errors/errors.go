// Package errors provides structured error types for the scribe bot.
package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Sentinel errors for common failure modes. Command handlers translate these
// into user-facing templated messages; none of them are fatal.
var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidInput    = errors.New("invalid input")
	ErrPermission      = errors.New("permission denied")
	ErrCommandDisabled = errors.New("command disabled on this server")
	ErrNoTimezone      = errors.New("user timezone not configured")

	ErrSprintExists       = errors.New("a sprint already exists on this server")
	ErrNoSprint           = errors.New("no sprint is running on this server")
	ErrSprintNotStarted   = errors.New("sprint has not started yet")
	ErrNotSprinting       = errors.New("user has not joined the sprint")
	ErrNonWordCount       = errors.New("user joined without word counting")
	ErrWordCountBelowStart = errors.New("declared word count is below starting count")
)

// WPMConfirmError is returned when a declaration exceeds the WPM ceiling.
// Nothing is stored; the caller must ask the user to re-declare.
type WPMConfirmError struct {
	Written int
	WPM     float64
	Ceiling int
}

func (e *WPMConfirmError) Error() string {
	return fmt.Sprintf("declared %d words (%.0f wpm) exceeds ceiling of %d wpm, confirmation required", e.Written, e.WPM, e.Ceiling)
}

// IsUserError reports whether err should be surfaced to the user rather than
// logged as an internal failure.
func IsUserError(err error) bool {
	var wpmErr *WPMConfirmError
	if errors.As(err, &wpmErr) {
		return true
	}
	for _, sentinel := range []error{
		ErrInvalidInput, ErrPermission, ErrCommandDisabled, ErrNoTimezone,
		ErrSprintExists, ErrNoSprint, ErrSprintNotStarted, ErrNotSprinting,
		ErrNonWordCount, ErrWordCountBelowStart, ErrNotFound,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}

// CorrelationCode returns a short code for tying a logged error to a user
// report, e.g. "D4F/8A1/C09".
func CorrelationCode() string {
	raw := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return raw[0:3] + "/" + raw[3:6] + "/" + raw[6:9]
}

// Is, As and New re-export the standard library helpers so callers only need
// one errors import.
func Is(err, target error) bool              { return errors.Is(err, target) }
func As(err error, target interface{}) bool  { return errors.As(err, target) }
func New(text string) error                  { return errors.New(text) }
