// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package device

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Bring-up error kinds. Wrapped errors keep their kind, test with errors.Is.
var (
	// ErrMissingExtension is returned when a required instance extension
	// is not supported by the host. Fatal.
	ErrMissingExtension = errors.New("required extension missing")

	// ErrMissingValidationLayer is reported when validation was requested
	// but the layers are not installed. Validation is disabled instead.
	ErrMissingValidationLayer = errors.New("validation layer missing")

	// ErrNoSuitableDevice is returned when no physical device passes selection. Fatal.
	ErrNoSuitableDevice = errors.New("no suitable physical device")

	// ErrDeviceCreationFailed is returned when the driver rejects logical
	// device creation. Fatal.
	ErrDeviceCreationFailed = errors.New("logical device creation failed")

	// ErrDebugMessengerUnavailable is reported when the debug messenger
	// cannot be created or destroyed.
	ErrDebugMessengerUnavailable = errors.New("debug messenger unavailable")

	// ErrQueueResolutionIncomplete rejects a candidate whose required
	// queue families did not all resolve.
	ErrQueueResolutionIncomplete = errors.New("queue family resolution incomplete")

	// ErrInstanceCreationFailed is returned when the driver rejects
	// instance creation. Fatal.
	ErrInstanceCreationFailed = errors.New("instance creation failed")
)

var fatal = []error{
	ErrMissingExtension,
	ErrNoSuitableDevice,
	ErrDeviceCreationFailed,
	ErrInstanceCreationFailed,
}

// IsFatal reports whether err must terminate startup.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	for _, f := range fatal {
		if errors.Is(err, f) {
			return true
		}
	}
	return false
}

// Stage names a step of the bring-up sequence.
type Stage string

// Bring-up stages
const (
	StageInstance         Stage = "instance"
	StageSurface          Stage = "surface"
	StageDeviceSelection  Stage = "device selection"
	StageQueueResolution  Stage = "queue resolution"
	StageLogicalDevice    Stage = "logical device"
	StageQueueInitialized Stage = "queue initialization"
)

// StageError ties a bring-up failure to the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

// Unwrap gives errors.Is access to the wrapped kind.
func (e *StageError) Unwrap() error {
	return e.Err
}

// FailedStage returns the stage err was raised in, if any.
func FailedStage(err error) (Stage, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}
