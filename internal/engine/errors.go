package engine

import (
	"errors"
	"fmt"

	"github.com/roach88/signalstore/internal/ir"
)

// ConfigError represents a fatal misuse of the store API.
// Configuration errors are surfaced immediately and never retried.
type ConfigError struct {
	// Code identifies the error category.
	Code ConfigErrorCode

	// Message is a human-readable description.
	Message string

	// FeatureKey identifies the affected feature, if any.
	FeatureKey string
}

// ConfigErrorCode categorizes configuration errors.
type ConfigErrorCode string

const (
	// ErrCodeDuplicateFeature indicates a feature key is already registered.
	ErrCodeDuplicateFeature ConfigErrorCode = "DUPLICATE_FEATURE"

	// ErrCodeUnknownFeature indicates a feature key is not registered.
	ErrCodeUnknownFeature ConfigErrorCode = "UNKNOWN_FEATURE"

	// ErrCodeNotInitialized indicates a dispatch before Configure or the first AddFeature.
	ErrCodeNotInitialized ConfigErrorCode = "NOT_INITIALIZED"

	// ErrCodeExtensionAfterStart indicates an extension added after initialization.
	ErrCodeExtensionAfterStart ConfigErrorCode = "EXTENSION_AFTER_START"

	// ErrCodeConfigureAfterFeatures indicates Configure was called after a feature registered.
	ErrCodeConfigureAfterFeatures ConfigErrorCode = "CONFIGURE_AFTER_FEATURES"

	// ErrCodeAlreadyConfigured indicates Configure was called twice.
	ErrCodeAlreadyConfigured ConfigErrorCode = "ALREADY_CONFIGURED"

	// ErrCodeUndoNotInstalled indicates undo without the Undo extension.
	ErrCodeUndoNotInstalled ConfigErrorCode = "UNDO_NOT_INSTALLED"

	// ErrCodeStoreDestroyed indicates use of a store after Shutdown.
	ErrCodeStoreDestroyed ConfigErrorCode = "STORE_DESTROYED"

	// ErrCodeFeatureDestroyed indicates use of a feature or component store after Destroy.
	ErrCodeFeatureDestroyed ConfigErrorCode = "FEATURE_DESTROYED"
)

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.FeatureKey != "" {
		return fmt.Sprintf("%s: %s (feature=%s)", e.Code, e.Message, e.FeatureKey)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConfigError creates a ConfigError.
func NewConfigError(code ConfigErrorCode, featureKey, message string) *ConfigError {
	return &ConfigError{Code: code, Message: message, FeatureKey: featureKey}
}

// IsConfigError reports whether err is a ConfigError with the given code.
// Uses errors.As to handle wrapped errors.
func IsConfigError(err error, code ConfigErrorCode) bool {
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ce.Code == code
	}
	return false
}

// ReducerError reports a panic raised inside the reducer pipeline.
// The store state is left at its pre-action value.
type ReducerError struct {
	Action ir.Action
	Cause  any
}

// Error implements the error interface.
func (e *ReducerError) Error() string {
	return fmt.Sprintf("reducer failed for action %q (seq=%d): %v", e.Action.Type, e.Action.Seq, e.Cause)
}

// Unwrap exposes the cause when the reducer panicked with an error value.
func (e *ReducerError) Unwrap() error {
	if err, ok := e.Cause.(error); ok {
		return err
	}
	return nil
}

// IsReducerError reports whether err is a ReducerError.
func IsReducerError(err error) bool {
	var re *ReducerError
	return errors.As(err, &re)
}
