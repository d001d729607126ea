// Package errors defines the error values shared across the chanmirror
// packages and small helpers for wrapping errors with context.
package errors

import "fmt"

// Common error types.
var (
	// Lock file errors.
	ErrLockParse       = fmt.Errorf("failed to parse lock file")
	ErrLockVersion     = fmt.Errorf("unsupported lock file version")
	ErrMissingHash     = fmt.Errorf("lock entry has no content hash")
	ErrMalformedURL    = fmt.Errorf("lock entry has a malformed URL")
	ErrMissingSubdir   = fmt.Errorf("platform subdirectory cannot be derived from URL")
	ErrMissingFilename = fmt.Errorf("filename cannot be derived from URL")

	// Channel layout errors.
	ErrPathCollision = fmt.Errorf("two records map to the same channel path with differing hashes")
	ErrInvalidPath   = fmt.Errorf("invalid path")

	// Mirror errors.
	ErrDownloadFailed   = fmt.Errorf("download failed")
	ErrFileHashMismatch = fmt.Errorf("file hash mismatch")
	ErrArtifactMissing  = fmt.Errorf("artifact missing from mirror")
	ErrMirrorIncomplete = fmt.Errorf("mirror run finished with failed records")

	// Publish errors.
	ErrPublisherFailed = fmt.Errorf("publisher failed")
	ErrHookExecution   = fmt.Errorf("error executing hook")
	ErrHookScript      = fmt.Errorf("hook script error")
	ErrHookLoad        = fmt.Errorf("failed to load hook")

	// Config errors.
	ErrEmptyConfigPath   = fmt.Errorf("config file path cannot be empty")
	ErrInvalidConfigPath = fmt.Errorf("invalid config file path")
	ErrConfigParse       = fmt.Errorf("failed to parse config")
	ErrConfigValidation  = fmt.Errorf("invalid configuration")
	ErrConfigEncode      = fmt.Errorf("failed to encode config")
	ErrConfigFileExists  = fmt.Errorf("config file already exists")

	// Validation errors.
	ErrValidation = fmt.Errorf("validation failed")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
