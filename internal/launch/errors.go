package launch

import (
	"errors"
	"fmt"
	"strings"
)

// Failure classes. Every error returned while preparing a launch wraps
// exactly one of them.
var (
	// ErrConfig means the requested run cannot be configured: the
	// experiment is not long RNA-seq, the genome or annotation is not
	// supported, or the replicate does not exist.
	ErrConfig = errors.New("invalid configuration")

	// ErrMissingFile means a reference, reads or stage input file could
	// not be located.
	ErrMissingFile = errors.New("required file missing")

	// ErrAlreadyRunning means jobs are still writing to the results folder.
	ErrAlreadyRunning = errors.New("replicate is already running")
)

// ConfigError describes why a run could not be configured.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

func (e *ConfigError) Unwrap() error { return ErrConfig }

func configErrorf(format string, args ...any) error {
	return &ConfigError{Message: fmt.Sprintf(format, args...)}
}

// MissingFileError names the files that could not be located.
type MissingFileError struct {
	// What describes the role of the files, e.g. "TopHat index".
	What  string
	Paths []string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("unable to locate %s '%s'", e.What, strings.Join(e.Paths, "', '"))
}

func (e *MissingFileError) Unwrap() error { return ErrMissingFile }

// JobFailedError reports a stage whose remote task did not complete.
type JobFailedError struct {
	Stage  string
	TaskID string
	Status string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("stage %s (task %s) ended %s", e.Stage, e.TaskID, e.Status)
}
