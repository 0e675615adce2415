package cli

import (
	"errors"
	"fmt"

	"github.com/felixgeelhaar/taskline/pkg/application"
	"github.com/felixgeelhaar/taskline/pkg/domain/builder"
	"github.com/felixgeelhaar/taskline/pkg/storage"
)

// CLIError wraps domain errors with user-facing messages and actionable hints.
type CLIError struct {
	Message  string
	Hint     string
	Err      error
	ExitCode int
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a CLIError with a default exit code of 1.
func NewCLIError(msg, hint string, err error) *CLIError {
	return &CLIError{
		Message:  msg,
		Hint:     hint,
		Err:      err,
		ExitCode: 1,
	}
}

// MapError converts known domain errors into CLIErrors with actionable hints.
// Unmapped errors are returned as-is.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	var valErr *builder.ValidationError
	if errors.As(err, &valErr) {
		return NewCLIError(valErr.Error(), "Check the description and dates, then retry", err)
	}

	var conflict *storage.ConflictError
	if errors.As(err, &conflict) {
		return NewCLIError("overlay was saved by another taskline process",
			"Stop the other process (e.g. 'taskline watch') or rerun the command", err)
	}

	var syncErr *application.SyncError
	if errors.As(err, &syncErr) && !errors.Is(err, application.ErrMissingPreviousVersion) {
		return NewCLIError(
			fmt.Sprintf("could not write task '%s'", syncErr.TaskID),
			fmt.Sprintf("Fix the document, then run 'taskline retry %s'", syncErr.TaskID),
			err,
		)
	}

	switch {
	case errors.Is(err, application.ErrTaskNotFound):
		return NewCLIError("task not found", "Run 'taskline list' to see task ids", err)
	case errors.Is(err, application.ErrDuplicateID):
		return NewCLIError("task id already exists", "Pick another --id or omit it to generate one", err)
	case errors.Is(err, application.ErrMissingPreviousVersion):
		return NewCLIError("edited task cannot be located in its document",
			"Run 'taskline sync' to reload the documents", err)
	}

	return err
}
