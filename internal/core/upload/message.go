package upload

import (
	"errors"

	"github.com/neilberkman/eqviz/internal/core/api"
)

const (
	GenericFailureMessage = "File upload failed. Please try again."
	CancelledMessage      = "Upload cancelled."
	NoFileMessage         = "Please select a file first!"
	BusyMessage           = "An upload is already in progress."
)

// Message is the text shown to the user for an upload error
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrCanceled), errors.Is(err, api.ErrCanceled):
		return CancelledMessage
	case errors.Is(err, ErrNoFileSelected):
		return NoFileMessage
	case errors.Is(err, ErrUploadInProgress):
		return BusyMessage
	case errors.Is(err, ErrInvalidFile):
		return err.Error()
	}
	return api.Describe(err, GenericFailureMessage)
}
