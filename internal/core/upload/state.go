// Package upload drives a single file through selection, upload and
// settlement.
package upload

import (
	"errors"

	"github.com/neilberkman/eqviz/internal/core/models"
)

// Phase is the step of the upload state machine
type Phase int

const (
	Idle Phase = iota
	FileSelected
	Uploading
	Succeeded
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case FileSelected:
		return "file_selected"
	case Uploading:
		return "uploading"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return "unknown"
}

var (
	ErrNoFileSelected   = errors.New("no file selected")
	ErrUploadInProgress = errors.New("an upload is already in progress")
	ErrInvalidFile      = errors.New("invalid file")
	ErrCanceled         = errors.New("upload cancelled")
	errIllegal          = errors.New("illegal transition")
)

// State is a snapshot of the controller. File and Dataset are shared
// read-only values.
type State struct {
	Phase    Phase
	File     *models.PendingFile
	Progress int // percent, only meaningful while Uploading or Succeeded
	Dataset  *models.Dataset
	Message  string // set in Failed
	Err      error  // set in Failed
}

// EventKind names an input to the state machine
type EventKind int

const (
	EventSelect EventKind = iota
	EventClear
	EventStart
	EventProgress
	EventSucceed
	EventFail
	EventReset
)

// Event is an input to Transition
type Event struct {
	Kind     EventKind
	File     *models.PendingFile
	Progress int
	Dataset  *models.Dataset
	Err      error
}

// Transition is the whole state machine:
//
//	Idle -> FileSelected -> Uploading -> Succeeded|Failed -> Idle
//
// plus FileSelected -> Idle on clear and FileSelected -> FileSelected when
// another file is chosen. It never mutates s.
func Transition(s State, e Event) (State, error) {
	switch e.Kind {
	case EventSelect:
		switch s.Phase {
		case Idle, FileSelected:
			if e.File == nil {
				return s, ErrNoFileSelected
			}
			return State{Phase: FileSelected, File: e.File}, nil
		case Uploading:
			return s, ErrUploadInProgress
		}

	case EventClear:
		switch s.Phase {
		case Idle, FileSelected:
			return State{Phase: Idle}, nil
		case Uploading:
			return s, ErrUploadInProgress
		}

	case EventStart:
		switch s.Phase {
		case FileSelected:
			return State{Phase: Uploading, File: s.File}, nil
		case Uploading:
			return s, ErrUploadInProgress
		default:
			return s, ErrNoFileSelected
		}

	case EventProgress:
		if s.Phase != Uploading {
			return s, errIllegal
		}
		p := e.Progress
		if p < 0 {
			p = 0
		}
		if p > 100 {
			p = 100
		}
		// Out-of-order or repeated reports never move the bar backwards
		if p <= s.Progress {
			return s, nil
		}
		next := s
		next.Progress = p
		return next, nil

	case EventSucceed:
		if s.Phase != Uploading || e.Dataset == nil {
			return s, errIllegal
		}
		return State{Phase: Succeeded, File: s.File, Progress: 100, Dataset: e.Dataset}, nil

	case EventFail:
		if s.Phase != Uploading {
			return s, errIllegal
		}
		return State{Phase: Failed, Progress: s.Progress, Message: Message(e.Err), Err: e.Err}, nil

	case EventReset:
		switch s.Phase {
		case Succeeded, Failed, Idle:
			return State{Phase: Idle}, nil
		}
	}
	return s, errIllegal
}
