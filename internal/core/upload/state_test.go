package upload

import (
	"errors"
	"testing"

	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransition_HappyPath(t *testing.T) {
	file := &models.PendingFile{Name: "a.csv", Content: []byte("x")}
	ds := &models.Dataset{ID: 1, Filename: "a.csv"}

	s, err := Transition(State{}, Event{Kind: EventSelect, File: file})
	require.NoError(t, err)
	assert.Equal(t, FileSelected, s.Phase)

	s, err = Transition(s, Event{Kind: EventStart})
	require.NoError(t, err)
	assert.Equal(t, Uploading, s.Phase)
	assert.Equal(t, 0, s.Progress)

	s, err = Transition(s, Event{Kind: EventProgress, Progress: 40})
	require.NoError(t, err)
	assert.Equal(t, 40, s.Progress)

	s, err = Transition(s, Event{Kind: EventSucceed, Dataset: ds})
	require.NoError(t, err)
	assert.Equal(t, Succeeded, s.Phase)
	assert.Equal(t, 100, s.Progress)
	assert.Same(t, ds, s.Dataset)

	s, err = Transition(s, Event{Kind: EventReset})
	require.NoError(t, err)
	assert.Equal(t, State{Phase: Idle}, s)
}

func TestTransition_Rejections(t *testing.T) {
	file := &models.PendingFile{Name: "a.csv"}
	uploading := State{Phase: Uploading, File: file, Progress: 30}

	tests := []struct {
		name    string
		state   State
		event   Event
		wantErr error
	}{
		{"select while uploading", uploading, Event{Kind: EventSelect, File: file}, ErrUploadInProgress},
		{"clear while uploading", uploading, Event{Kind: EventClear}, ErrUploadInProgress},
		{"start while uploading", uploading, Event{Kind: EventStart}, ErrUploadInProgress},
		{"start with nothing selected", State{}, Event{Kind: EventStart}, ErrNoFileSelected},
		{"start after failure", State{Phase: Failed}, Event{Kind: EventStart}, ErrNoFileSelected},
		{"progress while idle", State{}, Event{Kind: EventProgress, Progress: 10}, errIllegal},
		{"succeed without dataset", uploading, Event{Kind: EventSucceed}, errIllegal},
		{"fail while idle", State{}, Event{Kind: EventFail, Err: errors.New("x")}, errIllegal},
		{"reset while uploading", uploading, Event{Kind: EventReset}, errIllegal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Transition(tt.state, tt.event)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, tt.state, got)
		})
	}
}

func TestTransition_ProgressNeverDecreases(t *testing.T) {
	s := State{Phase: Uploading, Progress: 50}

	s, _ = Transition(s, Event{Kind: EventProgress, Progress: 20})
	assert.Equal(t, 50, s.Progress)

	s, _ = Transition(s, Event{Kind: EventProgress, Progress: 250})
	assert.Equal(t, 100, s.Progress)
}

func TestTransition_FailDropsFile(t *testing.T) {
	s := State{Phase: Uploading, File: &models.PendingFile{Name: "a.csv"}}
	s, err := Transition(s, Event{Kind: EventFail, Err: &api.Error{Kind: api.KindUnauthorized, Status: 401}})
	require.NoError(t, err)

	assert.Equal(t, Failed, s.Phase)
	assert.Nil(t, s.File)
	assert.Equal(t, api.SessionExpiredMessage, s.Message)
}

func TestMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrCanceled, CancelledMessage},
		{ErrNoFileSelected, NoFileMessage},
		{ErrUploadInProgress, BusyMessage},
		{&api.Error{Kind: api.KindUnauthorized, Status: 401}, api.SessionExpiredMessage},
		{&api.Error{Kind: api.KindValidation, Status: 400, Message: "A .csv file is required."}, "A .csv file is required."},
		{&api.Error{Kind: api.KindUnreachable, Err: errors.New("dial tcp: refused")}, GenericFailureMessage},
		{errors.New("boom"), GenericFailureMessage},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Message(tt.err))
	}
}
