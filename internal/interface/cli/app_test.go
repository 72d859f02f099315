package cli

import (
	"errors"
	"fmt"
	"testing"

	"github.com/neilberkman/eqviz/internal/core/api"
	"github.com/neilberkman/eqviz/internal/core/dashboard"
	"github.com/neilberkman/eqviz/internal/core/report"
	"github.com/stretchr/testify/assert"
)

func TestDescribe(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		fallback string
		want     string
	}{
		{
			name:     "unauthorized",
			err:      fmt.Errorf("GET /datasets/3/: %w", &api.Error{Kind: api.KindUnauthorized, Status: 401}),
			fallback: dashboard.LoadFailedMessage,
			want:     api.SessionExpiredMessage,
		},
		{
			name:     "server message",
			err:      fmt.Errorf("fetch report for dataset 3: %w", &api.Error{Kind: api.KindServer, Status: 500, Message: "render failed"}),
			fallback: report.FailedMessage,
			want:     "render failed",
		},
		{
			name:     "unclassified keeps cause",
			err:      errors.New("disk full"),
			fallback: report.FailedMessage,
			want:     report.FailedMessage + ": disk full",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.EqualError(t, describe(tt.err, tt.fallback), tt.want)
		})
	}
}
