package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smileid/pkg/domain"
	dErrors "smileid/pkg/domain-errors"
)

func TestValidatePartnerParams(t *testing.T) {
	t.Run("accepts numeric job type from JSON", func(t *testing.T) {
		var data map[string]any
		require.NoError(t, json.Unmarshal([]byte(`{"user_id":"u-1","job_id":"j-1","job_type":1}`), &data))
		p, err := ValidatePartnerParams(data)
		require.NoError(t, err)
		assert.Equal(t, domain.PartnerParams{UserID: "u-1", JobID: "j-1", JobType: domain.JobTypeCompareSelfieToID}, p)
	})

	t.Run("accepts job type as string", func(t *testing.T) {
		p, err := ValidatePartnerParams(map[string]any{"user_id": "u", "job_id": "j", "job_type": "4"})
		require.NoError(t, err)
		assert.Equal(t, domain.JobTypeRegisterUser, p.JobType)
	})

	tests := []struct {
		name string
		data map[string]any
		want string
	}{
		{"nil params", nil, "partner params"},
		{"missing user id", map[string]any{"job_id": "j", "job_type": 1}, "user_id"},
		{"non string job id", map[string]any{"user_id": "u", "job_id": 7, "job_type": 1}, "job_id needs to be a string"},
		{"missing job type", map[string]any{"user_id": "u", "job_id": "j"}, "job_type"},
		{"fractional job type", map[string]any{"user_id": "u", "job_id": "j", "job_type": 1.5}, "integer"},
		{"unknown job type", map[string]any{"user_id": "u", "job_id": "j", "job_type": 3}, "not supported"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ValidatePartnerParams(tt.data)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
