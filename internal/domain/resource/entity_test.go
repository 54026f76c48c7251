//go:build unit

package resource_test

import (
	"testing"
	"time"

	"reservation-engine/internal/domain/resource"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssign(t *testing.T) {
	programID := uuid.New()
	date := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)

	t.Run("assigns a reserved status", func(t *testing.T) {
		r, err := resource.NewResource(uuid.New(), resource.StatusAvailable)
		require.NoError(t, err)

		require.NoError(t, r.Assign(resource.StatusReserved, &programID, date))
		assert.Equal(t, resource.StatusReserved, r.Availability())
		require.NotNil(t, r.AssignedToProgram())
		assert.Equal(t, programID, *r.AssignedToProgram())
		require.NotNil(t, r.AssignmentDate())
		assert.Equal(t, date, *r.AssignmentDate())
	})

	t.Run("refuses under maintenance", func(t *testing.T) {
		r, err := resource.NewResource(uuid.New(), resource.StatusMaintenance)
		require.NoError(t, err)
		assert.ErrorIs(t, r.Assign(resource.StatusInUse, nil, date), resource.ErrUnderMaintenance)
	})

	t.Run("refuses non-assignment statuses", func(t *testing.T) {
		r, err := resource.NewResource(uuid.New(), resource.StatusAvailable)
		require.NoError(t, err)
		assert.ErrorIs(t, r.Assign(resource.StatusAvailable, nil, date), resource.ErrInvalidStatus)
	})
}

func TestActivate(t *testing.T) {
	t.Run("promotes reserved to in_use", func(t *testing.T) {
		r, err := resource.NewResource(uuid.New(), resource.StatusReserved)
		require.NoError(t, err)
		require.NoError(t, r.Activate())
		assert.Equal(t, resource.StatusInUse, r.Availability())
	})

	t.Run("rejects any other starting status", func(t *testing.T) {
		r, err := resource.NewResource(uuid.New(), resource.StatusAvailable)
		require.NoError(t, err)
		assert.ErrorIs(t, r.Activate(), resource.ErrInvalidStatus)
	})
}

func TestRelease(t *testing.T) {
	programID := uuid.New()

	t.Run("clears the assignment", func(t *testing.T) {
		r := resource.ReconstructResource(uuid.New(), resource.StatusInUse, &programID, nil)
		r.Release()
		assert.Equal(t, resource.StatusAvailable, r.Availability())
		assert.Nil(t, r.AssignedToProgram())
		assert.True(t, r.IsAvailable())
	})

	t.Run("maintenance is sticky", func(t *testing.T) {
		r := resource.ReconstructResource(uuid.New(), resource.StatusMaintenance, nil, nil)
		r.Release()
		assert.Equal(t, resource.StatusMaintenance, r.Availability())
	})
}

func TestStatusForAllocation(t *testing.T) {
	today := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		startDate time.Time
		want      resource.AvailabilityStatus
	}{
		{"future booking reserves", time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC), resource.StatusReserved},
		{"booking starting today goes straight to in_use", today, resource.StatusInUse},
		{"late allocation of a started booking goes to in_use", time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), resource.StatusInUse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, resource.StatusForAllocation(tt.startDate, today))
		})
	}
}
