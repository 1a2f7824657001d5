package consultations

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinic-scheduler/internal/failure"
)

func newTestStore() *Store {
	s := NewStore(nil)
	s.now = func() time.Time { return time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC) }
	return s
}

func TestCreateDefaultsAndCollision(t *testing.T) {
	s := newTestStore()

	c, err := s.Create(Consultation{ID: "CON-1", PatientID: "PAC1", SlotID: "D001"})
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, c.Status)
	assert.False(t, c.CreatedAt.IsZero())
	assert.Equal(t, c.CreatedAt, c.UpdatedAt)

	_, err = s.Create(Consultation{ID: "CON-1", PatientID: "PAC2", SlotID: "D002"})
	assert.Equal(t, failure.KindIDCollision, failure.KindOf(err))

	stored, ok := s.Get("CON-1")
	require.True(t, ok)
	assert.Equal(t, "PAC1", stored.PatientID)

	_, err = s.Create(Consultation{ID: "CON-2", SlotID: "D002"})
	assert.Equal(t, failure.KindInvalidInput, failure.KindOf(err))
	assert.Equal(t, 1, s.Len())
}

func TestLifecycle(t *testing.T) {
	cases := []struct {
		from Status
		to   Status
		ok   bool
	}{
		{StatusScheduled, StatusConfirmed, true},
		{StatusScheduled, StatusCancelled, true},
		{StatusScheduled, StatusCompleted, false},
		{StatusConfirmed, StatusCompleted, true},
		{StatusConfirmed, StatusCancelled, true},
		{StatusConfirmed, StatusConfirmed, false},
		{StatusCancelled, StatusCancelled, false},
		{StatusCancelled, StatusConfirmed, false},
		{StatusCompleted, StatusCancelled, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransition(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestUpdateStatus(t *testing.T) {
	s := newTestStore()
	_, err := s.Create(Consultation{ID: "CON-1", PatientID: "PAC1", SlotID: "D001"})
	require.NoError(t, err)

	c, err := s.UpdateStatus("CON-1", StatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, StatusConfirmed, c.Status)

	_, err = s.UpdateStatus("CON-1", StatusScheduled)
	assert.Equal(t, failure.KindConflict, failure.KindOf(err))
	stored, _ := s.Get("CON-1")
	assert.Equal(t, StatusConfirmed, stored.Status)

	_, err = s.UpdateStatus("CON-404", StatusConfirmed)
	assert.Equal(t, failure.KindNotFound, failure.KindOf(err))
}

func TestActiveSlotIDsAndListByPatient(t *testing.T) {
	s := newTestStore()
	for _, c := range []Consultation{
		{ID: "CON-1", PatientID: "PAC1", SlotID: "D001"},
		{ID: "CON-2", PatientID: "PAC1", SlotID: "D002"},
		{ID: "CON-3", PatientID: "PAC2", SlotID: "D003"},
	} {
		_, err := s.Create(c)
		require.NoError(t, err)
	}
	_, err := s.UpdateStatus("CON-2", StatusCancelled)
	require.NoError(t, err)

	assert.Equal(t, []string{"D001", "D003"}, s.ActiveSlotIDs())
	assert.Len(t, s.ListByPatient("PAC1"), 2)
	assert.Empty(t, s.ListByPatient("PAC9"))

	s.Delete("CON-1")
	assert.Equal(t, []string{"D003"}, s.ActiveSlotIDs())
}

func TestParseStatus(t *testing.T) {
	st, ok := ParseStatus(" Cancelada ")
	require.True(t, ok)
	assert.Equal(t, StatusCancelled, st)
	_, ok = ParseStatus("pending")
	assert.False(t, ok)
	assert.True(t, StatusConfirmed.Active())
	assert.True(t, StatusCompleted.Terminal())
}
