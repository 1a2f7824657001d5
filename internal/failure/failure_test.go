package failure

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindUnknown, KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.Equal(t, KindSlotUnavailable, KindOf(New(KindSlotUnavailable, "slot %s reserved", "D001")))

	wrapped := fmt.Errorf("bookings: create: %w", New(KindSlotNotFound, "missing"))
	assert.Equal(t, KindSlotNotFound, KindOf(wrapped))
}

func TestErrorsIsMatchesKindSentinel(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(KindConflict, "consultation already cancelled"))
	assert.True(t, errors.Is(err, Conflict))
	assert.False(t, errors.Is(err, NotFound))
}

func TestWrapKeepsCause(t *testing.T) {
	cause := errors.New("redis: connection refused")
	err := Wrap(KindPersistence, cause, "save consultations")
	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.True(t, errors.Is(err, Persistence))
	assert.Contains(t, err.Error(), "connection refused")

	assert.NoError(t, Wrap(KindPersistence, nil, "noop"))
}

func TestErrorMessageFallsBackToCategory(t *testing.T) {
	err := &Error{Kind: KindRateLimited}
	assert.Equal(t, "rate_limited: "+KindRateLimited.Category(), err.Error())
}

func TestHTTPStatus(t *testing.T) {
	cases := map[Kind]int{
		KindInvalidInput:    http.StatusBadRequest,
		KindNotFound:        http.StatusNotFound,
		KindSlotNotFound:    http.StatusNotFound,
		KindSlotUnavailable: http.StatusConflict,
		KindConflict:        http.StatusConflict,
		KindRateLimited:     http.StatusTooManyRequests,
		KindPersistence:     http.StatusServiceUnavailable,
		KindIDCollision:     http.StatusInternalServerError,
		KindInternal:        http.StatusInternalServerError,
	}
	for kind, want := range cases {
		assert.Equal(t, want, kind.HTTPStatus(), string(kind))
		assert.NotEmpty(t, kind.Category())
	}
}

func TestDetailOmitsCause(t *testing.T) {
	err := fmt.Errorf("handler: %w", Wrap(KindPersistence, errors.New("dial tcp 10.0.0.1:6379"), "persist state"))
	assert.Equal(t, "persist state", Detail(err))
	assert.Equal(t, KindConflict.Category(), Detail(&Error{Kind: KindConflict}))
	assert.Empty(t, Detail(errors.New("plain")))
}
