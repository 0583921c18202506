package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThrottleSuppressesRepeatedCause(t *testing.T) {
	// GIVEN
	cause := "test-cause-repeated"

	// WHEN / THEN
	assert.False(t, throttle(cause))
	assert.True(t, throttle(cause))
	assert.True(t, throttle(cause))
}

func TestThrottleIsPerCause(t *testing.T) {
	// GIVEN
	assert.False(t, throttle("test-cause-a"))

	// WHEN / THEN
	// a different cause is not affected
	assert.False(t, throttle("test-cause-b"))
}
