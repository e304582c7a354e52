package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoff_DoublesUpToMax(t *testing.T) {
	b := &backoff{initial: time.Second, max: 5 * time.Second}

	assert.Equal(t, time.Second, b.Next())
	assert.Equal(t, 2*time.Second, b.Next())
	assert.Equal(t, 4*time.Second, b.Next())
	assert.Equal(t, 5*time.Second, b.Next())
	assert.Equal(t, 5*time.Second, b.Next())

	b.Reset()
	assert.Equal(t, time.Second, b.Next())
}

func TestBreaker_States(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 12, 22, 10, 0, 0, 0, time.UTC)}
	b := newBreaker(3, time.Minute, clock.Now)

	b.Failure()
	b.Failure()
	assert.Equal(t, breakerClosed, b.State())
	assert.True(t, b.Allow())

	// un éxito reinicia la cuenta de fallos consecutivos
	b.Success()
	b.Failure()
	b.Failure()
	assert.Equal(t, breakerClosed, b.State())

	b.Failure()
	assert.Equal(t, breakerOpen, b.State())
	assert.False(t, b.Allow())

	clock.Advance(59 * time.Second)
	assert.False(t, b.Allow())

	clock.Advance(time.Second)
	assert.True(t, b.Allow())
	assert.Equal(t, breakerHalfOpen, b.State())

	// el fallo de la prueba reabre con un cooldown nuevo
	b.Failure()
	assert.Equal(t, breakerOpen, b.State())
	assert.False(t, b.Allow())

	clock.Advance(time.Minute)
	assert.True(t, b.Allow())
	b.Success()
	assert.Equal(t, breakerClosed, b.State())
	assert.Equal(t, "closed", b.State().String())
}

func TestConfig_WithDefaults(t *testing.T) {
	c := Config{MaxParallel: 8, BackoffInitial: 10 * time.Second, BackoffMax: time.Second}.withDefaults()

	assert.Equal(t, 8, c.MaxParallel)
	assert.Equal(t, DefaultConfig().RequestTimeout, c.RequestTimeout)
	assert.Equal(t, 10*time.Second, c.BackoffMax, "max never below initial")
}
