package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBurstThenEmpty(t *testing.T) {
	tests := []struct {
		name  string
		rps   float64
		burst int
		want  int
	}{
		{"explicit burst", 1, 3, 3},
		{"burst defaults to rate", 2, 0, 2},
		{"invalid rate", 0, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := New(tt.rps, tt.burst)
			frozen := l.lastUpdate
			l.now = func() time.Time { return frozen }

			got := 0
			for l.Allow() {
				got++
				if got > 10 {
					break
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRefillOverTime(t *testing.T) {
	l := New(2, 1)
	clock := l.lastUpdate
	l.now = func() time.Time { return clock }

	assert.True(t, l.Allow())
	assert.False(t, l.Allow())

	clock = clock.Add(250 * time.Millisecond)
	assert.False(t, l.Allow())

	clock = clock.Add(250 * time.Millisecond)
	assert.True(t, l.Allow())

	// refill never exceeds the burst
	clock = clock.Add(time.Hour)
	assert.True(t, l.Allow())
	assert.False(t, l.Allow())
}

func TestWaitHonoursCancellation(t *testing.T) {
	l := New(0.001, 1)
	assert.True(t, l.Allow())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, l.Wait(ctx), context.Canceled)
}

func TestWaitReturnsImmediatelyWithToken(t *testing.T) {
	l := New(1, 1)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	assert.NoError(t, l.Wait(ctx))
}
