package handlers

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dayloom/dayloom/models"
)

func TestSessionStopIsIdempotent(t *testing.T) {
	session := NewCaptureSession("test-session", nil, NewAppNameTable())
	assert.True(t, session.IsActive)

	session.Stop()
	assert.False(t, session.IsActive)

	// A second Stop must not close BatchCh again.
	assert.NotPanics(t, func() { session.Stop() })
}

func TestSendCardAfterStopIsDropped(t *testing.T) {
	session := NewCaptureSession("test-session", nil, NewAppNameTable())
	session.Stop()

	// With a nil connection any attempted write would panic; a stopped
	// session must drop the card before reaching the socket.
	assert.NotPanics(t, func() {
		session.SendCard(models.ActivityCard{Title: "late card"})
	})
}

func TestConcurrentSendAndStop(t *testing.T) {
	session := NewCaptureSession("test-session", nil, NewAppNameTable())
	session.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.SendCard(models.ActivityCard{Title: "late card"})
			session.Stop()
		}()
	}
	wg.Wait()
	assert.False(t, session.IsActive)
}
