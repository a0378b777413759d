package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeServer struct {
	name     string
	panicMsg string

	mu       sync.Mutex
	stopped  chan struct{}
	shutdown bool
}

func newFakeServer(name string) *fakeServer {
	return &fakeServer{name: name, stopped: make(chan struct{})}
}

func (s *fakeServer) Serve() {
	if s.panicMsg != "" {
		panic(s.panicMsg)
	}
	<-s.stopped
}

func (s *fakeServer) Shutdown(context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.shutdown {
		s.shutdown = true
		close(s.stopped)
	}
}

func (s *fakeServer) Name() string { return s.name }

func (s *fakeServer) isShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shutdown
}

func TestRunStop(t *testing.T) {
	first, second := newFakeServer("first"), newFakeServer("second")
	var closed bool
	a := New("test", first)
	a.AddServer(second)
	a.AddCloser(func(context.Context) error {
		closed = true
		return errors.New("already closed")
	})

	done := make(chan error)
	go func() { done <- a.Run() }()

	a.Stop()
	a.Stop()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.True(t, first.isShutdown())
	assert.True(t, second.isShutdown())
	assert.True(t, closed)
}

func TestRunServerPanic(t *testing.T) {
	broken := newFakeServer("broken")
	broken.panicMsg = "listen tcp :80: permission denied"
	healthy := newFakeServer("healthy")

	err := New("test", broken, healthy).Run()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken: listen tcp :80")
	assert.True(t, healthy.isShutdown())
}

func TestRunWithoutServer(t *testing.T) {
	assert.Error(t, New("test").Run())
}
