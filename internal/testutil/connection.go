// Package testutil holds fakes and fixtures shared by package tests.
package testutil

import (
	"errors"
	"sync"
	"time"

	"portal/pkg/types"
)

var ErrFakeClosed = errors.New("fake connection closed")

// FakeConnection is an in-memory interfaces.Connection that records writes
type FakeConnection struct {
	mu         sync.Mutex
	userID     string
	closed     bool
	closeCount int
	writes     []interface{}
	writeErr   error
	notify     chan struct{}
}

// NewFakeConnection returns an open connection, authenticated when userID is set
func NewFakeConnection(userID string) *FakeConnection {
	return &FakeConnection{userID: userID, notify: make(chan struct{}, 1)}
}

func (f *FakeConnection) WriteJSON(v interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrFakeClosed
	}
	if f.writeErr != nil {
		return f.writeErr
	}
	f.writes = append(f.writes, v)

	select {
	case f.notify <- struct{}{}:
	default:
	}
	return nil
}

func (f *FakeConnection) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	f.closeCount++
	return nil
}

func (f *FakeConnection) GetUserID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.userID
}

func (f *FakeConnection) IsAuthenticated() bool {
	return f.GetUserID() != ""
}

func (f *FakeConnection) IsOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed
}

// FailWrites makes every later WriteJSON return err
func (f *FakeConnection) FailWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *FakeConnection) CloseCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

// Writes returns a copy of everything written so far
func (f *FakeConnection) Writes() []interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]interface{}(nil), f.writes...)
}

// NewMessages returns the new_message pushes received
func (f *FakeConnection) NewMessages() []types.NewMessageEvent {
	var out []types.NewMessageEvent
	for _, w := range f.Writes() {
		if ev, ok := w.(types.NewMessageEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

// Errors returns the error events received
func (f *FakeConnection) Errors() []types.ErrorEvent {
	var out []types.ErrorEvent
	for _, w := range f.Writes() {
		if ev, ok := w.(types.ErrorEvent); ok {
			out = append(out, ev)
		}
	}
	return out
}

// WaitForWrites blocks until at least n writes were recorded or timeout
func (f *FakeConnection) WaitForWrites(n int, timeout time.Duration) bool {
	deadline := time.After(timeout)
	for {
		if len(f.Writes()) >= n {
			return true
		}
		select {
		case <-f.notify:
		case <-deadline:
			return len(f.Writes()) >= n
		}
	}
}
