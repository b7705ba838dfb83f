// Package pool bounds how much request-handling work the server does at
// once and recycles the byte buffers the batch codec allocates per
// request.
package pool

import (
	"bytes"
	"context"
	"sync"
)

// Admission is a worker-count-sized semaphore: it gates how many
// connections the server handles concurrently so the CLI's --workers
// flag has an observable effect rather than letting net/http spawn an
// unbounded goroutine per connection.
type Admission struct {
	tokens chan struct{}
}

// NewAdmission builds an Admission that allows up to n concurrent
// holders. n must be positive.
func NewAdmission(n int) *Admission {
	return &Admission{tokens: make(chan struct{}, n)}
}

// Acquire blocks until a slot is free or ctx is done.
func (a *Admission) Acquire(ctx context.Context) error {
	select {
	case a.tokens <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees a slot acquired with Acquire.
func (a *Admission) Release() {
	<-a.tokens
}

var bufferPool = sync.Pool{
	New: func() any { return new(bytes.Buffer) },
}

// GetBuffer returns a reset *bytes.Buffer from the pool, avoiding a fresh
// allocation per batch response on the hot path.
func GetBuffer() *bytes.Buffer {
	buf := bufferPool.Get().(*bytes.Buffer)
	buf.Reset()
	return buf
}

// PutBuffer returns buf to the pool.
func PutBuffer(buf *bytes.Buffer) {
	bufferPool.Put(buf)
}
