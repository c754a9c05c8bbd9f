// Package memory provides a CDN that records invalidations instead of
// sending them.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tendant/simple-publish/pkg/publish"
)

// Backend is an in-memory implementation of the publish.CDN interface
type Backend struct {
	mu       sync.Mutex
	requests []publish.InvalidationRequest
	err      error
	seq      int
}

// New creates an empty recorder.
func New() *Backend {
	return &Backend{}
}

// CreateInvalidation records req and acknowledges it.
func (b *Backend) CreateInvalidation(ctx context.Context, req publish.InvalidationRequest) (*publish.InvalidationAck, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.err != nil {
		return nil, b.err
	}

	b.seq++
	req.Paths = append([]string(nil), req.Paths...)
	b.requests = append(b.requests, req)

	id := fmt.Sprintf("I%06d", b.seq)
	return &publish.InvalidationAck{
		ID:              id,
		Status:          "InProgress",
		Location:        fmt.Sprintf("memory://distribution/%s/invalidation/%s", req.DistributionID, id),
		CallerReference: req.CallerReference,
		CreateTime:      time.Now().UTC(),
		Paths:           req.Paths,
	}, nil
}

// Requests returns the recorded requests in submission order.
func (b *Backend) Requests() []publish.InvalidationRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]publish.InvalidationRequest(nil), b.requests...)
}

// Fail makes every request fail with err. A nil err clears it.
func (b *Backend) Fail(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.err = err
}
