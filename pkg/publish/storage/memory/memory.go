package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tendant/simple-publish/pkg/publish"
)

// Object is a stored object together with the parameters it was put with.
type Object struct {
	Data         []byte
	ContentType  string
	AccessPolicy publish.AccessPolicy
	Encryption   publish.Encryption
	KMSKeyID     string
	CacheControl string
	ETag         string
	VersionID    string
	LastModified time.Time
}

// Backend is an in-memory implementation of the publish.ObjectStore interface
type Backend struct {
	mu       sync.RWMutex
	objects  map[publish.ObjectRef]*Object
	partSize int64
	version  int

	headErrs map[publish.ObjectRef]error
	putErr   error

	heads int
	puts  int
}

// New creates a new in-memory storage backend. ETags are computed with
// publish.DefaultPartSize.
func New() *Backend {
	return NewWithPartSize(publish.DefaultPartSize)
}

// NewWithPartSize creates a backend whose ETags follow the given part size.
func NewWithPartSize(partSize int64) *Backend {
	return &Backend{
		objects:  make(map[publish.ObjectRef]*Object),
		partSize: partSize,
		headErrs: make(map[publish.ObjectRef]error),
	}
}

// HeadObject returns metadata for a stored object
func (b *Backend) HeadObject(ctx context.Context, ref publish.ObjectRef) (*publish.ObjectMeta, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.heads++
	if err, ok := b.headErrs[ref]; ok {
		return nil, err
	}
	obj, exists := b.objects[ref]
	if !exists {
		return nil, fmt.Errorf("head %s: %w", ref, publish.ErrObjectNotFound)
	}

	return &publish.ObjectMeta{
		Ref:          ref,
		ETag:         obj.ETag,
		ContentType:  obj.ContentType,
		Size:         int64(len(obj.Data)),
		LastModified: obj.LastModified,
		VersionID:    obj.VersionID,
	}, nil
}

// PutObject stores a copy of params.Body
func (b *Backend) PutObject(ctx context.Context, params publish.PutParams) (*publish.UploadOutcome, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.puts++
	if b.putErr != nil {
		return nil, b.putErr
	}

	b.version++
	data := append([]byte(nil), params.Body...)
	obj := &Object{
		Data:         data,
		ContentType:  params.ContentType,
		AccessPolicy: params.AccessPolicy,
		Encryption:   params.Encryption,
		KMSKeyID:     params.KMSKeyID,
		CacheControl: params.CacheControl,
		ETag:         publish.ComputeFingerprint(data, b.partSize).Quoted(),
		VersionID:    fmt.Sprintf("v%d", b.version),
		LastModified: time.Now().UTC(),
	}
	b.objects[params.Ref] = obj

	return &publish.UploadOutcome{
		Ref:       params.Ref,
		Location:  "memory://" + params.Ref.String(),
		ETag:      obj.ETag,
		VersionID: obj.VersionID,
	}, nil
}

// Get returns a copy of the stored object, if any.
func (b *Backend) Get(ref publish.ObjectRef) (Object, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	obj, ok := b.objects[ref]
	if !ok {
		return Object{}, false
	}
	cp := *obj
	cp.Data = append([]byte(nil), obj.Data...)
	return cp, true
}

// SetETag overwrites the stored ETag of an existing object, or creates an
// empty object carrying it.
func (b *Backend) SetETag(ref publish.ObjectRef, etag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obj, ok := b.objects[ref]
	if !ok {
		obj = &Object{LastModified: time.Now().UTC()}
		b.objects[ref] = obj
	}
	obj.ETag = etag
}

// FailHead makes lookups of ref fail with err. A nil err clears it.
func (b *Backend) FailHead(ref publish.ObjectRef, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.headErrs, ref)
		return
	}
	b.headErrs[ref] = err
}

// FailPut makes every upload fail with err. A nil err clears it.
func (b *Backend) FailPut(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.putErr = err
}

// Calls returns how many HEAD and PUT calls the backend has served.
func (b *Backend) Calls() (heads, puts int) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.heads, b.puts
}
