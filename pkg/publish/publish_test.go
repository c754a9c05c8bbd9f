package publish_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-publish/pkg/publish"
	memorycdn "github.com/tendant/simple-publish/pkg/publish/cdn/memory"
	memorystorage "github.com/tendant/simple-publish/pkg/publish/storage/memory"
)

var quiet = publish.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))

func ref(key string) publish.ObjectRef {
	return publish.ObjectRef{Bucket: "site-bucket", Key: key}
}

type recorded struct {
	op  string
	err error
}

type fakeRecorder struct {
	ops   []recorded
	bytes int
}

func (r *fakeRecorder) ObserveOperation(operation string, err error, seconds float64) {
	r.ops = append(r.ops, recorded{op: operation, err: err})
}

func (r *fakeRecorder) AddUploadedBytes(n int) { r.bytes += n }

func TestDetect_AbsentObject(t *testing.T) {
	store := memorystorage.New()
	d := publish.NewDetector(store, quiet)

	result, err := d.Detect(context.Background(), ref("site/index.html"), []byte("<h1>hi</h1>"))
	require.NoError(t, err)
	assert.False(t, result.Exists)
	assert.True(t, result.NeedsUpload)
}

func TestDetect_MatchingTag(t *testing.T) {
	store := memorystorage.New()
	data := []byte("console.log('xyz')")
	store.SetETag(ref("site/app.js"), publish.ComputeFingerprint(data, publish.DefaultPartSize).Quoted())

	result, err := publish.NewDetector(store, quiet).Detect(context.Background(), ref("site/app.js"), data)
	require.NoError(t, err)
	assert.True(t, result.Exists)
	assert.False(t, result.NeedsUpload)
	assert.Equal(t, result.Fingerprint.Quoted(), result.RemoteETag)
}

func TestDetect_DifferentTag(t *testing.T) {
	store := memorystorage.New()
	store.SetETag(ref("site/app.js"), `"xyz789"`)

	result, err := publish.NewDetector(store, quiet).Detect(context.Background(), ref("site/app.js"), []byte("new"))
	require.NoError(t, err)
	assert.True(t, result.Exists)
	assert.True(t, result.NeedsUpload)
	assert.Equal(t, `"xyz789"`, result.RemoteETag)
}

func TestDetect_ComparesQuotingVerbatim(t *testing.T) {
	store := memorystorage.New()
	data := []byte("body")
	// Same digest without the quotes S3 reports is a mismatch.
	store.SetETag(ref("a.txt"), string(publish.ComputeFingerprint(data, publish.DefaultPartSize)))

	result, err := publish.NewDetector(store, quiet).Detect(context.Background(), ref("a.txt"), data)
	require.NoError(t, err)
	assert.True(t, result.NeedsUpload)
}

func TestDetect_LookupFailure(t *testing.T) {
	denied := errors.New("AccessDenied: forbidden")

	t.Run("strict surfaces the fault", func(t *testing.T) {
		store := memorystorage.New()
		store.FailHead(ref("site/index.html"), denied)

		_, err := publish.NewDetector(store, quiet).Detect(context.Background(), ref("site/index.html"), []byte("x"))
		require.Error(t, err)
		assert.ErrorIs(t, err, publish.ErrLookupFailed)
		assert.ErrorIs(t, err, denied)
	})

	t.Run("lenient treats it as absent", func(t *testing.T) {
		store := memorystorage.New()
		store.FailHead(ref("site/index.html"), denied)

		result, err := publish.NewDetector(store, quiet, publish.WithLenientLookup()).
			Detect(context.Background(), ref("site/index.html"), []byte("x"))
		require.NoError(t, err)
		assert.False(t, result.Exists)
		assert.True(t, result.NeedsUpload)
	})
}

func TestDetect_InvalidRef(t *testing.T) {
	store := memorystorage.New()
	_, err := publish.NewDetector(store, quiet).Detect(context.Background(), publish.ObjectRef{Bucket: "b"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, publish.ErrInvalidRequest)

	heads, _ := store.Calls()
	assert.Zero(t, heads)
}

func TestNeedsUpdate(t *testing.T) {
	store := memorystorage.New()
	d := publish.NewDetector(store, quiet)
	ctx := context.Background()

	changed, err := d.NeedsUpdate(ctx, ref("missing.html"), []byte("x"))
	require.NoError(t, err)
	assert.False(t, changed, "absent objects are not updates")

	store.SetETag(ref("page.html"), `"stale"`)
	changed, err = d.NeedsUpdate(ctx, ref("page.html"), []byte("x"))
	require.NoError(t, err)
	assert.True(t, changed)
}

func TestPublish_UnknownContentType(t *testing.T) {
	store := memorystorage.New()
	p := publish.NewPublisher(store, quiet)

	_, err := p.Publish(context.Background(), ref("README"), []byte("# readme"), publish.PublishOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, publish.ErrUnknownContentType)
	assert.Equal(t, "publish site-bucket/README: unknown content type: README has no extension", err.Error())

	heads, puts := store.Calls()
	assert.Zero(t, heads)
	assert.Zero(t, puts, "no network call for an unknown content type")
}

func TestPublish_Defaults(t *testing.T) {
	store := memorystorage.New()
	p := publish.NewPublisher(store, quiet)

	out, err := p.Publish(context.Background(), ref("site/index.html"), []byte("<h1>hi</h1>"), publish.PublishOptions{})
	require.NoError(t, err)
	assert.Equal(t, ref("site/index.html"), out.Ref)
	assert.NotEmpty(t, out.Location)

	obj, ok := store.Get(ref("site/index.html"))
	require.True(t, ok)
	assert.Equal(t, publish.ACLPublicRead, obj.AccessPolicy)
	assert.Equal(t, publish.EncryptionNone, obj.Encryption)
	assert.Contains(t, obj.ContentType, "text/html")
}

func TestPublish_Options(t *testing.T) {
	store := memorystorage.New()
	p := publish.NewPublisher(store, quiet)

	_, err := p.Publish(context.Background(), ref("docs/guide.pdf"), []byte("%PDF"), publish.PublishOptions{
		AccessPolicy: publish.ACLPrivate,
		Encryption:   publish.EncryptionKMS,
		KMSKeyID:     "alias/docs",
		CacheControl: "max-age=300",
	})
	require.NoError(t, err)

	obj, ok := store.Get(ref("docs/guide.pdf"))
	require.True(t, ok)
	assert.Equal(t, publish.ACLPrivate, obj.AccessPolicy)
	assert.Equal(t, publish.EncryptionKMS, obj.Encryption)
	assert.Equal(t, "alias/docs", obj.KMSKeyID)
	assert.Equal(t, "max-age=300", obj.CacheControl)
	assert.Equal(t, "application/pdf", obj.ContentType)
}

func TestPublish_InvalidOptions(t *testing.T) {
	tests := []struct {
		name string
		opts publish.PublishOptions
	}{
		{"unknown acl", publish.PublishOptions{AccessPolicy: "world-writable"}},
		{"unknown encryption", publish.PublishOptions{Encryption: "rot13"}},
		{"kms key without kms", publish.PublishOptions{Encryption: publish.EncryptionAES256, KMSKeyID: "alias/x"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memorystorage.New()
			_, err := publish.NewPublisher(store, quiet).Publish(context.Background(), ref("index.html"), []byte("x"), tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, publish.ErrInvalidRequest)

			_, puts := store.Calls()
			assert.Zero(t, puts)
		})
	}
}

func TestPublish_StoreFailure(t *testing.T) {
	store := memorystorage.New()
	cause := errors.New("connection reset by peer")
	store.FailPut(cause)

	_, err := publish.NewPublisher(store, quiet).Publish(context.Background(), ref("index.html"), []byte("x"), publish.PublishOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, publish.ErrUploadFailed)
	assert.ErrorIs(t, err, cause)

	_, puts := store.Calls()
	assert.Equal(t, 1, puts, "no retries")
}

func TestDetectThenPublish(t *testing.T) {
	store := memorystorage.New()
	ctx := context.Background()
	d := publish.NewDetector(store, quiet)
	p := publish.NewPublisher(store, quiet)
	data := []byte("<html>v1</html>")

	result, err := d.Detect(ctx, ref("site/index.html"), data)
	require.NoError(t, err)
	assert.Equal(t, publish.DetectResult{Exists: false, NeedsUpload: true}, result)

	out, err := p.Publish(ctx, ref("site/index.html"), data, publish.PublishOptions{})
	require.NoError(t, err)
	assert.Contains(t, out.Location, "site/index.html")

	result, err = d.Detect(ctx, ref("site/index.html"), data)
	require.NoError(t, err)
	assert.True(t, result.Exists)
	assert.False(t, result.NeedsUpload)

	result, err = d.Detect(ctx, ref("site/index.html"), []byte("<html>v2</html>"))
	require.NoError(t, err)
	assert.True(t, result.NeedsUpload)
}

func TestInvalidate_DistinctReferences(t *testing.T) {
	cdn := memorycdn.New()
	inv := publish.NewInvalidator(cdn, quiet)
	paths := []string{"/index.html", "/app.js"}

	first, err := inv.Invalidate(context.Background(), "E123", paths)
	require.NoError(t, err)
	second, err := inv.Invalidate(context.Background(), "E123", paths)
	require.NoError(t, err)

	assert.NotEqual(t, first.ID, second.ID)
	assert.NotEqual(t, first.CallerReference, second.CallerReference)

	reqs := cdn.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, paths, reqs[0].Paths)
	assert.Equal(t, paths, reqs[1].Paths)
	assert.NotEqual(t, reqs[0].CallerReference, reqs[1].CallerReference)
}

func TestInvalidate_KeepsOrderAndDuplicates(t *testing.T) {
	cdn := memorycdn.New()
	paths := []string{"/b", "/a", "/b"}

	ack, err := publish.NewInvalidator(cdn, quiet, publish.WithCallerReference(func() string { return "fixed" })).
		Invalidate(context.Background(), "E123", paths)
	require.NoError(t, err)
	assert.Equal(t, "fixed", ack.CallerReference)
	assert.Equal(t, paths, cdn.Requests()[0].Paths)
}

func TestInvalidate_Validation(t *testing.T) {
	cdn := memorycdn.New()
	inv := publish.NewInvalidator(cdn, quiet)

	_, err := inv.Invalidate(context.Background(), "", []string{"/x"})
	assert.ErrorIs(t, err, publish.ErrInvalidRequest)

	_, err = inv.Invalidate(context.Background(), "E123", nil)
	assert.ErrorIs(t, err, publish.ErrInvalidRequest)

	assert.Empty(t, cdn.Requests())
}

func TestInvalidate_Failure(t *testing.T) {
	cdn := memorycdn.New()
	cause := errors.New("AccessDenied")
	cdn.Fail(cause)

	_, err := publish.NewInvalidator(cdn, quiet).Invalidate(context.Background(), "E123", []string{"/*"})
	require.Error(t, err)
	assert.ErrorIs(t, err, publish.ErrInvalidationFailed)
	assert.ErrorIs(t, err, cause)
}

func TestRecorder(t *testing.T) {
	store := memorystorage.New()
	rec := &fakeRecorder{}
	ctx := context.Background()

	_, err := publish.NewDetector(store, quiet, publish.WithRecorder(rec)).Detect(ctx, ref("a.html"), []byte("x"))
	require.NoError(t, err)
	_, err = publish.NewPublisher(store, quiet, publish.WithRecorder(rec)).Publish(ctx, ref("a.html"), []byte("xyz"), publish.PublishOptions{})
	require.NoError(t, err)
	_, err = publish.NewPublisher(store, quiet, publish.WithRecorder(rec)).Publish(ctx, ref("README"), []byte("x"), publish.PublishOptions{})
	require.Error(t, err)

	require.Len(t, rec.ops, 3)
	assert.Equal(t, "detect", rec.ops[0].op)
	assert.NoError(t, rec.ops[0].err)
	assert.Equal(t, "publish", rec.ops[1].op)
	assert.ErrorIs(t, rec.ops[2].err, publish.ErrUnknownContentType)
	assert.Equal(t, 3, rec.bytes)
}
