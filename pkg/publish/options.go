package publish

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Option configures a Detector, Publisher or Invalidator. Options that do
// not apply to a component are ignored by it.
type Option func(*options)

type options struct {
	logger    *slog.Logger
	recorder  Recorder
	partSize  int64
	lenient   bool
	reference func() string
}

func defaultOptions() options {
	return options{
		logger:    slog.Default(),
		partSize:  DefaultPartSize,
		reference: defaultCallerReference,
	}
}

func applyOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithRecorder reports operation outcomes to r.
func WithRecorder(r Recorder) Option {
	return func(o *options) {
		o.recorder = r
	}
}

// WithPartSize sets the multipart part size used for fingerprints. It must
// match the part size the store uploads with.
func WithPartSize(size int64) Option {
	return func(o *options) {
		if size > 0 {
			o.partSize = size
		}
	}
}

// WithLenientLookup makes the Detector treat every lookup failure as an
// absent object, so permission or network faults trigger an upload instead
// of an error.
func WithLenientLookup() Option {
	return func(o *options) {
		o.lenient = true
	}
}

// WithCallerReference overrides how invalidation caller references are made.
func WithCallerReference(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.reference = fn
		}
	}
}

// defaultCallerReference is the current Unix time in milliseconds with a
// random suffix, so calls within the same millisecond stay distinct.
func defaultCallerReference() string {
	return strconv.FormatInt(time.Now().UnixMilli(), 10) + "-" + uuid.NewString()[:8]
}

func (o *options) observe(operation string, start time.Time, err error) {
	if o.recorder == nil {
		return
	}
	o.recorder.ObserveOperation(operation, err, time.Since(start).Seconds())
}
