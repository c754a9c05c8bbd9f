package publish

import (
	"context"
	"errors"
	"time"
)

// Invalidator submits cache invalidations to a CDN.
type Invalidator struct {
	cdn  CDN
	opts options
}

// NewInvalidator creates an Invalidator over cdn.
func NewInvalidator(cdn CDN, opts ...Option) *Invalidator {
	return &Invalidator{cdn: cdn, opts: applyOptions(opts)}
}

// Invalidate asks the distribution to purge paths. Every call carries a
// fresh caller reference, so identical requests are never merged by the
// provider. The returned ack confirms acceptance only.
func (i *Invalidator) Invalidate(ctx context.Context, distributionID string, paths []string) (ack *InvalidationAck, err error) {
	start := time.Now()
	defer func() { i.opts.observe("invalidate", start, err) }()

	if distributionID == "" {
		return nil, &OperationError{Op: "invalidate", Kind: ErrInvalidRequest, Err: errors.New("distribution id is required")}
	}
	if len(paths) == 0 {
		return nil, &OperationError{Op: "invalidate", Key: distributionID, Kind: ErrInvalidRequest, Err: errors.New("at least one path is required")}
	}

	req := InvalidationRequest{
		DistributionID:  distributionID,
		Paths:           append([]string(nil), paths...),
		CallerReference: i.opts.reference(),
	}

	ack, err = i.cdn.CreateInvalidation(ctx, req)
	if err != nil {
		i.opts.logger.Error("Failed to create invalidation", "distribution", distributionID, "paths", len(paths), "err", err)
		return nil, &OperationError{Op: "invalidate", Key: distributionID, Kind: ErrInvalidationFailed, Err: err}
	}
	if ack == nil {
		ack = &InvalidationAck{}
	}
	if ack.CallerReference == "" {
		ack.CallerReference = req.CallerReference
	}
	if len(ack.Paths) == 0 {
		ack.Paths = req.Paths
	}

	i.opts.logger.Info("created invalidation", "distribution", distributionID,
		"id", ack.ID, "status", ack.Status, "caller_reference", ack.CallerReference, "paths", len(paths))
	return ack, nil
}
