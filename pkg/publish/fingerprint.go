package publish

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
)

const (
	// DefaultPartSize matches the managed uploader's default part size.
	DefaultPartSize int64 = 5 * 1024 * 1024

	// MinPartSize is the smallest part S3 accepts in a multipart upload.
	MinPartSize int64 = 5 * 1024 * 1024

	// MaxUploadParts is the S3 limit on parts per upload.
	MaxUploadParts = 10000
)

// ComputeFingerprint returns the ETag S3 would assign to data uploaded with
// the given part size. Bodies no larger than one part are uploaded with a
// single PUT and get a plain MD5; larger bodies get the multipart form.
func ComputeFingerprint(data []byte, partSize int64) Fingerprint {
	partSize = EffectivePartSize(int64(len(data)), partSize)
	if int64(len(data)) <= partSize {
		sum := md5.Sum(data)
		return Fingerprint(hex.EncodeToString(sum[:]))
	}

	var digests []byte
	parts := 0
	for off := int64(0); off < int64(len(data)); off += partSize {
		end := off + partSize
		if end > int64(len(data)) {
			end = int64(len(data))
		}
		sum := md5.Sum(data[off:end])
		digests = append(digests, sum[:]...)
		parts++
	}
	sum := md5.Sum(digests)
	return Fingerprint(fmt.Sprintf("%s-%d", hex.EncodeToString(sum[:]), parts))
}

// EffectivePartSize mirrors the managed uploader: below-minimum sizes are
// raised to the minimum and the size grows when a body of total bytes would
// need MaxUploadParts or more parts. Stores that take an explicit part size
// must use it so their ETags match ComputeFingerprint.
func EffectivePartSize(total, partSize int64) int64 {
	if partSize < MinPartSize {
		partSize = MinPartSize
	}
	if total/partSize >= MaxUploadParts {
		partSize = (total / MaxUploadParts) + 1
	}
	return partSize
}
