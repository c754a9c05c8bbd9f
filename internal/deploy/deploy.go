// Package deploy chains detection, publishing and invalidation for a batch
// of local files.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/tendant/simple-publish/pkg/publish"
	"golang.org/x/sync/errgroup"
)

// File pairs a local path with its target object key.
type File struct {
	Path string
	Key  string
}

// Action is what happened to a file.
type Action string

const (
	ActionSkipped     Action = "skipped"
	ActionCreated     Action = "created"
	ActionUpdated     Action = "updated"
	ActionWouldCreate Action = "would-create"
	ActionWouldUpdate Action = "would-update"
)

// FileResult is the outcome for one file.
type FileResult struct {
	File   File
	Action Action
	Detect publish.DetectResult
	Upload *publish.UploadOutcome
}

// Report collects results in input order.
type Report struct {
	Results      []FileResult
	Invalidation *publish.InvalidationAck
}

// Count returns how many results carry action a.
func (r *Report) Count(a Action) int {
	n := 0
	for _, res := range r.Results {
		if res.Action == a {
			n++
		}
	}
	return n
}

// Deployer runs detect, publish and invalidate for a set of files.
type Deployer struct {
	Detector    *publish.Detector
	Publisher   *publish.Publisher
	Invalidator *publish.Invalidator // nil disables invalidation

	Bucket         string
	DistributionID string
	Options        publish.PublishOptions

	Concurrency int
	Force       bool // upload even when fingerprints match
	DryRun      bool // detect only

	Logger   *slog.Logger
	ReadFile func(path string) ([]byte, error)
}

// Run processes files with at most Concurrency in flight. The first fault
// cancels the remaining work and is returned; no invalidation is issued in
// that case. Objects that existed and were replaced are invalidated in one
// batch afterwards; newly created objects have nothing cached.
func (d *Deployer) Run(ctx context.Context, files []File) (*Report, error) {
	if d.Bucket == "" {
		return nil, errors.New("bucket is required")
	}
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	readFile := d.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	limit := d.Concurrency
	if limit < 1 {
		limit = 1
	}

	report := &Report{Results: make([]FileResult, len(files))}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range files {
		g.Go(func() error {
			res, err := d.processFile(gctx, readFile, f)
			if err != nil {
				return fmt.Errorf("%s: %w", f.Path, err)
			}
			report.Results[i] = res
			logger.Info("processed file", "path", f.Path, "key", f.Key, "action", string(res.Action))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, err
	}

	paths := invalidationPaths(report.Results)
	if d.Invalidator == nil || d.DistributionID == "" || len(paths) == 0 || d.DryRun {
		return report, nil
	}

	ack, err := d.Invalidator.Invalidate(ctx, d.DistributionID, paths)
	if err != nil {
		return report, err
	}
	report.Invalidation = ack
	return report, nil
}

func (d *Deployer) processFile(ctx context.Context, readFile func(string) ([]byte, error), f File) (FileResult, error) {
	data, err := readFile(f.Path)
	if err != nil {
		return FileResult{}, fmt.Errorf("failed to read file: %w", err)
	}

	ref := publish.ObjectRef{Bucket: d.Bucket, Key: f.Key}
	detected, err := d.Detector.Detect(ctx, ref, data)
	if err != nil {
		return FileResult{}, err
	}

	res := FileResult{File: f, Detect: detected}
	if !detected.NeedsUpload && !d.Force {
		res.Action = ActionSkipped
		return res, nil
	}

	if d.DryRun {
		res.Action = ActionWouldCreate
		if detected.Exists {
			res.Action = ActionWouldUpdate
		}
		return res, nil
	}

	out, err := d.Publisher.Publish(ctx, ref, data, d.Options)
	if err != nil {
		return FileResult{}, err
	}
	res.Upload = out
	res.Action = ActionCreated
	if detected.Exists {
		res.Action = ActionUpdated
	}
	return res, nil
}

func invalidationPaths(results []FileResult) []string {
	var paths []string
	for _, res := range results {
		if res.Action == ActionUpdated {
			paths = append(paths, invalidationPath(res.File.Key))
		}
	}
	return paths
}

// invalidationPath percent-encodes each segment of key. CloudFront matches
// invalidation paths against the encoded request URI, and an unescaped "*"
// would act as a wildcard.
func invalidationPath(key string) string {
	segments := strings.Split(strings.TrimPrefix(key, "/"), "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return "/" + strings.Join(segments, "/")
}

// ParseFileArgs turns "path" or "path=key" arguments into Files. Without an
// explicit key the cleaned, slash-separated path without a leading "/" is
// joined to prefix.
func ParseFileArgs(args []string, prefix string) ([]File, error) {
	files := make([]File, 0, len(args))
	for _, arg := range args {
		path, key, explicit := strings.Cut(arg, "=")
		if path == "" {
			return nil, fmt.Errorf("invalid file argument %q", arg)
		}
		if !explicit {
			key = strings.TrimLeft(filepath.ToSlash(filepath.Clean(path)), "/")
			if prefix != "" {
				key = strings.TrimSuffix(prefix, "/") + "/" + key
			}
		}
		if key == "" {
			return nil, fmt.Errorf("empty key for %q", arg)
		}
		files = append(files, File{Path: path, Key: key})
	}
	return files, nil
}
