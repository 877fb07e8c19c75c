// Package artifacts persists files produced by a run: always to the local
// filesystem, and to S3 under runs/<run_id>/ when an uploader is configured.
package artifacts

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/kuitang/ghflow/internal/errs"
	"github.com/kuitang/ghflow/internal/obs"
	"github.com/kuitang/ghflow/internal/s3client"
)

// Uploader is the subset of s3client.Client the store needs.
type Uploader interface {
	PutObject(ctx context.Context, key string, content []byte, contentType string) error
	ObjectURL(key string) string
}

var _ Uploader = (*s3client.Client)(nil)

// Artifact describes one saved file.
type Artifact struct {
	Path string
	Key  string // empty when not uploaded
	URL  string // empty when not uploaded
}

// Store saves run artifacts.
type Store struct {
	runID    string
	uploader Uploader
}

// NewStore returns a store for runID. uploader may be nil.
func NewStore(runID string, uploader Uploader) *Store {
	return &Store{runID: runID, uploader: uploader}
}

// RunID returns the run the store writes under.
func (s *Store) RunID() string {
	return s.runID
}

// Key returns the object key for a local file name.
func (s *Store) Key(localPath string) string {
	return path.Join("runs", s.runID, filepath.Base(localPath))
}

// Save writes data to localPath, creating parent directories, then uploads it
// when an uploader is configured. The local file is written even if the
// upload fails.
func (s *Store) Save(ctx context.Context, localPath string, data []byte) (Artifact, error) {
	log := obs.From(ctx).With("pkg", "artifacts")

	if dir := filepath.Dir(localPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return Artifact{}, errs.Wrap(errs.Internal, fmt.Sprintf("create %s", dir), err)
		}
	}
	if err := os.WriteFile(localPath, data, 0o644); err != nil {
		return Artifact{}, errs.Wrap(errs.Internal, fmt.Sprintf("write %s", localPath), err)
	}
	art := Artifact{Path: localPath}
	log.Info("artifact_saved", "path", localPath, "bytes", len(data))

	if s.uploader == nil {
		return art, nil
	}

	key := s.Key(localPath)
	if err := s.uploader.PutObject(ctx, key, data, contentType(localPath)); err != nil {
		return art, errs.Wrap(errs.Unavailable, fmt.Sprintf("upload %s", key), err)
	}
	art.Key = key
	art.URL = s.uploader.ObjectURL(key)
	log.Info("artifact_uploaded", "key", key, "url", art.URL)
	return art, nil
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
