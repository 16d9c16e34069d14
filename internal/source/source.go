// Package source fetches the remote Parquet data files into a local cache
// directory before they are loaded into the database.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"golang.org/x/sync/errgroup"
)

// Fetcher opens a named remote file for reading.
type Fetcher interface {
	Fetch(ctx context.Context, name string) (io.ReadCloser, error)
}

// NewFetcher picks a fetcher for baseURL: S3 for s3://bucket/prefix/, HTTP(S)
// otherwise. S3 credentials come from the default AWS configuration chain.
func NewFetcher(ctx context.Context, baseURL string, timeout time.Duration) (Fetcher, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse data base url: %w", err)
	}
	switch u.Scheme {
	case "s3":
		if u.Host == "" {
			return nil, fmt.Errorf("s3 url %q has no bucket", baseURL)
		}
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		return NewS3Fetcher(s3.NewFromConfig(awsCfg), u.Host, strings.TrimPrefix(u.Path, "/")), nil
	case "http", "https":
		return NewHTTPFetcher(baseURL, timeout), nil
	default:
		return nil, fmt.Errorf("unsupported data base url scheme %q", u.Scheme)
	}
}

// Download fetches every name into dir concurrently and returns the local
// path of each. A file already present and non-empty in dir is reused.
func Download(ctx context.Context, f Fetcher, dir string, names ...string) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	var mu sync.Mutex
	paths := make(map[string]string, len(names))

	g, gctx := errgroup.WithContext(ctx)
	for _, name := range names {
		g.Go(func() error {
			path, err := downloadOne(gctx, f, dir, name)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", name, err)
			}
			mu.Lock()
			paths[name] = path
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

func downloadOne(ctx context.Context, f Fetcher, dir, name string) (string, error) {
	path := filepath.Join(dir, filepath.Base(name))
	if info, err := os.Stat(path); err == nil && info.Size() > 0 {
		return path, nil
	}

	body, err := f.Fetch(ctx, name)
	if err != nil {
		return "", err
	}
	defer body.Close()

	tmp, err := os.CreateTemp(dir, filepath.Base(name)+".*.part")
	if err != nil {
		return "", err
	}
	_, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name()) //nolint:errcheck // best-effort cleanup
		return "", err
	}
	return path, nil
}
