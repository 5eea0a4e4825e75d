package tabix

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"golang.org/x/sync/errgroup"
)

// stagingClient fetches remote files; large genomics files can take a while.
var stagingClient = &http.Client{Timeout: 10 * time.Minute}

// openRemote stages a remote data file and its .tbi sibling into a
// temporary directory and opens them locally. The directory is removed when
// the reader is closed.
func openRemote(u *url.URL) (*Reader, error) {
	tmpDir, err := os.MkdirTemp("", "tabix-")
	if err != nil {
		return nil, fmt.Errorf("stage remote file: %w", err)
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" {
		os.RemoveAll(tmpDir)
		return nil, fmt.Errorf("stage remote file: no file name in %s", u)
	}
	dataPath := filepath.Join(tmpDir, base)
	indexPath := dataPath + ".tbi"

	// the data file and its index are independent objects, fetch both at once
	g, ctx := errgroup.WithContext(context.Background())
	g.Go(func() error {
		return stage(ctx, u.String(), dataPath)
	})
	g.Go(func() error {
		if err := stage(ctx, u.String()+".tbi", indexPath); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidIndex, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		os.RemoveAll(tmpDir)
		return nil, err
	}

	r, err := openLocal(dataPath, indexPath)
	if err != nil {
		os.RemoveAll(tmpDir)
		return nil, err
	}
	r.tmpDir = tmpDir
	return r, nil
}

func stage(ctx context.Context, rawURL, dst string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("stage %s: %w", rawURL, err)
	}
	switch u.Scheme {
	case "http", "https":
		return stageHTTP(ctx, rawURL, dst)
	case "s3":
		return stageS3(ctx, u, dst)
	}
	return fmt.Errorf("stage %s: unsupported scheme %s", rawURL, u.Scheme)
}

func stageHTTP(ctx context.Context, rawURL, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("stage %s: %w", rawURL, err)
	}
	resp, err := stagingClient.Do(req)
	if err != nil {
		return fmt.Errorf("stage %s: %w", rawURL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("stage %s: status %d", rawURL, resp.StatusCode)
	}

	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("stage %s: %w", rawURL, err)
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		return fmt.Errorf("stage %s: %w", rawURL, err)
	}
	return f.Close()
}

// stageS3 downloads s3://bucket/key through an S3-compatible endpoint.
// Credentials and the endpoint come from the usual AWS environment
// variables; AWS_S3_ENDPOINT overrides the default endpoint.
func stageS3(ctx context.Context, u *url.URL, dst string) error {
	endpoint := os.Getenv("AWS_S3_ENDPOINT")
	if endpoint == "" {
		endpoint = "s3.amazonaws.com"
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewEnvAWS(),
		Secure: true,
	})
	if err != nil {
		return fmt.Errorf("stage %s: %w", u, err)
	}

	bucket := u.Host
	key := strings.TrimPrefix(u.Path, "/")
	if err := client.FGetObject(ctx, bucket, key, dst, minio.GetObjectOptions{}); err != nil {
		return fmt.Errorf("stage %s: %w", u, err)
	}
	return nil
}
