// Package fetch downloads remote dataset files over HTTP and FTP, with
// per-host rate limiting, retry, and ZIP extraction for packaged sources.
package fetch

import (
	"context"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher downloads a remote file to local disk.
type Fetcher interface {
	// Download returns the body of the remote file. The caller closes it.
	Download(ctx context.Context, rawURL string) (io.ReadCloser, error)

	// DownloadToFile writes the remote file to path and returns bytes written.
	DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error)
}

// ForURL picks a fetcher by URL scheme.
func ForURL(rawURL string) (Fetcher, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}
	switch u.Scheme {
	case "http", "https":
		return NewHTTPFetcher(HTTPOptions{}), nil
	case "ftp":
		return NewFTPFetcher(FTPOptions{}), nil
	default:
		return nil, eris.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}
}

// Retrieve downloads rawURL into destDir and returns the local path. ZIP
// archives are extracted next to the download, and the path of the first
// entry matching wantExt (e.g. ".csv", ".shp") is returned; wantExt is
// ignored for plain files.
func Retrieve(ctx context.Context, rawURL, destDir, wantExt string) (string, error) {
	f, err := ForURL(rawURL)
	if err != nil {
		return "", err
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}
	name := filepath.Base(u.Path)
	if name == "" || name == "/" || name == "." {
		name = "download"
	}
	local := filepath.Join(destDir, name)

	if _, err := f.DownloadToFile(ctx, rawURL, local); err != nil {
		return "", err
	}

	if !strings.EqualFold(filepath.Ext(local), ".zip") {
		return local, nil
	}

	extracted, err := ExtractZIP(local, destDir)
	if err != nil {
		return "", err
	}
	if wantExt == "" {
		if len(extracted) == 0 {
			return "", eris.Errorf("fetch: archive %s is empty", name)
		}
		return extracted[0], nil
	}
	path, err := FindByExt(extracted, wantExt)
	if err != nil {
		return "", eris.Wrapf(err, "fetch: archive %s", name)
	}
	return path, nil
}
