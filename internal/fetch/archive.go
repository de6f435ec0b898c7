package fetch

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// ExtractZIP extracts every entry of the archive into destDir and returns
// the extracted file paths.
func ExtractZIP(zipPath, destDir string) ([]string, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: open archive %s", zipPath)
	}
	defer r.Close() //nolint:errcheck

	var out []string
	for _, f := range r.File {
		path, err := extractEntry(f, destDir)
		if err != nil {
			return out, err
		}
		if path != "" {
			out = append(out, path)
		}
	}
	return out, nil
}

// FindByExt returns the first path whose extension matches ext
// (case-insensitive, leading dot required).
func FindByExt(paths []string, ext string) (string, error) {
	for _, p := range paths {
		if strings.EqualFold(filepath.Ext(p), ext) {
			return p, nil
		}
	}
	return "", eris.Errorf("fetch: no %s file among %d extracted entries", ext, len(paths))
}

func extractEntry(f *zip.File, destDir string) (string, error) {
	// Guard against zip slip.
	destPath := filepath.Join(destDir, f.Name)
	if !strings.HasPrefix(filepath.Clean(destPath), filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", eris.Errorf("fetch: illegal archive path %q", f.Name)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(destPath, 0o755); err != nil {
			return "", eris.Wrap(err, "fetch: create directory")
		}
		return "", nil
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", eris.Wrap(err, "fetch: create parent directory")
	}

	rc, err := f.Open()
	if err != nil {
		return "", eris.Wrap(err, "fetch: open archive entry")
	}
	defer rc.Close() //nolint:errcheck

	out, err := os.Create(destPath)
	if err != nil {
		return "", eris.Wrap(err, "fetch: create file")
	}
	defer out.Close() //nolint:errcheck

	if _, err := io.Copy(out, rc); err != nil {
		return "", eris.Wrap(err, "fetch: write file")
	}
	return destPath, nil
}
