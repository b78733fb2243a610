package archive

import (
	"archive/tar"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// errUnsafePath is returned when an archive entry would escape the target directory.
var errUnsafePath = errors.New("archive entry escapes target directory")

// defaultDirMode is used for directories the archive does not describe.
const defaultDirMode os.FileMode = 0o755

// ExtractTarGz unpacks a gzip-compressed tarball into targetDir,
// creating the directory when needed. Entries that would resolve outside
// targetDir are rejected.
func ExtractTarGz(tarballPath, targetDir string) error {
	archiveFile, err := os.Open(filepath.Clean(tarballPath))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	defer func() {
		_ = archiveFile.Close()
	}()

	gzipReader, err := gzip.NewReader(archiveFile)
	if err != nil {
		return fmt.Errorf("read gzip header: %w", err)
	}

	defer func() {
		_ = gzipReader.Close()
	}()

	if err = os.MkdirAll(targetDir, defaultDirMode); err != nil {
		return fmt.Errorf("create target directory: %w", err)
	}

	tarReader := tar.NewReader(gzipReader)

	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}

		if err != nil {
			return fmt.Errorf("read archive entry: %w", err)
		}

		if err = extractEntry(tarReader, header, targetDir); err != nil {
			return err
		}
	}
}

// extractEntry writes a single archive entry under targetDir.
func extractEntry(tarReader *tar.Reader, header *tar.Header, targetDir string) error {
	entryPath, err := safeJoin(targetDir, header.Name)
	if err != nil {
		return err
	}

	switch header.Typeflag {
	case tar.TypeDir:
		if err = os.MkdirAll(entryPath, header.FileInfo().Mode()); err != nil {
			return fmt.Errorf("create directory %s: %w", header.Name, err)
		}
	case tar.TypeReg:
		if err = writeRegularFile(tarReader, entryPath, header.FileInfo().Mode()); err != nil {
			return fmt.Errorf("extract %s: %w", header.Name, err)
		}
	case tar.TypeSymlink:
		if err = checkLinkTarget(targetDir, entryPath, header); err != nil {
			return err
		}

		if err = os.Symlink(header.Linkname, entryPath); err != nil {
			return fmt.Errorf("create symlink %s: %w", header.Name, err)
		}
	default:
		// Hard links, devices and the like are not expected in release tarballs.
	}

	return nil
}

// writeRegularFile streams entry contents to path with the archived mode.
func writeRegularFile(contents io.Reader, path string, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return err
	}

	outputFile, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}

	if _, err = io.Copy(outputFile, contents); err != nil {
		_ = outputFile.Close()

		return err
	}

	return outputFile.Close()
}

// checkLinkTarget rejects symlink entries that could resolve outside
// targetDir: absolute link targets are refused outright (joining them under
// the base would silently re-root them), and relative targets must stay
// within targetDir once resolved against the link's own directory. Later
// entries are written through created links, so an escaping link would carry
// their contents outside the installation tree.
func checkLinkTarget(targetDir, entryPath string, header *tar.Header) error {
	if filepath.IsAbs(header.Linkname) {
		return fmt.Errorf("%s -> %s: %w", header.Name, header.Linkname, errUnsafePath)
	}

	resolved := filepath.Join(filepath.Dir(entryPath), header.Linkname)
	if !within(targetDir, resolved) {
		return fmt.Errorf("%s -> %s: %w", header.Name, header.Linkname, errUnsafePath)
	}

	return nil
}

// safeJoin joins name under base and rejects results that escape base.
func safeJoin(base, name string) (string, error) {
	joined := filepath.Join(base, name)
	if !within(base, joined) {
		return "", fmt.Errorf("%s: %w", name, errUnsafePath)
	}

	return joined, nil
}

// within reports whether path is base itself or lexically below it.
func within(base, path string) bool {
	return path == base || strings.HasPrefix(path, base+string(os.PathSeparator))
}
