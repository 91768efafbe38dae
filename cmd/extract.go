package cmd

import (
	"archive/tar"
	"archive/zip"
	"compress/bzip2"
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/ulikunitz/xz"
)

// extractArchive unpacks the downloaded archive into destPath. The format is
// picked based on the URL suffix since the temp file has no extension.
func extractArchive(archive, url, destPath string, meta toolSpec) error {
	handle, err := os.Open(archive)
	if err != nil {
		return eris.Wrapf(err, "Failed to open %s", archive)
	}
	defer handle.Close()

	switch {
	case strings.HasSuffix(url, ".zip"):
		return extractZip(handle, destPath, meta)
	case strings.HasSuffix(url, ".tar.gz"):
		reader, err := gzip.NewReader(handle)
		if err != nil {
			return err
		}
		defer reader.Close()

		return extractTar(reader, destPath, meta)
	case strings.HasSuffix(url, ".tar.bz2"):
		return extractTar(bzip2.NewReader(handle), destPath, meta)
	case strings.HasSuffix(url, ".tar.xz"):
		reader, err := xz.NewReader(handle)
		if err != nil {
			return err
		}

		return extractTar(reader, destPath, meta)
	}

	return eris.Errorf("Archive format of %s is not supported", url)
}

// entryDest normalizes an archive entry name, strips the configured number of
// leading path elements and opens the destination file. A nil handle with a
// nil error means the entry collapsed onto the destination root and should be
// skipped.
func entryDest(destPath, item string, meta toolSpec) (*os.File, string, error) {
	pathParts := strings.Split(filepath.Clean(item), string(filepath.Separator))
	if len(pathParts) <= meta.Strip {
		return nil, "", nil
	}

	dest := filepath.Join(destPath, strings.Join(pathParts[meta.Strip:], string(filepath.Separator)))
	if dest == destPath {
		return nil, "", nil
	}

	destParent := filepath.Dir(dest)
	err := os.MkdirAll(destParent, os.FileMode(0770))
	if err != nil {
		return nil, "", eris.Wrapf(err, "Failed to create directory %s", destParent)
	}

	destHandle, err := os.Create(dest)
	if err != nil {
		return nil, "", eris.Wrapf(err, "Failed to create file %s", dest)
	}

	return destHandle, dest, nil
}

func extractZip(f *os.File, destPath string, meta toolSpec) error {
	stat, err := f.Stat()
	if err != nil {
		return err
	}

	archive, err := zip.NewReader(f, stat.Size())
	if err != nil {
		return err
	}

	for _, item := range archive.File {
		if strings.HasSuffix(item.Name, "/") {
			continue
		}

		destHandle, dest, err := entryDest(destPath, item.Name, meta)
		if err != nil {
			return err
		}
		if destHandle == nil {
			continue
		}

		itemHandle, err := item.Open()
		if err != nil {
			destHandle.Close()
			return eris.Wrap(err, "Failed to open archive entry")
		}

		_, err = io.Copy(destHandle, itemHandle)
		itemHandle.Close()
		destHandle.Close()
		if err != nil {
			return eris.Wrapf(err, "Failed to write extracted file %s", dest)
		}
	}

	return nil
}

func extractTar(r io.Reader, destPath string, meta toolSpec) error {
	archive := tar.NewReader(r)

	for {
		item, err := archive.Next()
		if err != nil {
			if err == io.EOF {
				break
			}

			return eris.Wrap(err, "Failed to read archive entry")
		}

		fi := item.FileInfo()
		if fi.IsDir() {
			continue
		}

		destHandle, dest, err := entryDest(destPath, item.Name, meta)
		if err != nil {
			return err
		}
		if destHandle == nil {
			continue
		}

		if item.Typeflag&tar.TypeSymlink == tar.TypeSymlink {
			destHandle.Close()
			err := os.Remove(dest)
			if err != nil {
				return eris.Wrapf(err, "Failed to remove placeholder file %s", dest)
			}

			err = os.Symlink(item.Linkname, dest)
			if err != nil {
				return eris.Wrapf(err, "Failed to create symlink %s pointing to %s", dest, item.Linkname)
			}
			continue
		}

		_, err = io.Copy(destHandle, archive)
		if err != nil {
			destHandle.Close()
			return eris.Wrapf(err, "Failed to write extracted file %s", dest)
		}

		err = destHandle.Close()
		if err != nil {
			return err
		}

		os.Chmod(dest, fi.Mode())
	}

	return nil
}
