package pkg

import (
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/rotisserie/eris"
)

// Bundles are the distribution format for a generated bindings directory:
// a flat list of brotli-compressed files plus a central index.
//
// Layout: a 16 byte header ("UBDL", format version, index offset, entry
// count, all little-endian), the compressed file contents back to back and
// finally the index with one record per file (offset, compressed size,
// decompressed size, name length, slash-separated relative name).

const bundleVersion = 1

var bundleMagic = [4]byte{'U', 'B', 'D', 'L'}

type bundleEntry struct {
	Name    string
	Offset  uint32
	Size    uint32
	DecSize uint32
}

// BundleWriter writes bindings bundles
type BundleWriter struct {
	hdl     *os.File
	entries []bundleEntry
	buffer  []byte
}

// NewBundleWriter creates a new BundleWriter and opens the destination file
// for writing
func NewBundleWriter(filename string) (*BundleWriter, error) {
	hdl, err := os.Create(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to create %s", filename)
	}

	// skip the header, it's written on Close()
	_, err = hdl.Seek(16, io.SeekStart)
	if err != nil {
		hdl.Close()
		return nil, err
	}

	return &BundleWriter{
		hdl:    hdl,
		buffer: make([]byte, 4096),
	}, nil
}

// WriteFile adds a new file under the given bundle-relative name
func (w *BundleWriter) WriteFile(name string, reader io.Reader) error {
	offset, err := w.hdl.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	brw := brotli.NewWriterLevel(w.hdl, brotli.BestCompression)
	decSize, err := io.CopyBuffer(brw, reader, w.buffer)
	if err != nil {
		return eris.Wrapf(err, "Failed to compress %s", name)
	}

	err = brw.Close()
	if err != nil {
		return err
	}

	newPos, err := w.hdl.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	w.entries = append(w.entries, bundleEntry{
		Name:    filepath.ToSlash(name),
		Offset:  uint32(offset),
		Size:    uint32(newPos - offset),
		DecSize: uint32(decSize),
	})

	return nil
}

// AddDirectory recursively adds the contents of the passed directory
func (w *BundleWriter) AddDirectory(dir string) error {
	return filepath.Walk(dir, func(item string, info os.FileInfo, err error) error {
		if err != nil {
			return eris.Wrapf(err, "Failed to read %s", item)
		}

		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(dir, item)
		if err != nil {
			return err
		}

		f, err := os.Open(item)
		if err != nil {
			return eris.Wrapf(err, "Failed to open file %s", item)
		}
		defer f.Close()

		return w.WriteFile(relPath, f)
	})
}

// Close writes the central index and the header and closes the bundle
func (w *BundleWriter) Close() error {
	tocOffset, err := w.hdl.Seek(0, io.SeekCurrent)
	if err != nil {
		w.hdl.Close()
		return err
	}

	buffer := make([]byte, 14)
	for _, entry := range w.entries {
		binary.LittleEndian.PutUint32(buffer[:4], entry.Offset)
		binary.LittleEndian.PutUint32(buffer[4:8], entry.Size)
		binary.LittleEndian.PutUint32(buffer[8:12], entry.DecSize)
		binary.LittleEndian.PutUint16(buffer[12:14], uint16(len(entry.Name)))

		_, err = w.hdl.Write(buffer)
		if err != nil {
			w.hdl.Close()
			return err
		}

		_, err = w.hdl.WriteString(entry.Name)
		if err != nil {
			w.hdl.Close()
			return err
		}
	}

	_, err = w.hdl.Seek(0, io.SeekStart)
	if err != nil {
		w.hdl.Close()
		return err
	}

	copy(buffer[:4], bundleMagic[:])
	binary.LittleEndian.PutUint32(buffer[4:8], bundleVersion)
	binary.LittleEndian.PutUint32(buffer[8:12], uint32(tocOffset))

	_, err = w.hdl.Write(buffer[:12])
	if err != nil {
		w.hdl.Close()
		return err
	}

	countBuf := make([]byte, 4)
	binary.LittleEndian.PutUint32(countBuf, uint32(len(w.entries)))
	_, err = w.hdl.Write(countBuf)
	if err != nil {
		w.hdl.Close()
		return err
	}

	return w.hdl.Close()
}

// Bundle reads bindings bundles
type Bundle struct {
	hdl     *os.File
	entries []bundleEntry
}

// OpenBundle opens the given bundle and reads its index
func OpenBundle(filename string) (*Bundle, error) {
	hdl, err := os.Open(filename)
	if err != nil {
		return nil, eris.Wrapf(err, "Failed to open %s", filename)
	}

	header := make([]byte, 16)
	_, err = io.ReadFull(hdl, header)
	if err != nil {
		hdl.Close()
		return nil, eris.Wrapf(err, "Failed to read header of %s", filename)
	}

	if [4]byte{header[0], header[1], header[2], header[3]} != bundleMagic {
		hdl.Close()
		return nil, eris.Errorf("%s is not a bindings bundle", filename)
	}

	if version := binary.LittleEndian.Uint32(header[4:8]); version != bundleVersion {
		hdl.Close()
		return nil, eris.Errorf("%s has unsupported version %d", filename, version)
	}

	tocOffset := binary.LittleEndian.Uint32(header[8:12])
	count := binary.LittleEndian.Uint32(header[12:16])

	_, err = hdl.Seek(int64(tocOffset), io.SeekStart)
	if err != nil {
		hdl.Close()
		return nil, err
	}

	entries := make([]bundleEntry, count)
	buffer := make([]byte, 14)
	for idx := range entries {
		_, err = io.ReadFull(hdl, buffer)
		if err != nil {
			hdl.Close()
			return nil, eris.Wrapf(err, "Failed to read index of %s", filename)
		}

		nameBuf := make([]byte, binary.LittleEndian.Uint16(buffer[12:14]))
		_, err = io.ReadFull(hdl, nameBuf)
		if err != nil {
			hdl.Close()
			return nil, eris.Wrapf(err, "Failed to read index of %s", filename)
		}

		entries[idx] = bundleEntry{
			Name:    string(nameBuf),
			Offset:  binary.LittleEndian.Uint32(buffer[:4]),
			Size:    binary.LittleEndian.Uint32(buffer[4:8]),
			DecSize: binary.LittleEndian.Uint32(buffer[8:12]),
		}
	}

	return &Bundle{hdl: hdl, entries: entries}, nil
}

// Files returns the bundle-relative names of all contained files
func (b *Bundle) Files() []string {
	names := make([]string, len(b.entries))
	for idx, entry := range b.entries {
		names[idx] = entry.Name
	}

	return names
}

// Extract unpacks the entire bundle into the given directory
func (b *Bundle) Extract(dest string) error {
	for _, entry := range b.entries {
		if strings.Contains(entry.Name, "..") {
			return eris.Errorf("entry %s points outside the destination", entry.Name)
		}

		destPath := filepath.Join(dest, filepath.FromSlash(entry.Name))
		err := os.MkdirAll(filepath.Dir(destPath), 0o770)
		if err != nil {
			return eris.Wrapf(err, "Failed to create directory %s", filepath.Dir(destPath))
		}

		_, err = b.hdl.Seek(int64(entry.Offset), io.SeekStart)
		if err != nil {
			return err
		}

		destHandle, err := os.Create(destPath)
		if err != nil {
			return eris.Wrapf(err, "Failed to create file %s", destPath)
		}

		reader := brotli.NewReader(io.LimitReader(b.hdl, int64(entry.Size)))
		_, err = io.Copy(destHandle, reader)
		if err != nil {
			destHandle.Close()
			return eris.Wrapf(err, "Failed to extract %s", entry.Name)
		}

		err = destHandle.Close()
		if err != nil {
			return err
		}
	}

	return nil
}

// Close closes the underlying file
func (b *Bundle) Close() error {
	return b.hdl.Close()
}
