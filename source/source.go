// Package source opens the input image as a seekable byte source. Gzip and
// zstd compressed files are decompressed into memory first.
package source

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// FileType names how the input file is stored.
type FileType string

const (
	FileTypeAuto  FileType = "auto"
	FileTypePlain FileType = "plain"
	FileTypeGzip  FileType = "gzip"
	FileTypeZstd  FileType = "zstd"
)

// FileTypes lists the accepted values of source.file_type.
var FileTypes = []FileType{FileTypeAuto, FileTypePlain, FileTypeGzip, FileTypeZstd}

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// Input is an opened input file.
type Input struct {
	io.ReadSeeker

	Path string
	Type FileType

	// Size is the size of the decoded data.
	Size int64

	file *os.File
}

// Close releases the underlying file.
func (i *Input) Close() error {
	if i.file == nil {
		return nil
	}
	return i.file.Close()
}

// Open opens path. With FileTypeAuto the type is picked by extension and,
// failing that, by the first bytes of the file.
func Open(path string, ft FileType) (*Input, error) {
	llog := logrus.WithFields(logrus.Fields{
		"pkg":    "source",
		"method": "Open",
	})

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open source file")
	}

	if ft == FileTypeAuto || ft == "" {
		ft, err = Detect(f)
		if err != nil {
			f.Close()
			return nil, err
		}
	}

	in := &Input{Path: path, Type: ft}

	switch ft {
	case FileTypePlain:
		fi, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, errors.Wrap(err, "unable to stat source file")
		}

		in.ReadSeeker = f
		in.Size = fi.Size()
		in.file = f
	case FileTypeGzip, FileTypeZstd:
		defer f.Close()

		data, err := decompress(f, ft)
		if err != nil {
			return nil, errors.Wrapf(err, "unable to decompress %s source", ft)
		}

		in.ReadSeeker = bytes.NewReader(data)
		in.Size = int64(len(data))
	default:
		f.Close()
		return nil, errors.Errorf("unknown source file type '%s'", ft)
	}

	llog.Debugf("opened '%s' as %s (%d bytes)", path, ft, in.Size)

	return in, nil
}

// Detect guesses the file type of f and rewinds it.
func Detect(f *os.File) (FileType, error) {
	switch strings.ToLower(filepath.Ext(f.Name())) {
	case ".gz", ".gzip":
		return FileTypeGzip, nil
	case ".zst", ".zstd":
		return FileTypeZstd, nil
	}

	head := make([]byte, 4)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", errors.Wrap(err, "unable to read source file")
	}
	head = head[:n]

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", errors.Wrap(err, "unable to rewind source file")
	}

	return Sniff(head), nil
}

// Sniff picks the file type from the first bytes of a file.
func Sniff(head []byte) FileType {
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return FileTypeGzip
	case bytes.HasPrefix(head, zstdMagic):
		return FileTypeZstd
	}
	return FileTypePlain
}

func decompress(r io.Reader, ft FileType) ([]byte, error) {
	switch ft {
	case FileTypeGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "unable to create gzip reader")
		}
		defer zr.Close()

		return io.ReadAll(zr)
	case FileTypeZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, errors.Wrap(err, "unable to create zstd reader")
		}
		defer zr.Close()

		return io.ReadAll(zr)
	}

	return nil, errors.Errorf("not a compressed file type '%s'", ft)
}
