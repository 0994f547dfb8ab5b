// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package report

import (
	"io"
	"io/ioutil"
	"os"

	"github.com/cockroachdb/errors"
	"github.com/pierrec/lz4"
)

// Reader reads entries out of a bundle. It can be read from concurrently
// when the underlying io.ReaderAt allows it.
type Reader struct {
	r          io.ReaderAt
	header     Header
	dataOffset int64
}

// NewReader reads the bundle header from r.
func NewReader(r io.ReaderAt) (*Reader, error) {
	fileHeader := make([]byte, fileHeaderSize)
	if err := readFullAt(r, fileHeader, 0); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read file header"), ErrFileFormat)
	}
	size, err := decodeFileHeader(fileHeader)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, size)
	if err := readFullAt(r, raw, fileHeaderSize); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "read header"), ErrFileFormat)
	}
	header, err := decodeHeader(raw)
	if err != nil {
		return nil, err
	}

	return &Reader{
		r:          r,
		header:     header,
		dataOffset: fileHeaderSize + int64(size),
	}, nil
}

func readFullAt(r io.ReaderAt, p []byte, off int64) error {
	n, err := r.ReadAt(p, off)
	if n == len(p) && err == io.EOF {
		return nil
	}
	return err
}

// Header returns the bundle header.
func (r *Reader) Header() Header {
	return r.header
}

// Names lists the entries in the order they were added.
func (r *Reader) Names() []string {
	names := make([]string, 0, len(r.header.Index))
	for _, e := range r.header.Index {
		names = append(names, e.Name)
	}
	return names
}

// Read decompresses the entry called name.
func (r *Reader) Read(name string) ([]byte, error) {
	entry, ok := r.header.Entry(name)
	if !ok {
		return nil, errors.Wrapf(ErrEntryNotFound, "%s", name)
	}

	section := io.NewSectionReader(r.r, r.dataOffset+entry.Offset, entry.CompressedSize)
	data, err := ioutil.ReadAll(lz4.NewReader(section))
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "decompress %s", name), ErrFileFormat)
	}
	if int64(len(data)) != entry.Size {
		return nil, errors.Wrapf(ErrFileFormat, "%s: size %d, expected %d", name, len(data), entry.Size)
	}
	return data, nil
}

// ReadAll decompresses every entry.
func (r *Reader) ReadAll() (map[string][]byte, error) {
	all := make(map[string][]byte, len(r.header.Index))
	for _, e := range r.header.Index {
		data, err := r.Read(e.Name)
		if err != nil {
			return nil, err
		}
		all[e.Name] = data
	}
	return all, nil
}

// File is a Reader over an open bundle file.
type File struct {
	*Reader
	f *os.File
}

// Open opens the bundle at path.
func Open(path string) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open report")
	}
	r, err := NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrapf(err, "%s", path)
	}
	return &File{Reader: r, f: f}, nil
}

// Close closes the file.
func (f *File) Close() error {
	return f.f.Close()
}
