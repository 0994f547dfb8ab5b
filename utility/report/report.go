// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package report writes and reads diagnostic bundles: a small lz4 backed
// file format holding named entries, like the capability and device
// dumps taken when the render hardware fails to come up.
//
// A bundle starts with a fixed file header (magic and header length),
// followed by the gob encoded Header, then the entries. Every entry is
// compressed on its own, so any one of them can be read without touching
// the others.
package report

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// Package errors
var (
	ErrFileFormat    = errors.New("corrupted or not a report bundle")
	ErrEntryNotFound = errors.New("entry not found")
)

// FormatVersion is the bundle version written by Builder.
const FormatVersion = 1

var magic = [4]byte{'K', 'R', 'B', '\x00'}

// fileHeaderSize is the magic plus a uint32 header length.
const fileHeaderSize = 8

const maxHeaderSize = 1 << 20

// IndexEntry is info for one entry in the index. Offset is relative to
// the end of the header.
type IndexEntry struct {
	Name           string
	Offset         int64
	Size           int64
	CompressedSize int64
}

// Header describes a bundle.
type Header struct {
	Session     uuid.UUID
	DateCreated int64
	Version     int64
	Index       []IndexEntry
}

// Entry finds an index entry by name.
func (h *Header) Entry(name string) (IndexEntry, bool) {
	for _, e := range h.Index {
		if e.Name == name {
			return e, true
		}
	}
	return IndexEntry{}, false
}

func encodeHeader(h Header) ([]byte, error) {
	var encoded bytes.Buffer
	if err := gob.NewEncoder(&encoded).Encode(h); err != nil {
		return nil, errors.Wrap(err, "encode header")
	}

	raw := make([]byte, fileHeaderSize, fileHeaderSize+encoded.Len())
	copy(raw, magic[:])
	binary.LittleEndian.PutUint32(raw[4:], uint32(encoded.Len()))
	return append(raw, encoded.Bytes()...), nil
}

func decodeFileHeader(raw []byte) (uint32, error) {
	if len(raw) < fileHeaderSize || !bytes.Equal(raw[:4], magic[:]) {
		return 0, ErrFileFormat
	}
	size := binary.LittleEndian.Uint32(raw[4:fileHeaderSize])
	if size > maxHeaderSize {
		return 0, errors.Wrapf(ErrFileFormat, "header size %d", size)
	}
	return size, nil
}

func decodeHeader(raw []byte) (Header, error) {
	var h Header
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&h); err != nil {
		return Header{}, errors.Mark(errors.Wrap(err, "decode header"), ErrFileFormat)
	}
	if h.Version != FormatVersion {
		return Header{}, errors.Wrapf(ErrFileFormat, "unsupported version %d", h.Version)
	}
	return h, nil
}
