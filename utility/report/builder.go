// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package report

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/pierrec/lz4"
)

type compressed struct {
	name string
	size int64
	data []byte
}

// Builder collects entries and bundles them with WriteTo.
// It is safe to use concurrently.
type Builder struct {
	session uuid.UUID

	mutex   sync.Mutex
	entries []compressed
}

// NewBuilder creates a Builder for the engine session.
func NewBuilder(session uuid.UUID) *Builder {
	return &Builder{
		session: session,
	}
}

// Add compresses data and stores it under name. Adding a name twice
// replaces the earlier entry.
func (b *Builder) Add(name string, data []byte) error {
	var buf bytes.Buffer
	writer := lz4.NewWriter(&buf)
	written, err := io.Copy(writer, bytes.NewReader(data))
	if err != nil {
		return errors.Wrapf(err, "compress %s", name)
	}
	if err := writer.Close(); err != nil {
		return errors.Wrapf(err, "compress %s", name)
	}

	entry := compressed{name: name, size: written, data: buf.Bytes()}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	for i := range b.entries {
		if b.entries[i].name == name {
			b.entries[i] = entry
			return nil
		}
	}
	b.entries = append(b.entries, entry)
	return nil
}

// AddJSON stores v as indented JSON.
func (b *Builder) AddJSON(name string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "marshal %s", name)
	}
	return b.Add(name, raw)
}

// Len returns the number of entries added.
func (b *Builder) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return len(b.entries)
}

// WriteTo writes the bundle to w. The Builder keeps its entries, so it
// can be written more than once.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	header := Header{
		Session:     b.session,
		DateCreated: time.Now().Unix(),
		Version:     FormatVersion,
	}
	var offset int64
	for _, e := range b.entries {
		header.Index = append(header.Index, IndexEntry{
			Name:           e.name,
			Offset:         offset,
			Size:           e.size,
			CompressedSize: int64(len(e.data)),
		})
		offset += int64(len(e.data))
	}

	raw, err := encodeHeader(header)
	if err != nil {
		return 0, err
	}

	n, err := w.Write(raw)
	total := int64(n)
	if err != nil {
		return total, errors.Wrap(err, "write header")
	}
	for _, e := range b.entries {
		n, err := w.Write(e.data)
		total += int64(n)
		if err != nil {
			return total, errors.Wrapf(err, "write %s", e.name)
		}
	}
	return total, nil
}

// WriteFile writes the bundle to path, replacing any existing file.
func (b *Builder) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create report")
	}
	if _, err := b.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return errors.Wrap(f.Close(), "close report")
}
