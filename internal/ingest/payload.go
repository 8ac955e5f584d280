package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// PayloadKind tags the variant held by a Payload.
type PayloadKind int

const (
	PayloadBytes PayloadKind = iota
	PayloadReader
	PayloadPath
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadBytes:
		return "bytes"
	case PayloadReader:
		return "reader"
	case PayloadPath:
		return "path"
	default:
		return "unknown"
	}
}

// Payload is the content of an upload: in-memory bytes, an open reader, or
// a path on the local filesystem. It is resolved exactly once by Stager.Store.
type Payload struct {
	kind   PayloadKind
	data   []byte
	reader io.Reader
	size   int64
	path   string
}

// FromBytes wraps an in-memory upload.
func FromBytes(data []byte) Payload {
	return Payload{kind: PayloadBytes, data: data, size: int64(len(data))}
}

// FromReader wraps a stream. size may be negative when unknown; the stream is
// then spooled to disk before capacity is reserved.
func FromReader(r io.Reader, size int64) Payload {
	return Payload{kind: PayloadReader, reader: r, size: size}
}

// FromPath references an existing local file, which is copied into staging.
func FromPath(path string) Payload {
	return Payload{kind: PayloadPath, path: path, size: -1}
}

// Kind reports the payload variant.
func (p Payload) Kind() PayloadKind {
	return p.kind
}

// open returns the content stream and its size, or -1 when unknown.
func (p Payload) open() (io.ReadCloser, int64, error) {
	switch p.kind {
	case PayloadBytes:
		return io.NopCloser(bytes.NewReader(p.data)), int64(len(p.data)), nil
	case PayloadReader:
		if p.reader == nil {
			return nil, 0, errors.New("payload reader is nil")
		}
		if rc, ok := p.reader.(io.ReadCloser); ok {
			return rc, p.size, nil
		}
		return io.NopCloser(p.reader), p.size, nil
	case PayloadPath:
		f, err := os.Open(p.path)
		if err != nil {
			return nil, 0, fmt.Errorf("open payload: %w", err)
		}
		info, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, 0, fmt.Errorf("stat payload: %w", err)
		}
		if info.IsDir() {
			_ = f.Close()
			return nil, 0, fmt.Errorf("payload %s is a directory", p.path)
		}
		return f, info.Size(), nil
	default:
		return nil, 0, fmt.Errorf("unsupported payload kind %d", p.kind)
	}
}
