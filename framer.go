package nfsd3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"
)

// Record marking constants (RFC 1831 §10). RPC-over-TCP frames each
// message as one or more fragments; each fragment is prefixed by a
// single u32 whose high bit flags the last fragment and whose low 31
// bits carry the fragment's byte count.
const (
	lastFragmentFlag  = 0x80000000
	maxFragmentLength = 0x7FFFFFFF

	// defaultMaxFragmentBytes bounds a single outbound fragment; the
	// writer splits anything larger into multiple fragments.
	defaultMaxFragmentBytes = 1 << 18 // 256 KiB
)

// RecordReader reassembles RPC records (concatenated fragments) off a
// byte stream. MaxRecordBytes bounds the assembled record; exceeding
// it is a transport-layer failure that must close the connection
// (§4.2, §7 layer 1).
type RecordReader struct {
	r              io.Reader
	MaxRecordBytes int
}

// NewRecordReader wraps r with the default 1 MiB record ceiling.
func NewRecordReader(r io.Reader) *RecordReader {
	return &RecordReader{r: r, MaxRecordBytes: MaxXDRMessageSize}
}

// ReadRecord reads one complete RPC record (all of its fragments) and
// returns the concatenated payload.
func (rr *RecordReader) ReadRecord() ([]byte, error) {
	var buf bytes.Buffer
	for {
		var header uint32
		if err := binary.Read(rr.r, binary.BigEndian, &header); err != nil {
			return nil, fmt.Errorf("framer: read fragment header: %w", err)
		}

		last := header&lastFragmentFlag != 0
		length := header &^ lastFragmentFlag
		if length > maxFragmentLength {
			return nil, fmt.Errorf("framer: fragment length %d exceeds protocol maximum", length)
		}
		if buf.Len()+int(length) > rr.MaxRecordBytes {
			return nil, fmt.Errorf("framer: assembled record exceeds %d bytes", rr.MaxRecordBytes)
		}

		if length > 0 {
			if _, err := io.CopyN(&buf, rr.r, int64(length)); err != nil {
				return nil, fmt.Errorf("framer: read fragment body: %w", err)
			}
		}

		if last {
			return buf.Bytes(), nil
		}
	}
}

// RecordWriter emits complete RPC records as one or more length-framed
// fragments. Safe for concurrent use; a connection's reply order is
// still the caller's responsibility (§5 — ordering is enforced by
// serializing writes per connection, not inside RecordWriter).
type RecordWriter struct {
	w           io.Writer
	mu          sync.Mutex
	maxFragment int
}

// NewRecordWriter wraps w with the default maximum fragment size.
func NewRecordWriter(w io.Writer) *RecordWriter {
	return &RecordWriter{w: w, maxFragment: defaultMaxFragmentBytes}
}

// WriteRecord writes data as a sequence of fragments, the last of
// which carries the last-fragment flag.
func (rw *RecordWriter) WriteRecord(data []byte) error {
	rw.mu.Lock()
	defer rw.mu.Unlock()

	offset := 0
	for {
		remaining := len(data) - offset
		chunk := remaining
		if chunk > rw.maxFragment {
			chunk = rw.maxFragment
		}
		header := uint32(chunk)
		last := remaining == chunk
		if last {
			header |= lastFragmentFlag
		}
		if err := binary.Write(rw.w, binary.BigEndian, header); err != nil {
			return fmt.Errorf("framer: write fragment header: %w", err)
		}
		if chunk > 0 {
			if _, err := rw.w.Write(data[offset : offset+chunk]); err != nil {
				return fmt.Errorf("framer: write fragment body: %w", err)
			}
		}
		offset += chunk
		if last {
			return nil
		}
	}
}
