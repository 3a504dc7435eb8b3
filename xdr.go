// Package nfsd3 implements a user-mode NFSv3 server over a pluggable
// virtual filesystem. It speaks TCP/record-marked ONC-RPC v2, decodes
// XDR on the wire, and dispatches Portmapper, Mount, and NFSv3 calls to
// handlers that sit atop the VFS capability in vfs.go. The server holds
// no session, lock, or open-file state of its own; all persistent state
// lives behind the VFS.
//
// Basic usage:
//
//	fs, _ := memvfs.New(memvfs.Options{})
//	srv, _ := nfsd3.New(fs, nfsd3.ServerOptions{})
//	srv.AddExport("/", fs.RootID())
//	srv.ListenAndServe(ctx, "0.0.0.0:2049")
package nfsd3

import (
	"encoding/binary"
	"fmt"
)

// Maximum sizes for XDR data structures, to prevent a malicious or
// confused client from driving unbounded allocation.
const (
	// MaxXDRMessageSize bounds a single assembled RPC record/message.
	// Must exceed the largest READ/WRITE reply the server advertises.
	MaxXDRMessageSize = 1 << 20 // 1 MiB

	// MaxXDROpaqueLength bounds any individual variable-length opaque
	// or string field decoded off the wire that has no tighter bound of
	// its own (names are bounded to 255 bytes, write payloads to
	// ServerOptions.MaxWrite).
	MaxXDROpaqueLength = MaxXDRMessageSize

	// MaxRPCAuthLength is the maximum length of an RPC credential or
	// verifier body, per RFC 1831.
	MaxRPCAuthLength = 400
)

// Encoder builds an XDR-encoded byte stream in a grow-only buffer.
// Every Put* method appends; there is no way to rewind, matching the
// teacher's append-only xdrEncode* helpers generalized into one type.
type Encoder struct {
	buf []byte
}

// NewEncoder returns an Encoder with a small pre-sized buffer.
func NewEncoder() *Encoder {
	return &Encoder{buf: make([]byte, 0, 256)}
}

// Bytes returns the accumulated encoded stream.
func (e *Encoder) Bytes() []byte { return e.buf }

// Len returns the number of bytes encoded so far.
func (e *Encoder) Len() int { return len(e.buf) }

func (e *Encoder) PutUint32(v uint32) {
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *Encoder) PutInt32(v int32) { e.PutUint32(uint32(v)) }

func (e *Encoder) PutUint64(v uint64) {
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	e.buf = append(e.buf, tmp[:]...)
}

func (e *Encoder) PutInt64(v int64) { e.PutUint64(uint64(v)) }

func (e *Encoder) PutBool(v bool) {
	if v {
		e.PutUint32(1)
	} else {
		e.PutUint32(0)
	}
}

// PutFixedOpaque writes exactly len(b) bytes zero-padded to a 4-byte
// boundary, with no length prefix (used for fixed-size fields like
// cookieverf3 and the write verifier).
func (e *Encoder) PutFixedOpaque(b []byte) {
	e.buf = append(e.buf, b...)
	e.pad(len(b))
}

// PutOpaque writes a u32 length followed by the bytes, zero-padded to
// a 4-byte boundary (XDR variable-length opaque<N>).
func (e *Encoder) PutOpaque(b []byte) {
	e.PutUint32(uint32(len(b)))
	e.buf = append(e.buf, b...)
	e.pad(len(b))
}

// PutString writes a u32 length followed by the string bytes, padded
// the same way as PutOpaque (XDR string<N>).
func (e *Encoder) PutString(s string) {
	e.PutOpaque([]byte(s))
}

// PutOptionalPresent writes the boolean discriminant for an XDR
// optional (*T); callers encode the arm themselves when present is
// true.
func (e *Encoder) PutOptionalPresent(present bool) { e.PutBool(present) }

func (e *Encoder) pad(n int) {
	if rem := n % 4; rem != 0 {
		var zero [4]byte
		e.buf = append(e.buf, zero[:4-rem]...)
	}
}

// Decoder walks a byte slice, decoding XDR primitives under a cursor.
// Every Get* method returns a parseError on short input, an oversized
// length, or non-zero padding bytes (padding is validated but never
// surfaced to the caller).
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps b for XDR decoding starting at offset 0.
func NewDecoder(b []byte) *Decoder {
	return &Decoder{buf: b}
}

// Remaining returns the number of undecoded bytes.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

// parseError reports a structural XDR decode failure. It is returned
// by the Decoder and must never be translated into an NFS3 status —
// it belongs to the RPC layer (GARBAGE_ARGS), not the application
// layer (§7 of the design).
type parseError struct {
	what string
}

func (e *parseError) Error() string { return "xdr: " + e.what }

func newParseError(format string, args ...interface{}) error {
	return &parseError{what: fmt.Sprintf(format, args...)}
}

// IsParseError reports whether err originated from the XDR decoder.
func IsParseError(err error) bool {
	_, ok := err.(*parseError)
	return ok
}

func (d *Decoder) need(n int) error {
	if n < 0 || d.pos+n > len(d.buf) {
		return newParseError("short input: need %d bytes, have %d", n, d.Remaining())
	}
	return nil
}

func (d *Decoder) GetUint32() (uint32, error) {
	if err := d.need(4); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint32(d.buf[d.pos : d.pos+4])
	d.pos += 4
	return v, nil
}

func (d *Decoder) GetInt32() (int32, error) {
	v, err := d.GetUint32()
	return int32(v), err
}

func (d *Decoder) GetUint64() (uint64, error) {
	if err := d.need(8); err != nil {
		return 0, err
	}
	v := binary.BigEndian.Uint64(d.buf[d.pos : d.pos+8])
	d.pos += 8
	return v, nil
}

func (d *Decoder) GetInt64() (int64, error) {
	v, err := d.GetUint64()
	return int64(v), err
}

func (d *Decoder) GetBool() (bool, error) {
	v, err := d.GetUint32()
	if err != nil {
		return false, err
	}
	if v != 0 && v != 1 {
		return false, newParseError("invalid bool value %d", v)
	}
	return v == 1, nil
}

// GetFixedOpaque reads exactly n bytes (padded to 4) with no length
// prefix, validating that the padding bytes are zero.
func (d *Decoder) GetFixedOpaque(n int) ([]byte, error) {
	if err := d.need(n); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, d.buf[d.pos:d.pos+n])
	d.pos += n
	if err := d.skipPadding(n); err != nil {
		return nil, err
	}
	return out, nil
}

// GetOpaque reads a u32 length followed by that many bytes, enforcing
// maxLen and validating zero padding.
func (d *Decoder) GetOpaque(maxLen int) ([]byte, error) {
	n, err := d.GetUint32()
	if err != nil {
		return nil, err
	}
	if int(n) > maxLen {
		return nil, newParseError("opaque length %d exceeds maximum %d", n, maxLen)
	}
	if err := d.need(int(n)); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, d.buf[d.pos:d.pos+int(n)])
	d.pos += int(n)
	if err := d.skipPadding(int(n)); err != nil {
		return nil, err
	}
	return out, nil
}

// GetString reads an XDR string<N>, enforcing maxLen.
func (d *Decoder) GetString(maxLen int) (string, error) {
	b, err := d.GetOpaque(maxLen)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// GetOptionalPresent reads the boolean discriminant of an XDR
// optional (*T); the caller decodes the arm itself when true is
// returned.
func (d *Decoder) GetOptionalPresent() (bool, error) {
	return d.GetBool()
}

func (d *Decoder) skipPadding(n int) error {
	rem := n % 4
	if rem == 0 {
		return nil
	}
	padLen := 4 - rem
	if err := d.need(padLen); err != nil {
		return err
	}
	for i := 0; i < padLen; i++ {
		if d.buf[d.pos+i] != 0 {
			return newParseError("non-zero XDR padding byte")
		}
	}
	d.pos += padLen
	return nil
}
