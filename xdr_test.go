package nfsd3

import "testing"

func TestEncodeDecodePrimitives(t *testing.T) {
	e := NewEncoder()
	e.PutUint32(42)
	e.PutUint64(1 << 40)
	e.PutBool(true)
	e.PutBool(false)
	e.PutString("hello")
	e.PutOpaque([]byte{1, 2, 3})

	d := NewDecoder(e.Bytes())
	if v, err := d.GetUint32(); err != nil || v != 42 {
		t.Fatalf("GetUint32 = %d, %v", v, err)
	}
	if v, err := d.GetUint64(); err != nil || v != 1<<40 {
		t.Fatalf("GetUint64 = %d, %v", v, err)
	}
	if v, err := d.GetBool(); err != nil || v != true {
		t.Fatalf("GetBool = %v, %v", v, err)
	}
	if v, err := d.GetBool(); err != nil || v != false {
		t.Fatalf("GetBool = %v, %v", v, err)
	}
	if s, err := d.GetString(100); err != nil || s != "hello" {
		t.Fatalf("GetString = %q, %v", s, err)
	}
	if b, err := d.GetOpaque(100); err != nil || string(b) != "\x01\x02\x03" {
		t.Fatalf("GetOpaque = %v, %v", b, err)
	}
	if d.Remaining() != 0 {
		t.Fatalf("expected no remaining bytes, got %d", d.Remaining())
	}
}

func TestStringPadding(t *testing.T) {
	e := NewEncoder()
	e.PutString("abc") // 3 bytes -> 1 byte padding
	if e.Len() != 4+4 {
		t.Fatalf("expected 8 encoded bytes, got %d", e.Len())
	}
}

func TestOpaqueLengthLimitEnforced(t *testing.T) {
	e := NewEncoder()
	e.PutOpaque(make([]byte, 10))
	d := NewDecoder(e.Bytes())
	if _, err := d.GetOpaque(5); err == nil || !IsParseError(err) {
		t.Fatalf("expected a parse error for an over-length opaque, got %v", err)
	}
}

func TestNonZeroPaddingRejected(t *testing.T) {
	e := NewEncoder()
	e.PutString("abc")
	raw := e.Bytes()
	raw[len(raw)-1] = 0xFF // corrupt the padding byte
	d := NewDecoder(raw)
	if _, err := d.GetString(100); err == nil || !IsParseError(err) {
		t.Fatalf("expected a parse error for non-zero padding, got %v", err)
	}
}

func TestShortInputIsParseError(t *testing.T) {
	d := NewDecoder([]byte{0, 0})
	if _, err := d.GetUint32(); err == nil || !IsParseError(err) {
		t.Fatalf("expected a parse error for short input, got %v", err)
	}
}

func TestInvalidBoolIsParseError(t *testing.T) {
	e := NewEncoder()
	e.PutUint32(2)
	d := NewDecoder(e.Bytes())
	if _, err := d.GetBool(); err == nil || !IsParseError(err) {
		t.Fatalf("expected a parse error for an invalid bool, got %v", err)
	}
}
