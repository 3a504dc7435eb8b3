package nfsd3

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordRoundTripSingleFragment(t *testing.T) {
	var buf bytes.Buffer
	w := NewRecordWriter(&buf)
	payload := []byte("hello, nfs")
	require.NoError(t, w.WriteRecord(payload))

	r := NewRecordReader(&buf)
	got, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestRecordRoundTripMultiFragment(t *testing.T) {
	var buf bytes.Buffer
	w := NewRecordWriter(&buf)
	w.maxFragment = 8 // force multiple fragments

	payload := bytes.Repeat([]byte{0xAB}, 100)
	require.NoError(t, w.WriteRecord(payload))

	r := NewRecordReader(&buf)
	got, err := r.ReadRecord()
	require.NoError(t, err)
	require.Equal(t, payload, got)
}

func TestRecordReaderRejectsOversizedRecord(t *testing.T) {
	var buf bytes.Buffer
	w := NewRecordWriter(&buf)
	require.NoError(t, w.WriteRecord(make([]byte, 100)))

	r := NewRecordReader(&buf)
	r.MaxRecordBytes = 10
	_, err := r.ReadRecord()
	require.Error(t, err)
}

func TestRecordRoundTripEmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	w := NewRecordWriter(&buf)
	require.NoError(t, w.WriteRecord(nil))

	r := NewRecordReader(&buf)
	got, err := r.ReadRecord()
	require.NoError(t, err)
	require.Empty(t, got)
}
