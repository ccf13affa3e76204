package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorLog_CapsEntries(t *testing.T) {
	l := NewErrorLog()

	for i := 1; i <= ErrorLogCap+10; i++ {
		l.Addf(i, "bad row")
	}

	assert.Equal(t, ErrorLogCap, l.Len())
	assert.Equal(t, 10, l.Dropped())

	entries := l.Entries()
	require.Len(t, entries, ErrorLogCap)
	assert.Equal(t, "line 1: bad row", entries[0])
	assert.Equal(t, "line 50: bad row", entries[ErrorLogCap-1])
}

func TestErrorLog_EntriesReturnsCopy(t *testing.T) {
	l := NewErrorLog()
	l.Addf(1, "first")

	entries := l.Entries()
	entries[0] = "mutated"
	assert.Equal(t, "line 1: first", l.Entries()[0])
}

func TestErrorLog_Warnf(t *testing.T) {
	l := NewErrorLog()
	l.Warnf("cache unavailable: %v", "dial refused")

	require.Equal(t, 1, l.Len())
	assert.Equal(t, "cache unavailable: dial refused", l.Entries()[0])
}

func TestSchemaError_Message(t *testing.T) {
	err := &SchemaError{Missing: []string{"ID", "Referral"}}
	assert.Equal(t, "missing required columns: ID, Referral", err.Error())
}
