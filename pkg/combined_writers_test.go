package pkg

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) {
	return 0, errors.New("disk on fire")
}

func TestCombinedWriter(t *testing.T) {
	var buf1, buf2 bytes.Buffer
	cw := NewCombinedWriter(&buf1, &buf2)

	n, err := cw.Write([]byte("weekly expressions"))
	require.NoError(t, err)
	assert.Equal(t, 2*len("weekly expressions"), n)
	assert.Equal(t, "weekly expressions", buf1.String())
	assert.Equal(t, "weekly expressions", buf2.String())
}

func TestCombinedWriter_PartialFailure(t *testing.T) {
	var buf bytes.Buffer
	cw := NewCombinedWriter(failingWriter{}, &buf)

	n, err := cw.Write([]byte("ж"))
	require.Error(t, err)
	assert.Equal(t, len("ж"), n)
	assert.Equal(t, "ж", buf.String())
}
