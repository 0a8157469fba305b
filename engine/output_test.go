package engine

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/docker/docker/pkg/stdcopy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDrainOutput(t *testing.T) {
	var stream bytes.Buffer
	stdout := stdcopy.NewStdWriter(&stream, stdcopy.Stdout)
	stderr := stdcopy.NewStdWriter(&stream, stdcopy.Stderr)

	_, err := stdout.Write([]byte("listening on 3000\n"))
	require.NoError(t, err)
	_, err = stderr.Write([]byte("warning: no tls\n"))
	require.NoError(t, err)
	_, err = stdout.Write([]byte("ready\n"))
	require.NoError(t, err)

	out, err := DrainOutput(&stream)
	require.NoError(t, err)
	assert.Equal(t, "listening on 3000\nwarning: no tls\nready\n", string(out))
}

func TestDrainOutput_Empty(t *testing.T) {
	out, err := DrainOutput(bytes.NewReader(nil))
	require.NoError(t, err)
	assert.Empty(t, out)
}

type failingReader struct {
	r   io.Reader
	err error
}

func (f *failingReader) Read(p []byte) (int, error) {
	n, err := f.r.Read(p)
	if errors.Is(err, io.EOF) {
		return n, f.err
	}
	return n, err
}

func TestDrainOutput_StreamError(t *testing.T) {
	var stream bytes.Buffer
	_, err := stdcopy.NewStdWriter(&stream, stdcopy.Stdout).Write([]byte("partial"))
	require.NoError(t, err)

	broken := errors.New("connection reset")
	out, err := DrainOutput(&failingReader{r: &stream, err: broken})
	assert.ErrorIs(t, err, broken)
	assert.Equal(t, "partial", string(out))
}

func TestDrainStreams(t *testing.T) {
	var stream bytes.Buffer
	_, err := stdcopy.NewStdWriter(&stream, stdcopy.Stderr).Write([]byte("warning: experimental\n"))
	require.NoError(t, err)
	_, err = stdcopy.NewStdWriter(&stream, stdcopy.Stdout).Write([]byte("[]"))
	require.NoError(t, err)

	stdout, stderr, err := DrainStreams(&stream)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(stdout))
	assert.Equal(t, "warning: experimental\n", string(stderr))
}
