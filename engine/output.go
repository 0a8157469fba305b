package engine

import (
	"bytes"
	"io"

	"github.com/docker/docker/pkg/stdcopy"
)

// DrainOutput reads a multiplexed stdout/stderr stream to the end and returns both streams
// concatenated in delivery order. Output read before a stream error is returned alongside it.
func DrainOutput(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	_, err := stdcopy.StdCopy(&buf, &buf, r)
	return buf.Bytes(), err
}

// DrainStreams is DrainOutput with stdout and stderr kept apart.
func DrainStreams(r io.Reader) (stdout, stderr []byte, err error) {
	var out, errOut bytes.Buffer
	_, err = stdcopy.StdCopy(&out, &errOut, r)
	return out.Bytes(), errOut.Bytes(), err
}
