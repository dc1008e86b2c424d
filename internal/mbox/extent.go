package mbox

import (
	"fmt"
	"io"
	"os"
)

// ReadExtent reads a single message's bytes from the archive at the given
// offset and length. The file is opened and closed per call; query-phase
// random reads hold no long-lived handle on the archive.
func ReadExtent(path string, offset, length int64) ([]byte, error) {
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("invalid extent (offset %d, length %d)", offset, length)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	raw := make([]byte, length)
	n, err := f.ReadAt(raw, offset)
	if int64(n) < length {
		if err == nil || err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read extent at %d (+%d): %w", offset, length, err)
	}
	return raw, nil
}
