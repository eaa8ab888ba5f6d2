package filesystem

import (
	"bytes"
	"fmt"

	units "github.com/docker/go-units"
)

// MaxReadSize is the largest file ReadFile returns.
const MaxReadSize = 1 << 20

// ErrBinary is returned for files that look binary.
var ErrBinary = fmt.Errorf("file appears to be binary")

// ReadFile returns the text content of a root-relative file.
func (r *Root) ReadFile(rel string) (string, error) {
	full, err := r.Resolve(rel)
	if err != nil {
		return "", err
	}

	info, err := r.fs.Stat(full)
	if err != nil {
		return "", err
	}
	if info.IsDir() {
		return "", fmt.Errorf("%s is a directory", rel)
	}
	if info.Size() > MaxReadSize {
		return "", fmt.Errorf("%s is %s, larger than the %s read limit",
			rel, units.HumanSize(float64(info.Size())), units.HumanSize(MaxReadSize))
	}

	data, err := r.fs.ReadFile(full)
	if err != nil {
		return "", err
	}
	if isBinary(data) {
		return "", fmt.Errorf("%s: %w", rel, ErrBinary)
	}
	return string(data), nil
}

// isBinary checks the first 8000 bytes for a NUL byte, like git does.
func isBinary(data []byte) bool {
	head := data
	if len(head) > 8000 {
		head = head[:8000]
	}
	return bytes.IndexByte(head, 0) >= 0
}
