package content

import (
	"fmt"
	"io"

	"github.com/c360/coredata/errors"
)

// errTooLarge reports content of at least size bytes against limit. The error
// is invalid: fetching again returns the same content.
func errTooLarge(component string, size, limit int64) error {
	return errors.WrapInvalid(
		fmt.Errorf("%w: at least %d bytes, limit %d", errors.ErrContentTooLarge, size, limit),
		component, "Open", "size check")
}

// readLimited reads r in full but never buffers more than limit+1 bytes. A
// limit of zero or less reads everything. over reports that the content
// exceeded the limit; data is then partial and must be discarded.
func readLimited(r io.Reader, limit int64) (data []byte, over bool, err error) {
	if limit <= 0 {
		data, err = io.ReadAll(r)
		return data, false, err
	}
	data, err = io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	return data, int64(len(data)) > limit, nil
}
