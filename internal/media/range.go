package media

import (
	"errors"
	"strconv"
	"strings"
)

// ErrRangeNotSatisfiable covers both malformed range headers and ranges
// starting beyond the end of the file. The client recovers by retrying
// without a Range header, so the condition is reported distinctly instead
// of being folded into the not-available outcome.
var ErrRangeNotSatisfiable = errors.New("media: range not satisfiable")

type byteRange struct {
	start  int64
	length int64
}

func (r byteRange) end() int64 { return r.start + r.length - 1 }

// parseRange interprets a single-range "bytes=start-end" header against a
// resource of the given size. It returns nil for an absent header (serve
// the full resource). An end past the last byte is clamped; a start past
// the last byte, a suffix of zero bytes, or anything unparsable is
// ErrRangeNotSatisfiable. Multi-range requests are not supported here;
// the player only ever issues single ranges when seeking.
func parseRange(header string, size int64) (*byteRange, error) {
	if header == "" {
		return nil, nil
	}
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok || strings.Contains(spec, ",") {
		return nil, ErrRangeNotSatisfiable
	}
	spec = strings.TrimSpace(spec)
	dash := strings.Index(spec, "-")
	if dash < 0 {
		return nil, ErrRangeNotSatisfiable
	}

	startStr, endStr := spec[:dash], spec[dash+1:]

	if startStr == "" {
		// Suffix form "-N": the final N bytes.
		n, err := strconv.ParseInt(endStr, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrRangeNotSatisfiable
		}
		if n > size {
			n = size
		}
		return &byteRange{start: size - n, length: n}, nil
	}

	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil || start < 0 {
		return nil, ErrRangeNotSatisfiable
	}
	if start >= size {
		return nil, ErrRangeNotSatisfiable
	}

	end := size - 1
	if endStr != "" {
		end, err = strconv.ParseInt(endStr, 10, 64)
		if err != nil || end < start {
			return nil, ErrRangeNotSatisfiable
		}
		if end >= size {
			// Overshooting end is clamped, not rejected.
			end = size - 1
		}
	}

	return &byteRange{start: start, length: end - start + 1}, nil
}
