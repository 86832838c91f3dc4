package proxy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/streamrelay/streamrelay/internal/apperrors"
)

// ByteRange is an inclusive byte interval of a resource
type ByteRange struct {
	Start int64
	End   int64
}

// Length returns the number of bytes in the range
func (r ByteRange) Length() int64 {
	return r.End - r.Start + 1
}

// ContentRange formats the Content-Range value for a resource of total bytes
func (r ByteRange) ContentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", r.Start, r.End, total)
}

// Header formats the Range request header selecting r
func (r ByteRange) Header() string {
	return fmt.Sprintf("bytes=%d-%d", r.Start, r.End)
}

// ParseRange parses a single "bytes=<start>-[<end>]" range against a resource
// of total bytes. An empty header returns false. A missing end means the last
// byte. Bounds must satisfy 0 <= start <= end < total.
func ParseRange(header string, total int64) (ByteRange, bool, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return ByteRange{}, false, nil
	}

	invalid := func(reason string) error {
		return &apperrors.ErrInvalidRange{Header: header, Total: total, Reason: reason}
	}
	unsatisfiable := func(reason string) error {
		return &apperrors.ErrInvalidRange{Header: header, Total: total, Unsatisfiable: true, Reason: reason}
	}

	byteSet, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return ByteRange{}, false, invalid("unit must be bytes")
	}
	if strings.Contains(byteSet, ",") {
		return ByteRange{}, false, invalid("multiple ranges are not supported")
	}

	startText, endText, ok := strings.Cut(strings.TrimSpace(byteSet), "-")
	if !ok {
		return ByteRange{}, false, invalid("missing '-'")
	}
	startText, endText = strings.TrimSpace(startText), strings.TrimSpace(endText)
	if startText == "" {
		return ByteRange{}, false, invalid("start offset is required")
	}

	start, ok := parseOffset(startText)
	if !ok {
		return ByteRange{}, false, invalid("start is not a non-negative integer")
	}

	end := total - 1
	if endText != "" {
		if end, ok = parseOffset(endText); !ok {
			return ByteRange{}, false, invalid("end is not a non-negative integer")
		}
	}

	switch {
	case start >= total:
		return ByteRange{}, false, unsatisfiable("start is beyond the resource")
	case start > end:
		return ByteRange{}, false, unsatisfiable("start is after end")
	case end >= total:
		return ByteRange{}, false, unsatisfiable("end is beyond the resource")
	}

	return ByteRange{Start: start, End: end}, true, nil
}

// parseOffset accepts decimal digits only; ParseInt alone would allow a sign
func parseOffset(text string) (int64, bool) {
	if text == "" || strings.TrimLeft(text, "0123456789") != "" {
		return 0, false
	}
	n, err := strconv.ParseInt(text, 10, 64)
	return n, err == nil
}
