package wire

import "bytes"

// LineBuffer reassembles newline-terminated protocol lines from arbitrarily
// fragmented transport chunks. A line may span several chunks and a single
// chunk may carry several lines; the trailing unterminated remainder is kept
// until the terminator arrives.
type LineBuffer struct {
	buf []byte
}

// Feed appends chunk and returns every complete line now available, in order.
// Terminators are stripped, empty segments are skipped.
func (b *LineBuffer) Feed(chunk []byte) []string {
	if len(chunk) == 0 {
		return nil
	}
	b.buf = append(b.buf, chunk...)
	last := bytes.LastIndexByte(b.buf, '\n')
	if last < 0 {
		return nil
	}
	complete := b.buf[:last]
	rest := b.buf[last+1:]
	b.buf = append(b.buf[:0], rest...)

	var lines []string
	for _, seg := range bytes.Split(complete, []byte{'\n'}) {
		seg = bytes.TrimSuffix(seg, []byte{'\r'})
		if len(seg) == 0 {
			continue
		}
		lines = append(lines, string(seg))
	}
	return lines
}

// Pending reports how many buffered bytes are waiting for a terminator.
func (b *LineBuffer) Pending() int {
	return len(b.buf)
}

// Reset discards any buffered partial line.
func (b *LineBuffer) Reset() {
	b.buf = b.buf[:0]
}
