package docker

// tailBuffer is an io.Writer that keeps only the last max bytes written.
type tailBuffer struct {
	max     int
	buf     []byte
	dropped int64
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if n >= t.max {
		t.dropped += int64(len(t.buf) + n - t.max)
		t.buf = append(t.buf[:0], p[n-t.max:]...)
		return n, nil
	}
	t.buf = append(t.buf, p...)
	// compact lazily so memory stays under 2*max without copying on every write
	if len(t.buf) > 2*t.max {
		t.compact()
	}
	return n, nil
}

func (t *tailBuffer) compact() {
	if cut := len(t.buf) - t.max; cut > 0 {
		t.dropped += int64(cut)
		t.buf = append(t.buf[:0], t.buf[cut:]...)
	}
}

func (t *tailBuffer) String() string {
	t.compact()
	return string(t.buf)
}
