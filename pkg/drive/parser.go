package drive

// Parser splits a byte stream into frames.
// Bytes are accumulated into a window of FrameSize. When the window is full,
// its reserved byte is 0x00 and its checksum matches, the frame is emitted;
// otherwise the oldest byte is dropped and the window slides until the
// stream is in sync again.
type Parser struct {
	buf [FrameSize]byte
	n   int
}

// Parse consumes one byte and returns a frame when one is complete.
func (p *Parser) Parse(b byte) *Frame {
	p.buf[p.n] = b
	p.n++
	if p.n < FrameSize {
		return nil
	}
	f := Frame(p.buf)
	if f[reservedOffset] == 0 && f.Valid() {
		p.n = 0
		return &f
	}
	copy(p.buf[:], p.buf[1:])
	p.n--
	return nil
}

// Pending returns the number of bytes of an incomplete frame.
func (p *Parser) Pending() int {
	return p.n
}

// Timeout discards a partial frame. It's called when the line stays
// silent longer than a frame takes to arrive.
func (p *Parser) Timeout() {
	p.n = 0
}
