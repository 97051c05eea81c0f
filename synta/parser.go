package synta

// Scanner accumulates serial bytes and emits complete command packets.
// Garbage between packets is discarded; a ':' always begins a new packet
// regardless of scanner state, matching how hand controllers recover from
// line noise.
type Scanner struct {
	buf    [CommandMax]byte
	length int
	active bool
}

// Feed consumes one received byte. It returns a non-nil Packet when the
// byte completes a well-formed command, and bad=true with a nil packet for
// a malformed one (the caller answers with ErrInvalidChar or similar).
func (s *Scanner) Feed(c byte) (pkt *Packet, bad bool) {
	if c == CharStart {
		s.length = 0
		s.active = true
		return nil, false
	}
	if !s.active {
		return nil, false
	}
	if c == CharEnd {
		s.active = false
		if s.length < 2 {
			return nil, true
		}
		p := &Packet{
			Command: s.buf[0],
			Axis:    s.buf[1],
			Payload: append([]byte(nil), s.buf[2:s.length]...),
		}
		if p.Axis != AxisRA && p.Axis != AxisDC && p.Axis != AxisBoth {
			return nil, true
		}
		return p, false
	}
	if s.length >= len(s.buf) {
		s.active = false
		return nil, true
	}
	s.buf[s.length] = c
	s.length++
	return nil, false
}
