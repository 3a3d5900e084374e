package reporting

import "sync/atomic"

// Token identifies one load request issued by a Sequencer.
type Token uint64

// Sequencer hands out monotonically increasing tokens so that the result of a
// superseded request can be recognised and dropped: only the latest token is
// current.
type Sequencer struct {
	last atomic.Uint64
}

// Next issues a new token, superseding every earlier one.
func (s *Sequencer) Next() Token {
	return Token(s.last.Add(1))
}

// Current reports whether t is still the latest token.
func (s *Sequencer) Current(t Token) bool {
	return uint64(t) == s.last.Load()
}
