// Package inject reconciles corrected transcript text with the text already
// on screen, and types the difference at the cursor.
//
// The [Differ] turns "previous injected text" plus "text that should now be
// on screen" into a minimal backspace-and-retype instruction, so a revised
// hypothesis can be corrected in place without deleting committed words that
// did not change. [Injector] implementations perform the keystrokes.
package inject

// Instruction is one reconciliation step: delete DeleteCount characters
// before the cursor, then type Text.
type Instruction struct {
	DeleteCount int
	Text        string
}

// IsNoop reports whether the instruction changes nothing.
func (in Instruction) IsNoop() bool {
	return in.DeleteCount == 0 && in.Text == ""
}

// Differ tracks the exact text previously injected for one utterance. Not
// safe for concurrent use.
type Differ struct {
	injected []rune
}

// NewDiffer returns a Differ with no injected text.
func NewDiffer() *Differ {
	return &Differ{}
}

// Apply computes the minimal instruction that brings the screen from the
// previously injected text to newText. Every non-noop instruction's Text
// ends with a single separator space so the next word can append cleanly.
//
// When final is true, the injected-text state resets afterwards; the
// utterance is over and the next one starts from nothing.
//
// Calling Apply twice with the same newText is idempotent: the second call
// returns a noop.
func (d *Differ) Apply(newText string, final bool) Instruction {
	next := []rune(newText)

	if string(next) == string(d.injected) {
		if final {
			d.injected = nil
		}
		return Instruction{}
	}

	common := 0
	for common < len(d.injected) && common < len(next) && d.injected[common] == next[common] {
		common++
	}

	var deletes int
	switch {
	case common < len(d.injected):
		// The hypothesis rewrote part of what is on screen: remove the
		// diverging suffix plus the trailing separator space that
		// followed the old text.
		deletes = (len(d.injected) - common) + 1
	case len(d.injected) > 0:
		// Pure extension: only the old trailing separator has to go so
		// the suffix does not create a double space.
		deletes = 1
	}

	if final {
		d.injected = nil
	} else {
		d.injected = next
	}
	return Instruction{DeleteCount: deletes, Text: string(next[common:]) + " "}
}

// Injected returns the text the differ believes is on screen.
func (d *Differ) Injected() string {
	return string(d.injected)
}

// Reset forgets the injected text without emitting anything. Used when the
// caller knows the screen content is gone (focus change, manual edit).
func (d *Differ) Reset() {
	d.injected = nil
}
