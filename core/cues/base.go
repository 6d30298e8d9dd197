package cues

import "time"

type Kind string

// Cue is one streamed, classified piece of spoken/visual feedback. A sequence
// of cues with the same kind forms one utterance, terminated by the cue whose
// Done reports true.
type Cue interface {
	Kind() Kind
	Timestamp() time.Time
	Message() string
	Done() bool
}

type Base struct {
	kind      Kind
	timestamp time.Time
	message   string
	done      bool
}

func NewBase(kind Kind, message string, done bool) Base {
	return Base{kind: kind, timestamp: time.Now(), message: message, done: done}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}

func (b Base) Message() string {
	return b.message
}

func (b Base) Done() bool {
	return b.done
}
