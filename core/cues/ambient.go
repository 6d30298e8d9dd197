package cues

// KindAmbientUpdate identifies periodic scene descriptions spoken when
// nothing urgent is happening.
const KindAmbientUpdate Kind = "ambient.update"

// AmbientUpdate carries one chunk of a periodic scene description.
type AmbientUpdate struct{ Base }

// NewAmbientUpdate creates a streamed ambient update chunk.
func NewAmbientUpdate(message string) AmbientUpdate {
	return AmbientUpdate{Base: NewBase(KindAmbientUpdate, message, false)}
}

// NewAmbientUpdateDone creates the terminal chunk of an ambient update
// utterance.
func NewAmbientUpdateDone(message string) AmbientUpdate {
	return AmbientUpdate{Base: NewBase(KindAmbientUpdate, message, true)}
}
