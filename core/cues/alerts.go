package cues

const (
	// KindCriticalAlert identifies imminent-danger guidance that must be
	// spoken before anything else.
	KindCriticalAlert Kind = "alert.critical"
	// KindInformationalAlert identifies newly relevant surroundings worth
	// announcing once.
	KindInformationalAlert Kind = "alert.informational"
)

// CriticalAlert carries one chunk of imminent-danger guidance.
type CriticalAlert struct{ Base }

// NewCriticalAlert creates a streamed critical alert chunk.
func NewCriticalAlert(message string) CriticalAlert {
	return CriticalAlert{Base: NewBase(KindCriticalAlert, message, false)}
}

// NewCriticalAlertDone creates the terminal chunk of a critical alert
// utterance.
func NewCriticalAlertDone(message string) CriticalAlert {
	return CriticalAlert{Base: NewBase(KindCriticalAlert, message, true)}
}

// InformationalAlert carries one chunk of non-urgent environment guidance.
type InformationalAlert struct{ Base }

// NewInformationalAlert creates a streamed informational alert chunk.
func NewInformationalAlert(message string) InformationalAlert {
	return InformationalAlert{Base: NewBase(KindInformationalAlert, message, false)}
}

// NewInformationalAlertDone creates the terminal chunk of an informational
// alert utterance.
func NewInformationalAlertDone(message string) InformationalAlert {
	return InformationalAlert{Base: NewBase(KindInformationalAlert, message, true)}
}
