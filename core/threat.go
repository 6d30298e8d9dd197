package navigation

import (
	"sync"
	"time"
)

const (
	defaultCriticalCooldown      = 3 * time.Second
	defaultInformationalCooldown = 5 * time.Second
	defaultAmbientInterval       = 45 * time.Second

	minAmbientInterval = 20 * time.Second
	maxAmbientInterval = 5 * time.Minute
)

// ThreatConfig is the label taxonomy and pacing for the assessment state
// machine. Labels are matched exactly against detector output.
type ThreatConfig struct {
	// CriticalLabels trigger an immediate alert whenever present.
	CriticalLabels []string
	// ImportantLabels trigger an informational alert when newly seen.
	ImportantLabels []string

	CriticalCooldown      time.Duration
	InformationalCooldown time.Duration
	// AmbientInterval paces periodic scene descriptions; clamped to the
	// 20s–5m range.
	AmbientInterval time.Duration
}

func DefaultThreatConfig() ThreatConfig {
	return ThreatConfig{
		CriticalLabels:        []string{"car", "truck", "bus", "motorcycle", "bicycle", "train"},
		ImportantLabels:       []string{"person", "dog", "cat", "car", "truck", "bus", "motorcycle", "bicycle"},
		CriticalCooldown:      defaultCriticalCooldown,
		InformationalCooldown: defaultInformationalCooldown,
		AmbientInterval:       defaultAmbientInterval,
	}
}

func (c ThreatConfig) withDefaults() ThreatConfig {
	if c.CriticalCooldown <= 0 {
		c.CriticalCooldown = defaultCriticalCooldown
	}
	if c.InformationalCooldown <= 0 {
		c.InformationalCooldown = defaultInformationalCooldown
	}
	if c.AmbientInterval <= 0 {
		c.AmbientInterval = defaultAmbientInterval
	} else if c.AmbientInterval < minAmbientInterval {
		c.AmbientInterval = minAmbientInterval
	} else if c.AmbientInterval > maxAmbientInterval {
		c.AmbientInterval = maxAmbientInterval
	}
	return c
}

// ThreatAssessment is the tagged outcome of one detection tick.
type ThreatAssessment interface {
	isThreatAssessment()
}

// NoAlert means the tick produced nothing worth an inference call.
type NoAlert struct{}

// CriticalThreat carries the critical labels present this tick.
type CriticalThreat struct{ Objects []string }

// NewObjects carries important labels that were not present last tick.
type NewObjects struct{ Objects []string }

// AmbientDue means the periodic scene description interval elapsed.
type AmbientDue struct{}

func (NoAlert) isThreatAssessment()        {}
func (CriticalThreat) isThreatAssessment() {}
func (NewObjects) isThreatAssessment()     {}
func (AmbientDue) isThreatAssessment()     {}

// threatAssessor classifies detection ticks. Its only state is the three
// cooldown timers and the last-seen label set.
type threatAssessor struct {
	mu sync.Mutex

	config ThreatConfig

	critical  map[string]struct{}
	important map[string]struct{}

	lastCritical      time.Time
	lastInformational time.Time
	lastAmbient       time.Time
	lastSeen          map[string]struct{}
}

func newThreatAssessor(config ThreatConfig) *threatAssessor {
	config = config.withDefaults()

	assessor := &threatAssessor{
		config:    config,
		critical:  map[string]struct{}{},
		important: map[string]struct{}{},
		lastSeen:  map[string]struct{}{},
	}
	for _, label := range config.CriticalLabels {
		assessor.critical[label] = struct{}{}
	}
	for _, label := range config.ImportantLabels {
		assessor.important[label] = struct{}{}
	}
	return assessor
}

// Assess classifies one detection tick. Critical alerts short-circuit ahead
// of everything else so they can never be starved by informational or
// ambient bookkeeping; the last-seen set is updated on every tick regardless
// of which branch fires.
func (a *threatAssessor) Assess(labels []string, now time.Time) ThreatAssessment {
	a.mu.Lock()
	defer a.mu.Unlock()

	var criticalPresent []string
	for _, label := range labels {
		if _, ok := a.critical[label]; ok {
			criticalPresent = append(criticalPresent, label)
		}
	}
	if len(criticalPresent) > 0 && now.Sub(a.lastCritical) > a.config.CriticalCooldown {
		a.lastCritical = now
		a.updateLastSeenLocked(labels)
		return CriticalThreat{Objects: criticalPresent}
	}

	var newImportant []string
	for _, label := range labels {
		if _, important := a.important[label]; !important {
			continue
		}
		if _, seen := a.lastSeen[label]; !seen {
			newImportant = append(newImportant, label)
		}
	}
	if len(newImportant) > 0 && now.Sub(a.lastInformational) > a.config.InformationalCooldown {
		a.lastInformational = now
		a.updateLastSeenLocked(labels)
		return NewObjects{Objects: newImportant}
	}

	a.updateLastSeenLocked(labels)

	if now.Sub(a.lastAmbient) > a.config.AmbientInterval {
		a.lastAmbient = now
		return AmbientDue{}
	}

	return NoAlert{}
}

func (a *threatAssessor) updateLastSeenLocked(labels []string) {
	seen := make(map[string]struct{}, len(labels))
	for _, label := range labels {
		seen[label] = struct{}{}
	}
	a.lastSeen = seen
}

// Reset clears all cooldowns and the last-seen set; called on navigation
// stop so the next run starts cold.
func (a *threatAssessor) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.lastCritical = time.Time{}
	a.lastInformational = time.Time{}
	a.lastAmbient = time.Time{}
	a.lastSeen = map[string]struct{}{}
}
