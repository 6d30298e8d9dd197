// Package cues defines the typed guidance contract emitted by the navigation
// pipeline.
//
// Cue kinds are grouped by urgency namespaces:
//
//   - alert.critical
//   - alert.informational
//   - ambient.update
//
// Semantics used across the package:
//
//   - Message: one append-only text chunk emitted in stream order.
//   - Done: terminal marker; the cue that closes the current utterance. The
//     terminal cue may carry a final message chunk or an empty one.
//
// Consumers (speech synthesis, UI) buffer chunks of the same kind until a
// Done cue arrives, then speak or render the assembled utterance. The core
// assumes nothing about consumption pace.
package cues
