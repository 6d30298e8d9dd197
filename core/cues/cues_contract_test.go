package cues

import "testing"

func TestConstructorsEmitExpectedKinds(t *testing.T) {
	testCases := []struct {
		name     string
		cue      Cue
		expected Kind
	}{
		{name: "critical alert", cue: NewCriticalAlert("vehicle ahead"), expected: KindCriticalAlert},
		{name: "critical alert done", cue: NewCriticalAlertDone(""), expected: KindCriticalAlert},
		{name: "informational alert", cue: NewInformationalAlert("person on the left"), expected: KindInformationalAlert},
		{name: "informational alert done", cue: NewInformationalAlertDone(""), expected: KindInformationalAlert},
		{name: "ambient update", cue: NewAmbientUpdate("clear sidewalk"), expected: KindAmbientUpdate},
		{name: "ambient update done", cue: NewAmbientUpdateDone(""), expected: KindAmbientUpdate},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			if got := testCase.cue.Kind(); got != testCase.expected {
				t.Fatalf("expected kind %q, got %q", testCase.expected, got)
			}
		})
	}
}

func TestDoneConstructorsMarkUtteranceEnd(t *testing.T) {
	if NewCriticalAlert("chunk").Done() {
		t.Fatalf("expected streamed chunk to not be terminal")
	}
	if !NewCriticalAlertDone("final").Done() {
		t.Fatalf("expected done constructor to mark the terminal chunk")
	}
}

func TestCuesCarryTheirMessage(t *testing.T) {
	cue := NewInformationalAlert("stairs ahead")
	if cue.Message() != "stairs ahead" {
		t.Fatalf("expected message to round-trip, got %q", cue.Message())
	}
	if cue.Timestamp().IsZero() {
		t.Fatalf("expected constructors to stamp cues")
	}
}
