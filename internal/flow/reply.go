// Package flow implements the call flow controller for PartsLine.
package flow

// Turn endpoint paths. The telephony platform posts each turn of a call to
// one of these, and replies name them as gather/redirect targets.
const (
	TurnVoice         = "/voice"
	TurnProcessSpeech = "/process-speech"
	TurnHandleChoice  = "/handle-choice"
)

// Speech and digit capture defaults handed to the telephony platform.
const (
	SpeechLanguage     = "en-US"
	SpeechHints        = "Toyota, Honda, Camry, Accord, brake pads, oil filter"
	DigitGatherTimeout = 12
)

// SpeechGather instructs the platform to capture caller speech and post the
// transcript to Action. Prompt is spoken inside the capture window so the
// caller can start talking over it. FallbackURL is re-invoked when the
// platform captures nothing at all.
type SpeechGather struct {
	Action      string
	Prompt      string
	Hints       string
	Language    string
	FallbackURL string
}

// DigitGather instructs the platform to capture NumDigits keypad digits and
// post them to Action.
type DigitGather struct {
	Action    string
	NumDigits int
	Timeout   int
}

// Reply is one transport-agnostic voice response: spoken segments in order,
// then exactly one terminal action. The rendering layer turns it into the
// platform's markup.
type Reply struct {
	Say          []string
	GatherSpeech *SpeechGather
	GatherDigits *DigitGather
	RedirectTo   string
	Hangup       bool
}

// say appends a spoken segment.
func (r *Reply) say(text string) *Reply {
	r.Say = append(r.Say, text)
	return r
}

// Actions counts the terminal actions set on the reply. A well-formed reply
// has exactly one.
func (r *Reply) Actions() int {
	n := 0
	if r.GatherSpeech != nil {
		n++
	}
	if r.GatherDigits != nil {
		n++
	}
	if r.RedirectTo != "" {
		n++
	}
	if r.Hangup {
		n++
	}
	return n
}
