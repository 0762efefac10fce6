// Package twiliovoice renders call flow replies as TwiML voice documents.
//
// It is the only package that knows the telephony platform's markup; the
// flow controller emits transport-agnostic replies and this package adapts
// them for Twilio.
package twiliovoice

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/twilio/twilio-go/twiml"

	"github.com/partsline/partsline/internal/flow"
)

// Render converts a reply into a TwiML document. A reply must carry exactly
// one terminal action (gather, redirect, or hangup); anything else is a
// controller bug and returns an error.
func Render(reply *flow.Reply) (string, error) {
	if n := reply.Actions(); n != 1 {
		return "", fmt.Errorf("reply must have exactly one terminal action, got %d", n)
	}

	verbs := make([]twiml.Element, 0, len(reply.Say)+2)
	for _, text := range reply.Say {
		verbs = append(verbs, &twiml.VoiceSay{Message: text})
	}

	switch {
	case reply.GatherSpeech != nil:
		g := reply.GatherSpeech
		gather := &twiml.VoiceGather{
			Input:         "speech",
			Action:        g.Action,
			Method:        "POST",
			SpeechTimeout: "auto",
			Language:      g.Language,
			Hints:         g.Hints,
		}
		if g.Prompt != "" {
			gather.InnerElements = []twiml.Element{&twiml.VoiceSay{Message: g.Prompt}}
		}
		verbs = append(verbs, gather)
		// Platform falls through here only when no speech was captured.
		if g.FallbackURL != "" {
			verbs = append(verbs, &twiml.VoiceRedirect{Url: g.FallbackURL, Method: "POST"})
		}
	case reply.GatherDigits != nil:
		g := reply.GatherDigits
		verbs = append(verbs, &twiml.VoiceGather{
			Input:     "dtmf",
			Action:    g.Action,
			Method:    "POST",
			NumDigits: strconv.Itoa(g.NumDigits),
			Timeout:   strconv.Itoa(g.Timeout),
		})
	case reply.RedirectTo != "":
		verbs = append(verbs, &twiml.VoiceRedirect{Url: reply.RedirectTo, Method: "POST"})
	case reply.Hangup:
		verbs = append(verbs, &twiml.VoiceHangup{})
	}

	doc, err := twiml.Voice(verbs)
	if err != nil {
		slog.Error("twiliovoice.Render: failed to build TwiML", "error", err)
		return "", fmt.Errorf("failed to build TwiML: %w", err)
	}
	return doc, nil
}
