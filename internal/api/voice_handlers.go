// Package api provides the Twilio voice webhook handlers for PartsLine.
package api

import (
	"log/slog"
	"net/http"

	"github.com/partsline/partsline/internal/flow"
	"github.com/partsline/partsline/internal/twiliovoice"
)

const emptyVoiceDocument = `<?xml version="1.0" encoding="UTF-8"?><Response></Response>`

// voiceHandler handles the call-start turn (POST /voice).
func (s *Server) voiceHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.voiceHandler: processing voice turn", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.voiceHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	callSID := r.FormValue("CallSid")
	s.renderReply(w, s.ctrl.Greeting(callSID))
}

// processSpeechHandler handles the speech turn (POST /process-speech). The
// platform posts the call SID and the recognized transcript, which may be
// empty.
func (s *Server) processSpeechHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.processSpeechHandler: processing speech turn", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.processSpeechHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	callSID := r.FormValue("CallSid")
	speech := r.FormValue("SpeechResult")
	s.renderReply(w, s.ctrl.ProcessSpeech(r.Context(), callSID, speech))
}

// handleChoiceHandler handles a digit turn (POST /handle-choice).
func (s *Server) handleChoiceHandler(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Server.handleChoiceHandler: processing choice turn", "method", r.Method, "path", r.URL.Path)
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.handleChoiceHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	callSID := r.FormValue("CallSid")
	digit := r.FormValue("Digits")
	s.renderReply(w, s.ctrl.HandleChoice(r.Context(), callSID, digit))
}

// renderReply converts a flow reply to TwiML and writes it. A render
// failure means a malformed reply was produced; the platform still gets a
// valid (empty) document so the call does not error out mid-turn.
func (s *Server) renderReply(w http.ResponseWriter, reply *flow.Reply) {
	doc, err := twiliovoice.Render(reply)
	if err != nil {
		slog.Error("Server.renderReply: failed to render reply", "error", err)
		writeTwiMLResponse(w, emptyVoiceDocument)
		return
	}
	writeTwiMLResponse(w, doc)
}
