// Package flow implements the call flow controller for PartsLine.
//
// The controller is the state machine behind the voice webhooks: greeting,
// speech capture, result presentation, digit-driven cart mutation, and the
// final quote. Each webhook turn is one atomic request/response exchange;
// the telephony platform serializes turns within a call, so the controller
// performs plain read-modify-write against the session store.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/partsline/partsline/internal/catalog"
	"github.com/partsline/partsline/internal/extract"
	"github.com/partsline/partsline/internal/models"
	"github.com/partsline/partsline/internal/session"
	"github.com/partsline/partsline/internal/store"
)

// MaxResults caps how many search results are read to the caller. Digits 1
// through MaxResults select a result; 9 and 0 are reserved.
const MaxResults = 5

// Spoken prompts. Wording is part of the caller-facing contract.
const (
	greetingPrompt   = "Welcome to Auto Parts Finder. Please say the year, make, model, and the part you need."
	menuSuffix       = "Press 9 to hear your cart and get a quote. Press 0 to end this call."
	goodbyeMessage   = "Thank you for calling. Goodbye."
	emptyCartMessage = "Your cart is empty."
	expiredMessage   = "Session expired. Let us start over."
	invalidMessage   = "Sorry, invalid choice. Redirecting to start."
)

// Controller drives the call flow. It owns the loaded catalog, the session
// store, the field extractor, and the quote log; all of them are injected so
// tests can substitute doubles.
type Controller struct {
	items     []models.Item
	sessions  session.Store
	extractor extract.Extractor
	quotes    store.Store
}

// NewController creates a call flow controller. extractor may be nil, in
// which case every utterance degrades to the all-empty query.
func NewController(items []models.Item, sessions session.Store, extractor extract.Extractor, quotes store.Store) *Controller {
	return &Controller{
		items:     items,
		sessions:  sessions,
		extractor: extractor,
		quotes:    quotes,
	}
}

// Sessions exposes the session store for health reporting.
func (c *Controller) Sessions() session.Store {
	return c.sessions
}

// Greeting handles the call-start turn: greet the caller and capture speech.
// The session is created lazily here so later turns can tell a live call
// from an expired one. Silence falls back to this same turn via the
// platform's own timeout.
func (c *Controller) Greeting(callSID string) *Reply {
	slog.Debug("Controller.Greeting: greeting turn", "callSID", callSID)

	if callSID != "" {
		sess, ok := c.sessions.Get(callSID)
		if !ok {
			sess = models.NewCallSession(callSID)
		}
		sess.State = models.StateAwaitingSpeech
		c.sessions.Put(sess)
	}

	return &Reply{
		GatherSpeech: &SpeechGather{
			Action:      TurnProcessSpeech,
			Prompt:      greetingPrompt,
			Hints:       SpeechHints,
			Language:    SpeechLanguage,
			FallbackURL: TurnVoice,
		},
	}
}

// ProcessSpeech handles the speech turn: extract search fields from the
// transcript, filter the catalog, and either present the top results with a
// digit menu or loop back to the greeting when nothing matched. A new
// utterance fully replaces the prior query and results.
func (c *Controller) ProcessSpeech(ctx context.Context, callSID, speech string) *Reply {
	slog.Debug("Controller.ProcessSpeech: speech turn", "callSID", callSID, "speech_len", len(speech))

	parsed := c.extractQuery(ctx, speech)
	results := catalog.Search(parsed.Year, parsed.Make, parsed.Model, parsed.Item, c.items)

	top := results
	if len(top) > MaxResults {
		top = top[:MaxResults]
	}

	sess, ok := c.sessions.Get(callSID)
	if !ok {
		sess = models.NewCallSession(callSID)
	}
	sess.LastQuery = &parsed
	sess.LastResults = top

	if len(results) == 0 {
		sess.State = models.StateAwaitingSpeech
		c.sessions.Put(sess)
		slog.Info("Controller.ProcessSpeech: no results", "callSID", callSID, "query", parsed.Describe())
		described := parsed.Describe()
		if described == "" {
			described = "that request"
		}
		reply := &Reply{RedirectTo: TurnVoice}
		return reply.say(fmt.Sprintf("Sorry, I couldn't find parts for %s. Please try again.", described))
	}

	sess.State = models.StateAwaitingChoice
	c.sessions.Put(sess)
	slog.Info("Controller.ProcessSpeech: presenting results", "callSID", callSID, "results", len(results), "presented", len(top))

	reply := &Reply{}
	reply.say(fmt.Sprintf("I found %d items for %s.", len(results), vehiclePhrase(parsed)))
	for i, it := range top {
		reply.say(fmt.Sprintf("Press %d to add %s priced at %s dollars to your cart.", i+1, it.Title, it.Price.StringFixed(2)))
	}
	reply.say(menuSuffix)
	reply.GatherDigits = &DigitGather{Action: TurnHandleChoice, NumDigits: 1, Timeout: DigitGatherTimeout}
	return reply
}

// HandleChoice handles a digit turn: 0 ends the call, 9 reads the quote,
// digits 1..len(results) add an item to the cart, anything else restarts the
// flow. Expired or unknown sessions restart the flow as well; nothing here
// is fatal.
func (c *Controller) HandleChoice(ctx context.Context, callSID, digit string) *Reply {
	slog.Debug("Controller.HandleChoice: choice turn", "callSID", callSID, "digit", digit)

	sess, ok := c.sessions.Get(callSID)
	if !ok || sess.LastResults == nil {
		slog.Info("Controller.HandleChoice: session missing or has no results", "callSID", callSID)
		reply := &Reply{RedirectTo: TurnVoice}
		return reply.say(expiredMessage)
	}

	switch digit {
	case "0":
		return c.endCall(sess)
	case "9":
		return c.quote(sess)
	}

	if idx, err := strconv.Atoi(digit); err == nil && idx >= 1 && idx <= len(sess.LastResults) {
		return c.addToCart(sess, idx)
	}

	slog.Info("Controller.HandleChoice: invalid choice", "callSID", callSID, "digit", digit)
	sess.State = models.StateGreeting
	c.sessions.Put(sess)
	reply := &Reply{RedirectTo: TurnVoice}
	return reply.say(invalidMessage)
}

// endCall terminates the call on digit 0 and deletes the session.
func (c *Controller) endCall(sess *models.CallSession) *Reply {
	slog.Info("Controller.endCall: caller ended call", "callSID", sess.CallSID, "cart_items", len(sess.Cart))
	sess.State = models.StateTerminated
	c.sessions.Delete(sess.CallSID)
	reply := &Reply{Hangup: true}
	return reply.say(goodbyeMessage)
}

// quote handles digit 9. A non-empty cart is summed, read back, recorded,
// and the call ends; an empty cart re-presents the stored results without a
// second catalog lookup and keeps the session alive.
func (c *Controller) quote(sess *models.CallSession) *Reply {
	if len(sess.Cart) == 0 {
		slog.Info("Controller.quote: empty cart", "callSID", sess.CallSID)
		reply := &Reply{}
		reply.say(emptyCartMessage)
		c.presentStoredResults(sess, reply)
		reply.GatherDigits = &DigitGather{Action: TurnHandleChoice, NumDigits: 1, Timeout: DigitGatherTimeout}
		c.sessions.Put(sess)
		return reply
	}

	total := decimal.Zero
	for _, it := range sess.Cart {
		total = total.Add(it.Price)
	}
	totalStr := total.Round(2).StringFixed(2)

	if err := c.quotes.AddQuote(models.Quote{
		CallSID: sess.CallSID,
		Items:   len(sess.Cart),
		Total:   totalStr,
		Time:    time.Now().Unix(),
	}); err != nil {
		// The caller still gets their quote; only the log entry is lost.
		slog.Error("Controller.quote: failed to record quote", "error", err, "callSID", sess.CallSID)
	}

	slog.Info("Controller.quote: quote completed", "callSID", sess.CallSID, "items", len(sess.Cart), "total", totalStr)
	sess.State = models.StateTerminated
	c.sessions.Delete(sess.CallSID)
	reply := &Reply{Hangup: true}
	return reply.say(fmt.Sprintf("Your cart has %d items. Total is %s dollars. We will email your quote. Goodbye.", len(sess.Cart), totalStr))
}

// addToCart appends the selected result to the cart and re-reads the menu.
func (c *Controller) addToCart(sess *models.CallSession, idx int) *Reply {
	it := sess.LastResults[idx-1]
	sess.Cart = append(sess.Cart, it)
	sess.State = models.StateAwaitingChoice
	c.sessions.Put(sess)
	slog.Info("Controller.addToCart: item added", "callSID", sess.CallSID, "title", it.Title, "cart_items", len(sess.Cart))

	reply := &Reply{}
	reply.say(fmt.Sprintf("%s added to cart.", it.Title))
	c.presentStoredResults(sess, reply)
	reply.GatherDigits = &DigitGather{Action: TurnHandleChoice, NumDigits: 1, Timeout: DigitGatherTimeout}
	return reply
}

// presentStoredResults re-reads the stored result menu onto the reply.
func (c *Controller) presentStoredResults(sess *models.CallSession, reply *Reply) {
	for i, it := range sess.LastResults {
		reply.say(fmt.Sprintf("Press %d to add %s.", i+1, it.Title))
	}
	reply.say(menuSuffix)
}

// ParseAndSearch backs the local JSON API: extract fields from a transcript
// and filter the catalog, without touching any call session. Extraction
// failures degrade to the empty query exactly as they do on a voice turn.
func (c *Controller) ParseAndSearch(ctx context.Context, transcript string) (models.ParsedQuery, []models.Item) {
	parsed := c.extractQuery(ctx, transcript)
	results := catalog.Search(parsed.Year, parsed.Make, parsed.Model, parsed.Item, c.items)
	slog.Debug("Controller.ParseAndSearch: search complete", "query", parsed.Describe(), "results", len(results))
	return parsed, results
}

// extractQuery runs the external extractor with a safe empty-query fallback.
// Extraction failures are logged and degrade to no results; they must never
// escape to the caller as an error.
func (c *Controller) extractQuery(ctx context.Context, speech string) models.ParsedQuery {
	if c.extractor == nil || strings.TrimSpace(speech) == "" {
		return models.ParsedQuery{}
	}
	parsed, err := c.extractor.Extract(ctx, speech)
	if err != nil {
		slog.Warn("Controller.extractQuery: extraction failed, using empty query", "error", err)
		return models.ParsedQuery{}
	}
	return parsed
}

// vehiclePhrase renders the vehicle part of a query for narration, falling
// back to the whole query when no vehicle fields were extracted.
func vehiclePhrase(q models.ParsedQuery) string {
	parts := make([]string, 0, 3)
	for _, f := range []string{q.Year, q.Make, q.Model} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	if len(parts) == 0 {
		if q.Item != "" {
			return q.Item
		}
		return "your search"
	}
	return strings.Join(parts, " ")
}
