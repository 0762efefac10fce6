package flow

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/partsline/partsline/internal/models"
	"github.com/partsline/partsline/internal/session"
	"github.com/partsline/partsline/internal/store"
)

// stubExtractor implements extract.Extractor with a canned result.
type stubExtractor struct {
	parsed models.ParsedQuery
	err    error
}

func (s *stubExtractor) Extract(ctx context.Context, transcript string) (models.ParsedQuery, error) {
	return s.parsed, s.err
}

func testItems() []models.Item {
	return []models.Item{
		{
			Title:    "Brake Pad Set",
			PartType: "brake pads",
			Price:    decimal.RequireFromString("49.99"),
			Fits:     []models.Fitment{{Year: "2018", Make: "Toyota", Model: "Camry"}},
		},
		{
			Title:    "Engine Oil Filter",
			PartType: "oil filter",
			Price:    decimal.RequireFromString("12.25"),
			Fits:     []models.Fitment{{Year: "2018", Make: "Toyota", Model: "Camry"}},
		},
	}
}

func newTestController(items []models.Item, ex *stubExtractor) (*Controller, session.Store, *store.InMemoryStore) {
	sessions := session.NewCacheStore()
	quotes := store.NewInMemoryStore()
	if ex == nil {
		return NewController(items, sessions, nil, quotes), sessions, quotes
	}
	return NewController(items, sessions, ex, quotes), sessions, quotes
}

func assertSays(t *testing.T, reply *Reply, substrings ...string) {
	t.Helper()
	joined := strings.Join(reply.Say, "\n")
	for _, sub := range substrings {
		if !strings.Contains(joined, sub) {
			t.Errorf("expected narration to contain %q, got:\n%s", sub, joined)
		}
	}
}

func camryQuery() models.ParsedQuery {
	return models.ParsedQuery{Year: "2018", Make: "Toyota", Model: "Camry", Item: "brake pads"}
}

func TestGreeting_GathersSpeech(t *testing.T) {
	ctrl, sessions, _ := newTestController(testItems(), nil)

	reply := ctrl.Greeting("CA1")

	if reply.Actions() != 1 {
		t.Fatalf("expected exactly one terminal action, got %d", reply.Actions())
	}
	g := reply.GatherSpeech
	if g == nil {
		t.Fatal("expected a speech gather")
	}
	if g.Action != TurnProcessSpeech {
		t.Errorf("expected gather action %s, got %s", TurnProcessSpeech, g.Action)
	}
	if g.FallbackURL != TurnVoice {
		t.Errorf("expected silence fallback to %s, got %s", TurnVoice, g.FallbackURL)
	}
	if !strings.Contains(g.Prompt, "Welcome to Auto Parts Finder") {
		t.Errorf("unexpected greeting prompt: %q", g.Prompt)
	}

	sess, ok := sessions.Get("CA1")
	if !ok {
		t.Fatal("expected session created on greeting turn")
	}
	if sess.State != models.StateAwaitingSpeech {
		t.Errorf("expected state %s, got %s", models.StateAwaitingSpeech, sess.State)
	}
}

func TestProcessSpeech_PresentsResults(t *testing.T) {
	ctrl, sessions, _ := newTestController(testItems(), &stubExtractor{parsed: camryQuery()})

	reply := ctrl.ProcessSpeech(context.Background(), "CA1", "2018 Toyota Camry brake pads")

	if reply.GatherDigits == nil {
		t.Fatal("expected a digit gather")
	}
	if reply.GatherDigits.Action != TurnHandleChoice || reply.GatherDigits.NumDigits != 1 {
		t.Errorf("unexpected digit gather: %+v", reply.GatherDigits)
	}
	assertSays(t, reply,
		"I found 1 items for 2018 Toyota Camry.",
		"Press 1 to add Brake Pad Set priced at 49.99 dollars to your cart.",
		"Press 9 to hear your cart and get a quote. Press 0 to end this call.")

	sess, ok := sessions.Get("CA1")
	if !ok {
		t.Fatal("expected session")
	}
	if sess.State != models.StateAwaitingChoice {
		t.Errorf("expected state %s, got %s", models.StateAwaitingChoice, sess.State)
	}
	if len(sess.LastResults) != 1 || sess.LastResults[0].Title != "Brake Pad Set" {
		t.Errorf("unexpected stored results: %+v", sess.LastResults)
	}
	if sess.LastQuery == nil || sess.LastQuery.Item != "brake pads" {
		t.Errorf("unexpected stored query: %+v", sess.LastQuery)
	}
}

func TestProcessSpeech_CapsResultsAtFive(t *testing.T) {
	items := make([]models.Item, 0, 7)
	for _, title := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		items = append(items, models.Item{
			Title:    title + " Filter",
			PartType: "oil filter",
			Price:    decimal.RequireFromString("10.00"),
			Fits:     []models.Fitment{{Year: "2018", Make: "Toyota", Model: "Camry"}},
		})
	}
	ctrl, sessions, _ := newTestController(items, &stubExtractor{parsed: models.ParsedQuery{Item: "filter"}})

	reply := ctrl.ProcessSpeech(context.Background(), "CA1", "filters")

	assertSays(t, reply, "I found 7 items")
	sess, _ := sessions.Get("CA1")
	if len(sess.LastResults) != MaxResults {
		t.Errorf("expected stored results capped at %d, got %d", MaxResults, len(sess.LastResults))
	}
}

func TestProcessSpeech_NoResultsLoopsToGreeting(t *testing.T) {
	ctrl, sessions, _ := newTestController(testItems(), &stubExtractor{
		parsed: models.ParsedQuery{Year: "1999", Make: "Ford", Model: "Pinto", Item: "flux capacitor"},
	})

	reply := ctrl.ProcessSpeech(context.Background(), "CA1", "something unfindable")

	if reply.RedirectTo != TurnVoice {
		t.Errorf("expected redirect to %s, got %q", TurnVoice, reply.RedirectTo)
	}
	assertSays(t, reply, "Sorry, I couldn't find parts for 1999 Ford Pinto flux capacitor. Please try again.")

	sess, ok := sessions.Get("CA1")
	if !ok {
		t.Fatal("expected session to survive a no-results turn")
	}
	if sess.State != models.StateAwaitingSpeech {
		t.Errorf("expected state %s, got %s", models.StateAwaitingSpeech, sess.State)
	}
}

func TestProcessSpeech_ExtractionFailureDegradesToEmptyQuery(t *testing.T) {
	ctrl, _, _ := newTestController(testItems(), &stubExtractor{err: errors.New("service down")})

	reply := ctrl.ProcessSpeech(context.Background(), "CA1", "mumble")

	// the empty query is all wildcards, so the caller hears the catalog
	// rather than a spoken error
	if reply.GatherDigits == nil {
		t.Fatal("expected a digit gather, extraction failure must not break the turn")
	}
	assertSays(t, reply, "I found 2 items")
}

func TestHandleChoice_AddsSelectedItemToCart(t *testing.T) {
	ctrl, sessions, _ := newTestController(testItems(), &stubExtractor{parsed: models.ParsedQuery{Year: "2018"}})
	ctrl.ProcessSpeech(context.Background(), "CA1", "anything for a 2018")

	reply := ctrl.HandleChoice(context.Background(), "CA1", "2")

	assertSays(t, reply, "Engine Oil Filter added to cart.", "Press 1 to add Brake Pad Set.")
	if reply.GatherDigits == nil {
		t.Fatal("expected another digit gather")
	}

	sess, _ := sessions.Get("CA1")
	if len(sess.Cart) != 1 {
		t.Fatalf("expected cart length 1, got %d", len(sess.Cart))
	}
	if sess.Cart[0].Title != "Engine Oil Filter" {
		t.Errorf("digit 2 should add the second result, got %q", sess.Cart[0].Title)
	}
}

func TestHandleChoice_QuoteRoundsTotal(t *testing.T) {
	items := []models.Item{
		{Title: "Part A", PartType: "a", Price: decimal.RequireFromString("10.00"),
			Fits: []models.Fitment{{Year: "2018", Make: "Toyota", Model: "Camry"}}},
		{Title: "Part B", PartType: "b", Price: decimal.RequireFromString("5.005"),
			Fits: []models.Fitment{{Year: "2018", Make: "Toyota", Model: "Camry"}}},
	}
	ctrl, sessions, quotes := newTestController(items, &stubExtractor{parsed: models.ParsedQuery{Year: "2018"}})
	ctrl.ProcessSpeech(context.Background(), "CA1", "parts")
	ctrl.HandleChoice(context.Background(), "CA1", "1")
	ctrl.HandleChoice(context.Background(), "CA1", "2")

	reply := ctrl.HandleChoice(context.Background(), "CA1", "9")

	if !reply.Hangup {
		t.Error("expected hangup after a completed quote")
	}
	// sum first, then round half away from zero to 2 decimals
	assertSays(t, reply, "Your cart has 2 items. Total is 15.01 dollars.")

	if _, ok := sessions.Get("CA1"); ok {
		t.Error("expected session deleted after a completed quote")
	}

	recorded, err := quotes.GetQuotes()
	if err != nil {
		t.Fatalf("failed to get quotes: %v", err)
	}
	if len(recorded) != 1 {
		t.Fatalf("expected 1 recorded quote, got %d", len(recorded))
	}
	if recorded[0].CallSID != "CA1" || recorded[0].Items != 2 || recorded[0].Total != "15.01" {
		t.Errorf("unexpected quote record: %+v", recorded[0])
	}
}

func TestHandleChoice_EmptyCartQuoteKeepsSession(t *testing.T) {
	ctrl, sessions, quotes := newTestController(testItems(), &stubExtractor{parsed: camryQuery()})
	ctrl.ProcessSpeech(context.Background(), "CA1", "2018 Toyota Camry brake pads")

	reply := ctrl.HandleChoice(context.Background(), "CA1", "9")

	assertSays(t, reply, "Your cart is empty.", "Press 1 to add Brake Pad Set.")
	if reply.GatherDigits == nil {
		t.Fatal("expected the stored results to be re-presented with a digit gather")
	}
	if _, ok := sessions.Get("CA1"); !ok {
		t.Error("empty-cart quote must not delete the session")
	}
	if recorded, _ := quotes.GetQuotes(); len(recorded) != 0 {
		t.Errorf("empty-cart quote must not be recorded, got %d", len(recorded))
	}
}

func TestHandleChoice_ZeroEndsCallAndDeletesSession(t *testing.T) {
	ctrl, sessions, _ := newTestController(testItems(), &stubExtractor{parsed: camryQuery()})
	ctrl.ProcessSpeech(context.Background(), "CA1", "2018 Toyota Camry brake pads")

	reply := ctrl.HandleChoice(context.Background(), "CA1", "0")

	if !reply.Hangup {
		t.Error("expected hangup on digit 0")
	}
	assertSays(t, reply, "Thank you for calling. Goodbye.")
	if _, ok := sessions.Get("CA1"); ok {
		t.Error("expected session deleted on digit 0")
	}

	// a later turn for the same call SID is treated as expired
	followup := ctrl.HandleChoice(context.Background(), "CA1", "1")
	if followup.RedirectTo != TurnVoice {
		t.Errorf("expected expired-session redirect, got %+v", followup)
	}
	assertSays(t, followup, "Session expired. Let us start over.")
}

func TestHandleChoice_InvalidDigitRestartsFlow(t *testing.T) {
	ctrl, sessions, _ := newTestController(testItems(), &stubExtractor{parsed: camryQuery()})
	ctrl.ProcessSpeech(context.Background(), "CA1", "2018 Toyota Camry brake pads")

	for _, digit := range []string{"7", "2", "*", "", "abc"} {
		reply := ctrl.HandleChoice(context.Background(), "CA1", digit)
		if reply.RedirectTo != TurnVoice {
			t.Errorf("digit %q: expected redirect to %s, got %+v", digit, TurnVoice, reply)
		}
		assertSays(t, reply, "Sorry, invalid choice. Redirecting to start.")
	}

	sess, ok := sessions.Get("CA1")
	if !ok {
		t.Fatal("invalid choice must not delete the session")
	}
	if len(sess.Cart) != 0 {
		t.Errorf("invalid choices must not mutate the cart, got %d items", len(sess.Cart))
	}
}

func TestHandleChoice_MissingSessionRedirects(t *testing.T) {
	ctrl, _, _ := newTestController(testItems(), nil)

	reply := ctrl.HandleChoice(context.Background(), "CA-unknown", "1")

	if reply.RedirectTo != TurnVoice {
		t.Errorf("expected redirect to %s, got %+v", TurnVoice, reply)
	}
	assertSays(t, reply, "Session expired. Let us start over.")
}

func TestSessionIsolationAcrossCalls(t *testing.T) {
	ctrl, sessions, _ := newTestController(testItems(), &stubExtractor{parsed: camryQuery()})

	ctrl.ProcessSpeech(context.Background(), "CA-A", "2018 Toyota Camry brake pads")
	ctrl.ProcessSpeech(context.Background(), "CA-B", "2018 Toyota Camry brake pads")
	ctrl.HandleChoice(context.Background(), "CA-A", "1")

	sessA, _ := sessions.Get("CA-A")
	sessB, _ := sessions.Get("CA-B")
	if len(sessA.Cart) != 1 {
		t.Errorf("expected 1 item in call A's cart, got %d", len(sessA.Cart))
	}
	if len(sessB.Cart) != 0 {
		t.Errorf("call A's cart mutation leaked into call B: %+v", sessB.Cart)
	}
}

func TestParseAndSearch(t *testing.T) {
	ctrl, _, _ := newTestController(testItems(), &stubExtractor{parsed: camryQuery()})

	parsed, results := ctrl.ParseAndSearch(context.Background(), "2018 Toyota Camry brake pads")

	if parsed.Make != "Toyota" {
		t.Errorf("unexpected parsed query: %+v", parsed)
	}
	if len(results) != 1 || results[0].Title != "Brake Pad Set" {
		t.Errorf("unexpected results: %+v", results)
	}
}

func TestEndToEnd_CamryBrakePads(t *testing.T) {
	// utterance -> extraction -> filter -> one result offered on digit 1,
	// with 9 and 0 reserved for quote and hangup
	items := []models.Item{{
		Title:    "Brake Pad Set",
		PartType: "brake pads",
		Price:    decimal.RequireFromString("49.99"),
		Fits:     []models.Fitment{{Year: "2018", Make: "Toyota", Model: "Camry"}},
	}}
	ctrl, _, quotes := newTestController(items, &stubExtractor{parsed: camryQuery()})

	greeting := ctrl.Greeting("CA-e2e")
	if greeting.GatherSpeech == nil {
		t.Fatal("expected speech gather on greeting")
	}

	presented := ctrl.ProcessSpeech(context.Background(), "CA-e2e", "2018 Toyota Camry brake pads")
	assertSays(t, presented,
		"I found 1 items for 2018 Toyota Camry.",
		"Press 1 to add Brake Pad Set priced at 49.99 dollars to your cart.",
		"Press 9 to hear your cart and get a quote. Press 0 to end this call.")

	added := ctrl.HandleChoice(context.Background(), "CA-e2e", "1")
	assertSays(t, added, "Brake Pad Set added to cart.")

	quoted := ctrl.HandleChoice(context.Background(), "CA-e2e", "9")
	if !quoted.Hangup {
		t.Error("expected hangup after quote")
	}
	assertSays(t, quoted, "Your cart has 1 items. Total is 49.99 dollars.")

	recorded, _ := quotes.GetQuotes()
	if len(recorded) != 1 || recorded[0].Total != "49.99" {
		t.Errorf("unexpected quote log: %+v", recorded)
	}
}
