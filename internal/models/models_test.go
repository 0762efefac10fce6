package models

import (
	"encoding/json"
	"testing"
)

func TestParsedQuery_IsEmpty(t *testing.T) {
	if !(ParsedQuery{}).IsEmpty() {
		t.Error("zero value should be empty")
	}
	if !(ParsedQuery{Extras: []string{"front"}}).IsEmpty() {
		t.Error("extras alone do not make a query non-empty")
	}
	if (ParsedQuery{Make: "Toyota"}).IsEmpty() {
		t.Error("query with a make should not be empty")
	}
}

func TestParsedQuery_Describe(t *testing.T) {
	cases := []struct {
		query ParsedQuery
		want  string
	}{
		{ParsedQuery{Year: "2018", Make: "Toyota", Model: "Camry", Item: "brake pads"}, "2018 Toyota Camry brake pads"},
		{ParsedQuery{Make: "Honda", Item: "oil filter"}, "Honda oil filter"},
		{ParsedQuery{}, ""},
	}
	for _, c := range cases {
		if got := c.query.Describe(); got != c.want {
			t.Errorf("Describe(%+v) = %q, want %q", c.query, got, c.want)
		}
	}
}

func TestItem_UnmarshalPrice(t *testing.T) {
	data := `{"title":"Brake Pad Set","partType":"brake pads","price":49.99,"fits":[]}`
	var it Item
	if err := json.Unmarshal([]byte(data), &it); err != nil {
		t.Fatalf("failed to unmarshal item: %v", err)
	}
	if it.Price.StringFixed(2) != "49.99" {
		t.Errorf("expected price 49.99, got %s", it.Price)
	}
}

func TestNewCallSession(t *testing.T) {
	sess := NewCallSession("CA1")
	if sess.CallSID != "CA1" {
		t.Errorf("expected call SID CA1, got %s", sess.CallSID)
	}
	if sess.State != StateGreeting {
		t.Errorf("expected initial state %s, got %s", StateGreeting, sess.State)
	}
	if sess.Cart == nil || len(sess.Cart) != 0 {
		t.Errorf("expected an empty cart, got %+v", sess.Cart)
	}
}

func TestAPIResponseConstructors(t *testing.T) {
	ok := Success(map[string]int{"n": 1})
	if ok.Status != string(APIStatusOK) || ok.Result == nil {
		t.Errorf("unexpected success response: %+v", ok)
	}

	withMsg := SuccessWithMessage("done", nil)
	if withMsg.Status != string(APIStatusOK) || withMsg.Message != "done" {
		t.Errorf("unexpected success-with-message response: %+v", withMsg)
	}

	errResp := Error("boom")
	if errResp.Status != string(APIStatusError) || errResp.Message != "boom" {
		t.Errorf("unexpected error response: %+v", errResp)
	}
}
