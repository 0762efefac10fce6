// Package models defines the core data structures for PartsLine.
//
// It includes the catalog item and fitment types, the parsed query produced
// by speech extraction, and the quote records shared across modules.
package models

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

// Error variables for better error handling and testability
var (
	ErrMissingTranscript = errors.New("transcript required")
)

// Fitment describes one vehicle a catalog item is compatible with.
// Year is kept as a string so it compares directly against extracted speech.
type Fitment struct {
	Year  string `json:"year"`
	Make  string `json:"make"`
	Model string `json:"model"`
}

// Item represents one product in the catalog. Items carry no identity beyond
// their position in a search result; the caller addresses them by digit.
type Item struct {
	Title    string          `json:"title"`
	PartType string          `json:"partType"`
	Price    decimal.Decimal `json:"price"`
	Fits     []Fitment       `json:"fits"`
}

// ParsedQuery holds the structured search fields extracted from one
// utterance. The zero value is the safe all-empty default substituted when
// extraction fails; every empty field acts as a wildcard during search.
type ParsedQuery struct {
	Year   string   `json:"year"`
	Make   string   `json:"make"`
	Model  string   `json:"model"`
	Item   string   `json:"item"`
	Extras []string `json:"extras"`
}

// IsEmpty reports whether no search field was extracted at all.
func (q ParsedQuery) IsEmpty() bool {
	return q.Year == "" && q.Make == "" && q.Model == "" && q.Item == ""
}

// Describe renders the query fields as a single spoken phrase, skipping
// empty fields ("2018 Toyota Camry brake pads").
func (q ParsedQuery) Describe() string {
	parts := make([]string, 0, 4)
	for _, f := range []string{q.Year, q.Make, q.Model, q.Item} {
		if f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " ")
}

// Quote records the outcome of a completed call: how many items were in the
// cart and the rounded total that was read back to the caller.
type Quote struct {
	CallSID string `json:"call_sid"`
	Items   int    `json:"items"`
	Total   string `json:"total"`
	Time    int64  `json:"time"`
}

// API Response types for consistent JSON responses

// APIStatus represents the status of an API response.
type APIStatus string

const (
	// APIStatusOK indicates an API request completed successfully.
	APIStatusOK APIStatus = "ok"
	// APIStatusError indicates an API request failed with an error.
	APIStatusError APIStatus = "error"
)

// APIResponse represents a standard API response with a status and optional data.
type APIResponse struct {
	Status  string      `json:"status"`            // status of the API response
	Message string      `json:"message,omitempty"` // optional message for error responses or additional info
	Result  interface{} `json:"result,omitempty"`  // optional result data for successful responses
}

// Success creates a successful API response with optional result data.
func Success(result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Result: result}
}

// SuccessWithMessage creates a successful API response with a message and optional result data.
func SuccessWithMessage(message string, result interface{}) APIResponse {
	return APIResponse{Status: string(APIStatusOK), Message: message, Result: result}
}

// Error creates an error API response with the given message.
func Error(message string) APIResponse {
	return APIResponse{Status: string(APIStatusError), Message: message}
}
