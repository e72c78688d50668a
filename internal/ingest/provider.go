// Package ingest holds types shared by history importers.
package ingest

// Result holds the outcome of an import.
type Result struct {
	SessionsReceived int `json:"sessions_received"`
	SessionsInserted int `json:"sessions_inserted"`
	// SessionsSkipped counts sessions already imported earlier.
	SessionsSkipped int `json:"sessions_skipped"`

	SetsReceived int `json:"sets_received"`
	SetsInserted int `json:"sets_inserted"`

	Message string `json:"message,omitempty"`
}
