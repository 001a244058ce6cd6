package ingest

// Result holds the outcome of an import.
type Result struct {
	SessionsReceived int `json:"sessions_received"`
	SessionsInserted int `json:"sessions_inserted"`
	SessionsSkipped  int `json:"sessions_skipped"`

	SetsReceived int `json:"sets_received"`
	SetsInserted int `json:"sets_inserted"`

	ExercisesCreated int `json:"exercises_created"`

	Message string `json:"message,omitempty"`
}
