// Package models defines the shared data types for the daily-word service.
package models

// AnswerState is the in-process snapshot of the current day's answer.
// Vector is nil when the vector store has no entry for the answer; that is a
// valid state in which similarity queries are unanswerable but the answer
// itself is still served.
type AnswerState struct {
	Date   string    `json:"date"`
	Answer string    `json:"answer"`
	Vector []float32 `json:"-"`
}

// HasVector reports whether similarity queries can be answered for this state.
func (s AnswerState) HasVector() bool {
	return len(s.Vector) > 0
}
