package models

// Neighbor is a single kNN hit: a word ranked by closeness to the day's
// answer. Score is on whatever scale the vector store ranks with; it is not
// comparable to the cosine scorer's output.
type Neighbor struct {
	Word  string  `json:"word"`
	Score float64 `json:"score"`
}
