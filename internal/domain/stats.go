package domain

// Stats summarizes a participant's trial log. Answered + Unanswered always
// equals Total; Correct + Incorrect never exceeds Answered.
type Stats struct {
	Total      int `json:"total"`
	Answered   int `json:"answered"`
	Unanswered int `json:"unanswered"`
	Correct    int `json:"correct"`
	Incorrect  int `json:"incorrect"`
}

// Payoff returns the round payoff derived from the counters.
func (s Stats) Payoff() int {
	return s.Correct - s.Incorrect
}
