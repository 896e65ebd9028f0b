package exam

import "github.com/shopspring/decimal"

// Tally are the aggregate counts of a session's answer ledger.
type Tally struct {
	Correct    int
	Incorrect  int
	Unanswered int
}

func tallyAnswers(questionCount int, answers []Answer) Tally {
	var t Tally
	for _, a := range answers {
		if a.IsCorrect {
			t.Correct++
		} else {
			t.Incorrect++
		}
	}
	t.Unanswered = questionCount - t.Correct - t.Incorrect
	return t
}

// computeScore applies the penalty formula in decimal arithmetic:
// score = correct - incorrect*penalty, rounded half up to 2 decimal
// places. Unanswered questions neither add nor subtract.
func computeScore(t Tally, penalty decimal.Decimal) decimal.Decimal {
	raw := decimal.NewFromInt(int64(t.Correct)).
		Sub(decimal.NewFromInt(int64(t.Incorrect)).Mul(penalty))
	return roundHalfUp2(raw)
}

// roundHalfUp2 rounds to two decimals with ties toward +inf. Decimal's
// Round is half away from zero, which flips midpoints on negative
// scores (-0.335 must round to -0.33, not -0.34).
func roundHalfUp2(d decimal.Decimal) decimal.Decimal {
	return d.Shift(2).Add(decimal.New(5, -1)).Floor().Shift(-2)
}
