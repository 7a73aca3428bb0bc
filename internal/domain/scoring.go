package domain

import "math"

// PassThreshold is the percentage a session needs to pass.
const PassThreshold = 90.0

// Score compares the recorded selections against each question's correct
// answer. Questions without a selection count as incorrect.
func Score(questions []Question, selections map[string]string) SessionResult {
	var res SessionResult
	for _, q := range questions {
		if IsCorrect(q, selections[q.ID]) {
			res.CorrectCount++
		} else {
			res.IncorrectCount++
		}
	}
	if len(questions) > 0 {
		res.Score = Percent(res.CorrectCount, len(questions))
	}
	res.Passed = res.Score >= PassThreshold
	return res
}

// Percent returns part/total as a percentage. Multiplying first keeps whole
// results such as 90 exact.
func Percent(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part*100) / float64(total)
}

// IsCorrect reports whether answerID is the question's correct answer.
// An empty selection is never correct.
func IsCorrect(q Question, answerID string) bool {
	if answerID == "" {
		return false
	}
	correct, ok := q.CorrectAnswerID()
	return ok && correct == answerID
}

// RoundPercent rounds a percentage half up. The value is first snapped to
// six decimals so 87.49999999999999 from float division rounds like 87.5.
func RoundPercent(v float64) int {
	snapped := math.Round(v*1e6) / 1e6
	return int(math.Floor(snapped + 0.5))
}

// ScorePercent is the rounded score used for display.
func (s QuizSession) ScorePercent() int {
	return RoundPercent(s.Score)
}
