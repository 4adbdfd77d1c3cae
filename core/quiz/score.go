package quiz

import (
	"math"

	"github.com/yedirenklicinar/akademi/core/exam"
)

// Score grades a set of answers (question id -> chosen option id) against the
// test's questions and returns a 0..100 percentage, rounded half away from
// zero. A test with no questions scores 0.
func Score(t exam.Test, answers map[int]int) int {
	total := len(t.Questions)
	if total == 0 {
		return 0
	}

	var correct int
	for _, q := range t.Questions {
		opt, ok := q.CorrectOption()
		if !ok {
			continue
		}
		if chosen, answered := answers[q.ID]; answered && chosen == opt.ID {
			correct++
		}
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}
