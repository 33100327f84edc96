package grading

// Question is the grading view of an authored question.
type Question struct {
	ID          uint
	Kind        QuestionKind
	Points      int
	AnswerKey   string
	Explanation string
}

// QuestionResult is one entry of the review payload.
type QuestionResult struct {
	QuestionID    uint         `json:"questionId"`
	Kind          QuestionKind `json:"questionType"`
	Points        int          `json:"points"`
	Awarded       int          `json:"awarded"`
	Correct       bool         `json:"isCorrect"`
	Answer        interface{}  `json:"answer"`
	CorrectAnswer string       `json:"correctAnswer"`
	Explanation   string       `json:"explanation,omitempty"`
	Anomaly       string       `json:"anomaly,omitempty"`
}

type Breakdown struct {
	Results  []QuestionResult `json:"results"`
	Score    int              `json:"score"`
	MaxScore int              `json:"maxScore"`
}

func (b Breakdown) Percentage() float64 {
	return Percentage(b.Score, b.MaxScore)
}

// Percentage is 100*score/maxScore, or 0 when maxScore is not positive.
func Percentage(score, maxScore int) float64 {
	if maxScore <= 0 {
		return 0
	}
	return float64(score) * 100 / float64(maxScore)
}

// Grade scores answers against questions in question order. Unanswered questions
// still count toward MaxScore. No partial credit.
func Grade(questions []Question, answers map[uint]interface{}) Breakdown {
	b := Breakdown{Results: make([]QuestionResult, 0, len(questions))}

	for _, q := range questions {
		b.MaxScore += q.Points

		var raw interface{} = NoAnswer()
		answer, answered := answers[q.ID]
		if answered {
			raw = answer
		}

		res := QuestionResult{
			QuestionID:    q.ID,
			Kind:          q.Kind,
			Points:        q.Points,
			CorrectAnswer: q.AnswerKey,
			Explanation:   q.Explanation,
		}
		if answered {
			res.Answer = answer
		}

		correct, err := Evaluate(raw, q.AnswerKey, q.Kind)
		if err != nil {
			res.Anomaly = err.Error()
		}
		if correct {
			res.Correct = true
			res.Awarded = q.Points
			b.Score += q.Points
		}
		b.Results = append(b.Results, res)
	}

	return b
}
