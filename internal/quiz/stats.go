package quiz

import (
	"time"

	"quizgo/internal/models"
)

// StatsWindow is how many of the newest archives Stats inspects.
const StatsWindow = 10

type RecentQuiz struct {
	ResultFile  string    `json:"result_file"`
	Source      string    `json:"source"`
	GeneratedAt time.Time `json:"generated_at"`
	Questions   int       `json:"questions"`
	Difficulty  string    `json:"difficulty"`
	Mode        string    `json:"mode"`
}

type Stats struct {
	TotalQuizzes   int            `json:"total_quizzes"`
	TotalQuestions int            `json:"total_questions"`
	ByType         map[string]int `json:"by_type"`
	ByDifficulty   map[string]int `json:"by_difficulty"`
	ByMode         map[string]int `json:"by_mode"`
	Recent         []RecentQuiz   `json:"recent"`
}

// Stats aggregates the newest archives on disk.
func (s *Service) Stats() (*Stats, error) {
	names, err := s.archives.Names()
	if err != nil {
		return nil, err
	}
	recent, err := s.archives.Recent(StatsWindow)
	if err != nil {
		return nil, err
	}

	st := &Stats{
		TotalQuizzes: len(names),
		ByType:       map[string]int{},
		ByDifficulty: map[string]int{},
		ByMode:       map[string]int{},
		Recent:       []RecentQuiz{},
	}
	for _, na := range recent {
		a := na.Archive
		p := a.Parameters

		st.TotalQuestions += len(a.Questions)
		for _, q := range a.Questions {
			t := q.Type
			if t == "" {
				t = models.TypeMCQ
			}
			st.ByType[t]++
		}
		difficulty := p.Difficulty
		if difficulty == "" {
			difficulty = "Medium"
		}
		mode := p.Mode
		if mode == "" {
			mode = models.ModeMixed
		}
		st.ByDifficulty[difficulty]++
		st.ByMode[mode]++

		st.Recent = append(st.Recent, RecentQuiz{
			ResultFile:  na.Name,
			Source:      a.SourceDocumentName,
			GeneratedAt: a.GenerationTimestamp,
			Questions:   len(a.Questions),
			Difficulty:  difficulty,
			Mode:        mode,
		})
	}
	return st, nil
}
