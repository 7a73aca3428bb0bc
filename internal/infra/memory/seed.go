package memory

import (
	"fmt"

	"footy-quiz-service/internal/domain"
)

type seedQuestion struct {
	text    string
	answers []string
	correct int
}

var seedCategories = []struct {
	category  domain.Category
	questions []seedQuestion
}{
	{
		category: domain.Category{ID: "offside", Name: "Offside", Description: "Law 11 and its interpretations."},
		questions: []seedQuestion{
			{"Can a player be offside directly from a goal kick?", []string{"Yes", "No", "Only in the penalty area", "Only if the ball is headed"}, 1},
			{"Is being in an offside position an offence in itself?", []string{"Yes", "No"}, 1},
			{"Which body part is not considered when judging offside position?", []string{"Head", "Feet", "Arms and hands", "Torso"}, 2},
			{"What is the restart for an offside offence?", []string{"Direct free kick", "Indirect free kick", "Dropped ball", "Throw-in"}, 1},
		},
	},
	{
		category: domain.Category{ID: "fouls", Name: "Fouls and Misconduct", Description: "Law 12: fouls, cautions and sending-offs."},
		questions: []seedQuestion{
			{"Denying an obvious goal-scoring opportunity by handball is punished with?", []string{"Caution", "Sending-off", "No sanction", "Indirect free kick only"}, 1},
			{"How many cautions in one match lead to a sending-off?", []string{"One", "Two", "Three"}, 1},
			{"A careless tackle inside the defender's own penalty area results in?", []string{"Penalty kick", "Indirect free kick", "Corner kick", "Goal kick"}, 0},
			{"Which colour card is shown for a caution?", []string{"Red", "Yellow", "Blue"}, 1},
		},
	},
	{
		category: domain.Category{ID: "restarts", Name: "Restarts", Description: "Kick-offs, throw-ins, corners and goal kicks."},
		questions: []seedQuestion{
			{"Can a goal be scored directly from a throw-in?", []string{"Yes", "No"}, 1},
			{"How far must opponents be from the ball at a corner kick?", []string{"5 m", "9.15 m", "11 m", "16.5 m"}, 1},
			{"Can a goal be scored directly from the kick-off?", []string{"Yes", "No"}, 0},
			{"When is the ball in play at a goal kick?", []string{"When it leaves the penalty area", "When it is kicked and clearly moves", "When another player touches it"}, 1},
		},
	},
}

// Catalog is a complete set of quiz content.
type Catalog struct {
	Categories []domain.Category
	Questions  []domain.Question
	Quizzes    []domain.Quiz
}

// SampleCatalog returns football rules questions with stable ids, one quiz
// per category plus one drawing from all of them.
func SampleCatalog() Catalog {
	var cat Catalog
	ids := make([]string, 0, len(seedCategories))
	for _, sc := range seedCategories {
		c := sc.category
		cat.Categories = append(cat.Categories, c)
		ids = append(ids, c.ID)
		for i, sq := range sc.questions {
			q := domain.Question{ID: fmt.Sprintf("%s-q%d", c.ID, i+1), CategoryID: c.ID, Text: sq.text}
			for j, text := range sq.answers {
				q.Answers = append(q.Answers, domain.Answer{
					ID:        fmt.Sprintf("%s-a%d", q.ID, j+1),
					Text:      text,
					IsCorrect: j == sq.correct,
				})
			}
			cat.Questions = append(cat.Questions, q)
		}
		cat.Quizzes = append(cat.Quizzes, domain.Quiz{
			ID:            c.ID + "-basics",
			Name:          c.Name + " Basics",
			Description:   c.Description,
			CategoryIDs:   []string{c.ID},
			QuestionCount: domain.DefaultQuestionCount,
			Difficulty:    "beginner",
		})
	}
	cat.Quizzes = append(cat.Quizzes, domain.Quiz{
		ID:            "laws-of-the-game",
		Name:          "Laws of the Game",
		Description:   "Questions from every category.",
		CategoryIDs:   ids,
		QuestionCount: domain.DefaultQuestionCount,
		Difficulty:    "mixed",
	})
	return cat
}

// Import loads a catalog into the backend.
func (b *Backend) Import(cat Catalog) {
	for _, c := range cat.Categories {
		b.AddCategory(c)
	}
	for _, q := range cat.Questions {
		b.AddQuestion(q)
	}
	for _, q := range cat.Quizzes {
		b.AddQuiz(q)
	}
}

// SeedFootball loads the sample catalog.
func SeedFootball(b *Backend) {
	b.Import(SampleCatalog())
}
