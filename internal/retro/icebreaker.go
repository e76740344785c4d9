package retro

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/aaronzipp/retroboard/internal/models"
)

// updateIcebreaker runs the icebreaker sub-machine:
//
//	idle --start--> answering --close--> closed
//	answering|closed --next--> answering (following question)
//	any --reset--> idle
//
// Only the creator drives the machine; anyone may answer while answering.
func (s *State) updateIcebreaker(actorID string, m IcebreakerUpdate) (Event, error) {
	ib := &s.icebreaker
	questions := s.cfg.IcebreakerQuestions

	if m.Action != IcebreakerAnswer && actorID != s.creatorID {
		return nil, fmt.Errorf("%w: only the creator runs the icebreaker", ErrForbidden)
	}

	switch m.Action {
	case IcebreakerStart:
		if len(questions) == 0 {
			return nil, fmt.Errorf("%w: no icebreaker questions configured", ErrPrecondition)
		}
		s.askQuestion(0)

	case IcebreakerAnswer:
		if ib.Phase != models.IcebreakerAnswering {
			return nil, fmt.Errorf("%w: icebreaker is not accepting answers", ErrPrecondition)
		}
		answer := strings.TrimSpace(m.Answer)
		if answer == "" {
			return nil, fmt.Errorf("%w: answer is required", ErrPrecondition)
		}
		if utf8.RuneCountInString(answer) > MaxAnswerRunes {
			return nil, fmt.Errorf("%w: answer longer than %d characters", ErrPrecondition, MaxAnswerRunes)
		}
		ib.Answers[actorID] = answer

	case IcebreakerClose:
		if ib.Phase != models.IcebreakerAnswering {
			return nil, fmt.Errorf("%w: icebreaker is not open", ErrPrecondition)
		}
		ib.Phase = models.IcebreakerClosed

	case IcebreakerNext:
		if ib.Phase == models.IcebreakerIdle {
			return nil, fmt.Errorf("%w: icebreaker has not started", ErrPrecondition)
		}
		next := ib.QuestionIndex + 1
		if next >= len(questions) {
			return nil, fmt.Errorf("%w: no more questions", ErrPrecondition)
		}
		s.askQuestion(next)

	case IcebreakerReset:
		s.icebreaker = models.IcebreakerState{
			Phase:   models.IcebreakerIdle,
			Answers: make(map[string]string),
		}

	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrPrecondition, m.Action)
	}
	return IcebreakerChanged{Icebreaker: s.icebreakerCopy()}, nil
}

func (s *State) askQuestion(i int) {
	s.icebreaker = models.IcebreakerState{
		QuestionIndex: i,
		Question:      s.cfg.IcebreakerQuestions[i],
		Phase:         models.IcebreakerAnswering,
		Answers:       make(map[string]string),
	}
}
