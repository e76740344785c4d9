package retro

import (
	"testing"

	"github.com/aaronzipp/retroboard/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestIcebreaker_Flow(t *testing.T) {
	s := newTestState(t)
	host := s.Attach("").ParticipantID
	guest := s.Attach("").ParticipantID

	_, err := s.Apply(guest, IcebreakerUpdate{Action: IcebreakerStart})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = s.Apply(guest, IcebreakerUpdate{Action: IcebreakerAnswer, Answer: "early"})
	assert.ErrorIs(t, err, ErrPrecondition, "answers need an open question")

	ev := mustApply(t, s, host, IcebreakerUpdate{Action: IcebreakerStart})
	ib := ev.(IcebreakerChanged).Icebreaker
	assert.Equal(t, models.IcebreakerAnswering, ib.Phase)
	assert.Equal(t, "Best moment?", ib.Question)

	ev = mustApply(t, s, guest, IcebreakerUpdate{Action: IcebreakerAnswer, Answer: " shipping "})
	assert.Equal(t, map[string]string{guest: "shipping"}, ev.(IcebreakerChanged).Icebreaker.Answers)

	_, err = s.Apply(guest, IcebreakerUpdate{Action: IcebreakerAnswer, Answer: ""})
	assert.ErrorIs(t, err, ErrPrecondition)

	ev = mustApply(t, s, host, IcebreakerUpdate{Action: IcebreakerClose})
	assert.Equal(t, models.IcebreakerClosed, ev.(IcebreakerChanged).Icebreaker.Phase)

	_, err = s.Apply(guest, IcebreakerUpdate{Action: IcebreakerAnswer, Answer: "late"})
	assert.ErrorIs(t, err, ErrPrecondition)

	ev = mustApply(t, s, host, IcebreakerUpdate{Action: IcebreakerNext})
	ib = ev.(IcebreakerChanged).Icebreaker
	assert.Equal(t, 1, ib.QuestionIndex)
	assert.Equal(t, models.IcebreakerAnswering, ib.Phase)
	assert.Empty(t, ib.Answers)

	_, err = s.Apply(host, IcebreakerUpdate{Action: IcebreakerNext})
	assert.ErrorIs(t, err, ErrPrecondition, "no third question")

	ev = mustApply(t, s, host, IcebreakerUpdate{Action: IcebreakerReset})
	assert.Equal(t, models.IcebreakerIdle, ev.(IcebreakerChanged).Icebreaker.Phase)
	assert.Equal(t, models.IcebreakerIdle, s.Snapshot().Icebreaker.Phase)
}

func TestIcebreaker_NoQuestions(t *testing.T) {
	cfg := testConfig()
	cfg.IcebreakerQuestions = nil
	s := NewState(cfg)
	host := s.Attach("").ParticipantID

	_, err := s.Apply(host, IcebreakerUpdate{Action: IcebreakerStart})
	assert.ErrorIs(t, err, ErrPrecondition)

	_, err = s.Apply(host, IcebreakerUpdate{Action: "dance"})
	assert.ErrorIs(t, err, ErrPrecondition)
}
