package retro

import (
	"fmt"
	"testing"
	"time"

	"github.com/aaronzipp/retroboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() models.RoomConfig {
	return models.RoomConfig{
		SessionID: "r1",
		Title:     "Sprint 12",
		Template:  "start-stop-continue",
		Columns: []models.Column{
			{ID: "c1", Title: "Start"},
			{ID: "c2", Title: "Stop"},
		},
		Stages: []models.Stage{
			{ID: models.StageIcebreaker, Name: "Icebreaker", Enabled: false},
			{ID: models.StageBrainstorm, Name: "Brainstorm", Duration: 10, Enabled: true},
			{ID: models.StageGroup, Name: "Group", Enabled: true},
			{ID: models.StageVote, Name: "Vote", Enabled: true},
			{ID: models.StageDiscuss, Name: "Discuss", Enabled: true},
		},
		VotingLimit:         5,
		NameTheme:           ThemeSpace,
		IcebreakerQuestions: []string{"Best moment?", "Worst moment?"},
	}
}

func newTestState(t *testing.T, opts ...Option) *State {
	t.Helper()
	n := 0
	clock := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	base := []Option{
		WithIDGenerator(func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		}),
		WithClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	}
	return NewState(testConfig(), append(base, opts...)...)
}

func mustApply(t *testing.T, s *State, actorID string, msg Message) Event {
	t.Helper()
	ev, err := s.Apply(actorID, msg)
	require.NoError(t, err)
	return ev
}

func addCard(t *testing.T, s *State, actorID, columnID, content string) string {
	t.Helper()
	ev := mustApply(t, s, actorID, CardCreate{ColumnID: columnID, Content: content})
	return ev.(CardCreated).Card.ID
}

func TestNewState_Defaults(t *testing.T) {
	cfg := testConfig()
	cfg.VotingLimit = 0
	s := NewState(cfg)

	assert.Equal(t, DefaultVotingLimit, s.Config().VotingLimit)
	stage, ok := s.CurrentStage()
	require.True(t, ok)
	assert.Equal(t, models.StageBrainstorm, stage.ID, "disabled stages are skipped")
	assert.Empty(t, s.CreatorID())
	assert.Zero(t, s.Version())
}

func TestApply_UnknownParticipant(t *testing.T) {
	s := newTestState(t)

	_, err := s.Apply("ghost", CardCreate{ColumnID: "c1", Content: "X"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, s.CardCount())
}

func TestApply_VersionOnlyMovesOnSuccess(t *testing.T) {
	s := newTestState(t)
	u1 := s.Attach("").ParticipantID
	v := s.Version()

	_, err := s.Apply(u1, CardCreate{ColumnID: "nope", Content: "X"})
	require.Error(t, err)
	assert.Equal(t, v, s.Version())

	addCard(t, s, u1, "c1", "X")
	assert.Equal(t, v+1, s.Version())
}

func TestCardCount_CreatesMinusDeletes(t *testing.T) {
	s := newTestState(t)
	u1 := s.Attach("").ParticipantID

	var ids []string
	for i := range 7 {
		ids = append(ids, addCard(t, s, u1, "c1", fmt.Sprintf("card %d", i)))
	}
	for _, id := range ids[:3] {
		mustApply(t, s, u1, CardDelete{CardID: id})
	}

	assert.Equal(t, 4, s.CardCount())

	_, err := s.Apply(u1, CardDelete{CardID: ids[0]})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 4, s.CardCount())
}

func TestCardCreate_Validation(t *testing.T) {
	s := newTestState(t)
	u1 := s.Attach("").ParticipantID

	tests := []struct {
		name string
		msg  CardCreate
		want error
	}{
		{"empty content", CardCreate{ColumnID: "c1", Content: "   "}, ErrPrecondition},
		{"missing column", CardCreate{Content: "X"}, ErrPrecondition},
		{"unknown column", CardCreate{ColumnID: "c9", Content: "X"}, ErrNotFound},
		{"too long", CardCreate{ColumnID: "c1", Content: string(make([]rune, MaxCardContentRunes+1))}, ErrPrecondition},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Apply(u1, tt.msg)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Zero(t, s.CardCount())
}

func TestCardCreate_ClientSuppliedID(t *testing.T) {
	s := newTestState(t)
	u1 := s.Attach("").ParticipantID

	ev := mustApply(t, s, u1, CardCreate{ID: "optimistic-1", ColumnID: "c1", Content: "  trimmed  "})
	card := ev.(CardCreated).Card
	assert.Equal(t, "optimistic-1", card.ID)
	assert.Equal(t, "trimmed", card.Content)
	assert.Equal(t, u1, card.AuthorID)

	_, err := s.Apply(u1, CardCreate{ID: "optimistic-1", ColumnID: "c1", Content: "again"})
	assert.ErrorIs(t, err, ErrPrecondition)
	assert.Equal(t, 1, s.CardCount())
}

func TestCardUpdate(t *testing.T) {
	s := newTestState(t)
	u1 := s.Attach("").ParticipantID
	id := addCard(t, s, u1, "c1", "before")

	ev := mustApply(t, s, u1, CardUpdate{CardID: id, Content: "after"})
	assert.Equal(t, "after", ev.(CardUpdated).Card.Content)

	card, ok := s.Card(id)
	require.True(t, ok)
	assert.Equal(t, "after", card.Content)
	assert.Equal(t, "c1", card.ColumnID)

	_, err := s.Apply(u1, CardUpdate{CardID: "missing", Content: "x"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSnapshot_IsDeepCopy(t *testing.T) {
	s := newTestState(t)
	u1 := s.Attach("").ParticipantID
	a := addCard(t, s, u1, "c1", "A")
	b := addCard(t, s, u1, "c1", "B")
	mustApply(t, s, u1, CardsGrouped{GroupID: "g1", CardIDs: []string{a, b}})
	mustApply(t, s, u1, VoteAdd{ItemID: "g1"})

	snap := s.Snapshot()
	snap.Groups[0].CardIDs[0] = "tampered"
	snap.Votes["g1"][0] = "tampered"
	snap.Cards[0].Content = "tampered"

	g, _ := s.Group("g1")
	assert.Equal(t, []string{a, b}, g.CardIDs)
	assert.Equal(t, []string{u1}, s.Votes("g1"))
	card, _ := s.Card(a)
	assert.Equal(t, "A", card.Content)
}

func TestSnapshot_CardsInCreationOrder(t *testing.T) {
	s := newTestState(t)
	u1 := s.Attach("").ParticipantID
	first := addCard(t, s, u1, "c2", "first")
	second := addCard(t, s, u1, "c1", "second")

	snap := s.Snapshot()
	require.Len(t, snap.Cards, 2)
	assert.Equal(t, first, snap.Cards[0].ID)
	assert.Equal(t, second, snap.Cards[1].ID)
	assert.Equal(t, s.Version(), snap.Version)
	assert.Equal(t, "r1", snap.SessionID)
}
