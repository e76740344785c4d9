package retro

import (
	"sort"
	"time"

	"github.com/aaronzipp/retroboard/internal/models"
	"github.com/google/uuid"
)

type member struct {
	models.Participant
	generation uint64
}

// State is the canonical state of one room, mutated only by the room goroutine
type State struct {
	cfg    models.RoomConfig
	stages []models.Stage
	strict bool
	now    func() time.Time
	newID  func() string

	members   map[string]*member
	joinOrder []string
	creatorID string

	cards       map[string]*models.Card
	groups      map[string]*models.CardGroup
	votes       map[string][]string
	actionItems map[string]*models.ActionItem
	actionOrder []string
	discussed   map[string]struct{}
	stageDone   map[string]map[string]struct{}
	reactions   map[string]map[string]map[string]struct{}
	icebreaker  models.IcebreakerState

	stageIndex     int
	stageStartedAt time.Time
	version        uint64
}

// Option configures a State
type Option func(*State)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(s *State) { s.now = now }
}

// WithIDGenerator replaces the uuid based id generator
func WithIDGenerator(newID func() string) Option {
	return func(s *State) { s.newID = newID }
}

// WithStrictStageGate makes leaving brainstorm or vote require every
// connected participant to have marked the stage done
func WithStrictStageGate(strict bool) Option {
	return func(s *State) { s.strict = strict }
}

// NewState creates an empty room state at stage index 0
func NewState(cfg models.RoomConfig, opts ...Option) *State {
	if cfg.VotingLimit <= 0 {
		cfg.VotingLimit = DefaultVotingLimit
	}
	s := &State{
		cfg:         cfg,
		stages:      cfg.EnabledStages(),
		now:         time.Now,
		newID:       func() string { return uuid.New().String() },
		members:     make(map[string]*member),
		cards:       make(map[string]*models.Card),
		groups:      make(map[string]*models.CardGroup),
		votes:       make(map[string][]string),
		actionItems: make(map[string]*models.ActionItem),
		discussed:   make(map[string]struct{}),
		stageDone:   make(map[string]map[string]struct{}),
		reactions:   make(map[string]map[string]map[string]struct{}),
		icebreaker: models.IcebreakerState{
			Phase:   models.IcebreakerIdle,
			Answers: make(map[string]string),
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.stageStartedAt = s.now()
	return s
}

func (s *State) Config() models.RoomConfig { return s.cfg }

// Version is incremented by every successful mutation
func (s *State) Version() uint64 { return s.version }

// CreatorID returns the current creator, empty only while nobody ever joined
func (s *State) CreatorID() string { return s.creatorID }

// CurrentStage returns the current stage, or false when the room has no stages
func (s *State) CurrentStage() (models.Stage, bool) {
	if s.stageIndex < 0 || s.stageIndex >= len(s.stages) {
		return models.Stage{}, false
	}
	return s.stages[s.stageIndex], true
}

func (s *State) CardCount() int { return len(s.cards) }

// Card returns a copy of the card with id
func (s *State) Card(id string) (models.Card, bool) {
	c, ok := s.cards[id]
	if !ok {
		return models.Card{}, false
	}
	return *c, true
}

// Group returns a copy of the group with id
func (s *State) Group(id string) (models.CardGroup, bool) {
	g, ok := s.groups[id]
	if !ok {
		return models.CardGroup{}, false
	}
	return copyGroup(g), true
}

func (s *State) GroupCount() int { return len(s.groups) }

// Votes returns a copy of the voter list of itemID
func (s *State) Votes(itemID string) []string {
	return append([]string(nil), s.votes[itemID]...)
}

// VotesCast counts every vote participantID has spent in the room
func (s *State) VotesCast(participantID string) int {
	n := 0
	for _, voters := range s.votes {
		for _, v := range voters {
			if v == participantID {
				n++
			}
		}
	}
	return n
}

func (s *State) touch() uint64 {
	s.version++
	return s.version
}

// Participants lists every known participant in join order
func (s *State) Participants() []models.Participant {
	out := make([]models.Participant, 0, len(s.joinOrder))
	for _, id := range s.joinOrder {
		m := s.members[id]
		p := m.Participant
		p.IsCreator = id == s.creatorID
		out = append(out, p)
	}
	return out
}

// Snapshot returns a deep copy of every state slice
func (s *State) Snapshot() models.Snapshot {
	snap := models.Snapshot{
		SessionID:         s.cfg.SessionID,
		Version:           s.version,
		Config:            s.cfg,
		CreatorID:         s.creatorID,
		Participants:      s.Participants(),
		Cards:             make([]models.Card, 0, len(s.cards)),
		Groups:            make([]models.CardGroup, 0, len(s.groups)),
		Votes:             make(map[string][]string, len(s.votes)),
		ActionItems:       make([]models.ActionItem, 0, len(s.actionOrder)),
		Discussed:         sortedKeys(s.discussed),
		StageDone:         make(map[string][]string, len(s.stageDone)),
		Reactions:         make(map[string]map[string][]string, len(s.reactions)),
		Icebreaker:        s.icebreakerCopy(),
		CurrentStageIndex: s.stageIndex,
		StageStartedAt:    s.stageStartedAt,
	}
	for _, c := range s.cards {
		snap.Cards = append(snap.Cards, *c)
	}
	sort.Slice(snap.Cards, func(i, j int) bool {
		if !snap.Cards[i].CreatedAt.Equal(snap.Cards[j].CreatedAt) {
			return snap.Cards[i].CreatedAt.Before(snap.Cards[j].CreatedAt)
		}
		return snap.Cards[i].ID < snap.Cards[j].ID
	})
	for _, g := range s.groups {
		snap.Groups = append(snap.Groups, copyGroup(g))
	}
	sort.Slice(snap.Groups, func(i, j int) bool { return snap.Groups[i].ID < snap.Groups[j].ID })
	for id, voters := range s.votes {
		snap.Votes[id] = append([]string(nil), voters...)
	}
	for _, id := range s.actionOrder {
		snap.ActionItems = append(snap.ActionItems, *s.actionItems[id])
	}
	for stageID := range s.stageDone {
		snap.StageDone[stageID] = s.doneConnected(stageID)
	}
	for cardID, byEmoji := range s.reactions {
		m := make(map[string][]string, len(byEmoji))
		for emoji, users := range byEmoji {
			m[emoji] = sortedKeys(users)
		}
		snap.Reactions[cardID] = m
	}
	return snap
}

func (s *State) icebreakerCopy() models.IcebreakerState {
	ib := s.icebreaker
	ib.Answers = make(map[string]string, len(s.icebreaker.Answers))
	for k, v := range s.icebreaker.Answers {
		ib.Answers[k] = v
	}
	return ib
}

func copyGroup(g *models.CardGroup) models.CardGroup {
	out := *g
	out.CardIDs = append([]string(nil), g.CardIDs...)
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
