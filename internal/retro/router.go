package retro

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/aaronzipp/retroboard/internal/models"
)

// Apply validates msg on behalf of actorID and mutates the state. On success
// the returned event describes the change for fanout. A failed validation
// leaves the state untouched and returns an error wrapping ErrNotFound,
// ErrPrecondition or ErrForbidden.
func (s *State) Apply(actorID string, msg Message) (Event, error) {
	if !s.known(actorID) {
		return nil, fmt.Errorf("%w: participant %q", ErrNotFound, actorID)
	}

	var ev Event
	var err error
	switch m := msg.(type) {
	case CardCreate:
		ev, err = s.createCard(actorID, m)
	case CardUpdate:
		ev, err = s.updateCard(m)
	case CardDelete:
		ev, err = s.deleteCard(m)
	case VoteAdd:
		ev, err = s.addVote(actorID, m)
	case VoteRemove:
		ev, err = s.removeVote(actorID, m)
	case CardsGrouped:
		ev, err = s.groupCards(m)
	case CardUngrouped:
		ev, err = s.ungroupCard(m)
	case MarkStageDone:
		ev, err = s.markStageDone(actorID, m)
	case StageChange:
		ev, err = s.changeStage(actorID, m)
	case ActionItemUpdate:
		ev, err = s.updateActionItem(m)
	case DiscussUpdate:
		ev, err = s.updateDiscussed(m)
	case ReactionUpdate:
		ev, err = s.updateReaction(actorID, m)
	case IcebreakerUpdate:
		ev, err = s.updateIcebreaker(actorID, m)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, msg)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", msg.Kind(), err)
	}
	s.touch()
	return ev, nil
}

func (s *State) createCard(actorID string, m CardCreate) (Event, error) {
	content, err := cardContent(m.Content)
	if err != nil {
		return nil, err
	}
	columnID := strings.TrimSpace(m.ColumnID)
	if columnID == "" {
		return nil, fmt.Errorf("%w: columnId is required", ErrPrecondition)
	}
	if !s.cfg.HasColumn(columnID) {
		return nil, fmt.Errorf("%w: column %q", ErrNotFound, columnID)
	}
	id, err := s.clientID(m.ID)
	if err != nil {
		return nil, err
	}

	card := &models.Card{
		ID:        id,
		ColumnID:  columnID,
		Content:   content,
		AuthorID:  actorID,
		CreatedAt: s.now(),
	}
	s.cards[id] = card
	return CardCreated{Card: *card}, nil
}

func (s *State) updateCard(m CardUpdate) (Event, error) {
	card, ok := s.cards[m.CardID]
	if !ok {
		return nil, fmt.Errorf("%w: card %q", ErrNotFound, m.CardID)
	}
	content, err := cardContent(m.Content)
	if err != nil {
		return nil, err
	}
	card.Content = content
	return CardUpdated{Card: *card}, nil
}

func (s *State) deleteCard(m CardDelete) (Event, error) {
	card, ok := s.cards[m.CardID]
	if !ok {
		return nil, fmt.Errorf("%w: card %q", ErrNotFound, m.CardID)
	}
	cs := newChangeSet()
	if card.GroupID != "" {
		s.detachFromGroup(card, "", cs)
	}
	delete(s.cards, card.ID)
	s.purgeItem(card.ID, cs)
	return CardDeleted{CardID: card.ID, GroupChange: cs.result(s, "")}, nil
}

func (s *State) addVote(actorID string, m VoteAdd) (Event, error) {
	if !s.itemExists(m.ItemID) {
		return nil, fmt.Errorf("%w: item %q", ErrNotFound, m.ItemID)
	}
	if s.VotesCast(actorID) >= s.cfg.VotingLimit {
		return nil, fmt.Errorf("%w: voting limit of %d reached", ErrPrecondition, s.cfg.VotingLimit)
	}
	s.votes[m.ItemID] = append(s.votes[m.ItemID], actorID)
	return VoteAdded{ItemID: m.ItemID, UserID: actorID, Votes: s.votesOf(m.ItemID)}, nil
}

func (s *State) removeVote(actorID string, m VoteRemove) (Event, error) {
	voters := s.votes[m.ItemID]
	i := slices.Index(reversed(voters), actorID)
	if i < 0 {
		return nil, fmt.Errorf("%w: no vote on %q to remove", ErrPrecondition, m.ItemID)
	}
	last := len(voters) - 1 - i
	voters = slices.Delete(voters, last, last+1)
	if len(voters) == 0 {
		delete(s.votes, m.ItemID)
	} else {
		s.votes[m.ItemID] = voters
	}
	return VoteRemoved{ItemID: m.ItemID, UserID: actorID, Votes: s.votesOf(m.ItemID)}, nil
}

func (s *State) groupCards(m CardsGrouped) (Event, error) {
	ids := make([]string, 0, len(m.CardIDs))
	for _, id := range m.CardIDs {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	if len(ids) < 2 {
		return nil, fmt.Errorf("%w: a group needs at least two cards", ErrPrecondition)
	}
	columnID := ""
	for _, id := range ids {
		card, ok := s.cards[id]
		if !ok {
			return nil, fmt.Errorf("%w: card %q", ErrNotFound, id)
		}
		if columnID == "" {
			columnID = card.ColumnID
		} else if card.ColumnID != columnID {
			return nil, fmt.Errorf("%w: cards span more than one column", ErrPrecondition)
		}
	}

	groupID := strings.TrimSpace(m.GroupID)
	if groupID == "" {
		groupID = s.newID()
	} else if len(groupID) > MaxIDLength {
		return nil, fmt.Errorf("%w: groupId too long", ErrPrecondition)
	}
	if _, clash := s.cards[groupID]; clash {
		return nil, fmt.Errorf("%w: group id %q is a card id", ErrPrecondition, groupID)
	}
	if existing, ok := s.groups[groupID]; ok && existing.ColumnID != columnID {
		return nil, fmt.Errorf("%w: group %q belongs to another column", ErrPrecondition, groupID)
	}

	cs := newChangeSet()
	for _, id := range ids {
		if card := s.cards[id]; card.GroupID != "" {
			s.detachFromGroup(card, groupID, cs)
		}
	}
	if existing, ok := s.groups[groupID]; ok {
		// Replacing: members not named in this message leave the group
		for _, rest := range existing.CardIDs {
			if card := s.cards[rest]; card != nil {
				card.GroupID = ""
				cs.ungrouped = append(cs.ungrouped, rest)
			}
		}
	}

	group := &models.CardGroup{ID: groupID, CardIDs: ids, ColumnID: columnID}
	s.groups[groupID] = group
	for _, id := range ids {
		s.cards[id].GroupID = groupID
	}
	return CardsGroupedEvent{Group: copyGroup(group), GroupChange: cs.result(s, groupID)}, nil
}

func (s *State) ungroupCard(m CardUngrouped) (Event, error) {
	card, ok := s.cards[m.CardID]
	if !ok {
		return nil, fmt.Errorf("%w: card %q", ErrNotFound, m.CardID)
	}
	if card.GroupID == "" {
		return nil, fmt.Errorf("%w: card %q is not grouped", ErrPrecondition, m.CardID)
	}
	cs := newChangeSet()
	s.detachFromGroup(card, "", cs)
	return CardUngroupedEvent{CardID: card.ID, GroupChange: cs.result(s, "")}, nil
}

func (s *State) markStageDone(actorID string, m MarkStageDone) (Event, error) {
	stage, ok := s.CurrentStage()
	if !ok {
		return nil, fmt.Errorf("%w: room has no stages", ErrPrecondition)
	}
	if m.StageID != stage.ID {
		return nil, fmt.Errorf("%w: stage %q is not current", ErrPrecondition, m.StageID)
	}
	done := s.stageDone[stage.ID]
	if done == nil {
		done = make(map[string]struct{})
		s.stageDone[stage.ID] = done
	}
	if _, marked := done[actorID]; marked {
		delete(done, actorID)
	} else {
		done[actorID] = struct{}{}
	}
	return StageDoneUpdate{
		StageID:          stage.ID,
		Done:             s.doneConnected(stage.ID),
		ParticipantCount: s.ConnectedCount(),
	}, nil
}

func (s *State) changeStage(actorID string, m StageChange) (Event, error) {
	if m.StageIndex == nil {
		return nil, fmt.Errorf("%w: stageIndex is required", ErrPrecondition)
	}
	if actorID != s.creatorID {
		return nil, fmt.Errorf("%w: only the creator changes stages", ErrForbidden)
	}
	idx := *m.StageIndex
	if idx < 0 || idx >= len(s.stages) {
		return nil, fmt.Errorf("%w: stage index %d out of range", ErrPrecondition, idx)
	}
	if s.strict && idx > s.stageIndex {
		current := s.stages[s.stageIndex]
		if gatedStage(current.ID) && !s.allDone(current.ID) {
			return nil, fmt.Errorf("%w: not everyone is done with %s", ErrPrecondition, current.ID)
		}
	}

	s.stageIndex = idx
	s.stageDone = make(map[string]map[string]struct{})
	s.stageStartedAt = s.now()
	return StageChanged{StageIndex: idx, StageID: s.stages[idx].ID, StartedAt: s.stageStartedAt}, nil
}

func gatedStage(stageID string) bool {
	return stageID == models.StageBrainstorm || stageID == models.StageVote
}

func (s *State) allDone(stageID string) bool {
	done := s.stageDone[stageID]
	for _, m := range s.members {
		if !m.Connected {
			continue
		}
		if _, ok := done[m.ID]; !ok {
			return false
		}
	}
	return true
}

// doneConnected lists the connected participants that marked stageID done
func (s *State) doneConnected(stageID string) []string {
	out := make([]string, 0, len(s.stageDone[stageID]))
	for id := range s.stageDone[stageID] {
		if m, ok := s.members[id]; ok && m.Connected {
			out = append(out, id)
		}
	}
	slices.Sort(out)
	return out
}

func (s *State) updateActionItem(m ActionItemUpdate) (Event, error) {
	switch m.Action {
	case ActionAdd:
		item, err := s.normalizeActionItem(m.Item)
		if err != nil {
			return nil, err
		}
		id, err := s.clientID(item.ID)
		if err != nil {
			return nil, err
		}
		item.ID = id
		s.actionItems[id] = &item
		s.actionOrder = append(s.actionOrder, id)
		return ActionItemChanged{Action: ActionAdd, Item: item}, nil

	case ActionUpdated:
		existing, ok := s.actionItems[m.Item.ID]
		if !ok {
			return nil, fmt.Errorf("%w: action item %q", ErrNotFound, m.Item.ID)
		}
		item, err := s.normalizeActionItem(mergeActionItem(*existing, m.Item))
		if err != nil {
			return nil, err
		}
		s.actionItems[item.ID] = &item
		return ActionItemChanged{Action: ActionUpdated, Item: item}, nil

	case ActionDeleted:
		existing, ok := s.actionItems[m.Item.ID]
		if !ok {
			return nil, fmt.Errorf("%w: action item %q", ErrNotFound, m.Item.ID)
		}
		delete(s.actionItems, existing.ID)
		s.actionOrder = slices.DeleteFunc(s.actionOrder, func(id string) bool { return id == existing.ID })
		return ActionItemChanged{Action: ActionDeleted, Item: *existing}, nil
	}
	return nil, fmt.Errorf("%w: unknown action %q", ErrPrecondition, m.Action)
}

// mergeActionItem lays the non-empty fields of patch over item
func mergeActionItem(item, patch models.ActionItem) models.ActionItem {
	if strings.TrimSpace(patch.Title) != "" {
		item.Title = patch.Title
	}
	if patch.Description != "" {
		item.Description = patch.Description
	}
	if patch.AssigneeID != "" {
		item.AssigneeID = patch.AssigneeID
	}
	if patch.Priority != "" {
		item.Priority = patch.Priority
	}
	if patch.DueDate != "" {
		item.DueDate = patch.DueDate
	}
	if patch.Status != "" {
		item.Status = patch.Status
	}
	return item
}

func (s *State) normalizeActionItem(item models.ActionItem) (models.ActionItem, error) {
	item.ID = strings.TrimSpace(item.ID)
	item.Title = strings.TrimSpace(item.Title)
	item.Description = strings.TrimSpace(item.Description)
	if item.Title == "" {
		return item, fmt.Errorf("%w: title is required", ErrPrecondition)
	}
	if utf8.RuneCountInString(item.Title) > MaxTitleRunes {
		return item, fmt.Errorf("%w: title too long", ErrPrecondition)
	}
	if item.Priority == "" {
		item.Priority = models.PriorityMedium
	}
	if !item.Priority.Valid() {
		return item, fmt.Errorf("%w: priority %q", ErrPrecondition, item.Priority)
	}
	if item.Status == "" {
		item.Status = models.ActionPending
	}
	if !item.Status.Valid() {
		return item, fmt.Errorf("%w: status %q", ErrPrecondition, item.Status)
	}
	if item.AssigneeID != "" && !s.known(item.AssigneeID) {
		return item, fmt.Errorf("%w: assignee %q", ErrNotFound, item.AssigneeID)
	}
	if item.DueDate != "" && !validDate(item.DueDate) {
		return item, fmt.Errorf("%w: dueDate %q", ErrPrecondition, item.DueDate)
	}
	return item, nil
}

func validDate(v string) bool {
	if _, err := time.Parse(time.DateOnly, v); err == nil {
		return true
	}
	_, err := time.Parse(time.RFC3339, v)
	return err == nil
}

func (s *State) updateDiscussed(m DiscussUpdate) (Event, error) {
	itemID := strings.TrimSpace(m.ItemID)
	if itemID == "" {
		return nil, fmt.Errorf("%w: itemId is required", ErrPrecondition)
	}
	switch m.Action {
	case DiscussMark:
		s.discussed[itemID] = struct{}{}
	case DiscussUnmark:
		if _, ok := s.discussed[itemID]; !ok {
			return nil, fmt.Errorf("%w: %q is not marked discussed", ErrPrecondition, itemID)
		}
		delete(s.discussed, itemID)
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrPrecondition, m.Action)
	}
	return DiscussChanged{Action: m.Action, ItemID: itemID, Discussed: sortedKeys(s.discussed)}, nil
}

func (s *State) updateReaction(actorID string, m ReactionUpdate) (Event, error) {
	if _, ok := s.cards[m.CardID]; !ok {
		return nil, fmt.Errorf("%w: card %q", ErrNotFound, m.CardID)
	}
	emoji := strings.TrimSpace(m.Emoji)
	if emoji == "" || utf8.RuneCountInString(emoji) > MaxEmojiRunes {
		return nil, fmt.Errorf("%w: invalid emoji", ErrPrecondition)
	}

	users := s.reactions[m.CardID][emoji]
	_, present := users[actorID]
	add := false
	switch m.Action {
	case ReactionAdd:
		add = true
	case ReactionRemove:
		if !present {
			return nil, fmt.Errorf("%w: no %s reaction to remove", ErrPrecondition, emoji)
		}
	case ReactionToggle, "":
		add = !present
	default:
		return nil, fmt.Errorf("%w: unknown action %q", ErrPrecondition, m.Action)
	}

	if add {
		byEmoji := s.reactions[m.CardID]
		if byEmoji == nil {
			byEmoji = make(map[string]map[string]struct{})
			s.reactions[m.CardID] = byEmoji
		}
		if byEmoji[emoji] == nil {
			byEmoji[emoji] = make(map[string]struct{})
		}
		byEmoji[emoji][actorID] = struct{}{}
	} else {
		delete(users, actorID)
		if len(users) == 0 {
			delete(s.reactions[m.CardID], emoji)
		}
		if len(s.reactions[m.CardID]) == 0 {
			delete(s.reactions, m.CardID)
		}
	}
	return ReactionChanged{CardID: m.CardID, Emoji: emoji, Users: sortedKeys(s.reactions[m.CardID][emoji])}, nil
}

// changeSet accumulates the effects a card mutation had on groups
type changeSet struct {
	touched   map[string]bool
	ungrouped []string
	purged    []string
}

func newChangeSet() *changeSet {
	return &changeSet{touched: make(map[string]bool)}
}

// result resolves the touched groups against the final state. skip names a
// group reported separately by the caller's event.
func (cs *changeSet) result(s *State, skip string) GroupChange {
	var gc GroupChange
	for _, id := range sortedKeys(cs.touched) {
		if id == skip {
			continue
		}
		if g, ok := s.groups[id]; ok {
			gc.UpdatedGroups = append(gc.UpdatedGroups, copyGroup(g))
		} else {
			gc.DeletedGroups = append(gc.DeletedGroups, id)
		}
	}
	for _, id := range cs.ungrouped {
		card, ok := s.cards[id]
		if ok && card.GroupID == "" && !slices.Contains(gc.UngroupedCards, id) {
			gc.UngroupedCards = append(gc.UngroupedCards, id)
		}
	}
	gc.PurgedItems = cs.purged
	return gc
}

// detachFromGroup removes card from its group. A group left with fewer than
// two members is deleted, unless it is keep, and its survivor ungrouped.
func (s *State) detachFromGroup(card *models.Card, keep string, cs *changeSet) {
	group, ok := s.groups[card.GroupID]
	card.GroupID = ""
	if !ok {
		return
	}
	group.CardIDs = slices.DeleteFunc(group.CardIDs, func(id string) bool { return id == card.ID })
	cs.touched[group.ID] = true
	if len(group.CardIDs) >= 2 || group.ID == keep {
		return
	}
	for _, rest := range group.CardIDs {
		if c := s.cards[rest]; c != nil {
			c.GroupID = ""
			cs.ungrouped = append(cs.ungrouped, rest)
		}
	}
	delete(s.groups, group.ID)
	s.purgeItem(group.ID, cs)
}

// purgeItem drops votes, discussed marks and reactions held by a removed
// card or group. Dropped votes are refunded to their voters.
func (s *State) purgeItem(itemID string, cs *changeSet) {
	delete(s.votes, itemID)
	delete(s.discussed, itemID)
	delete(s.reactions, itemID)
	cs.purged = append(cs.purged, itemID)
}

func (s *State) itemExists(itemID string) bool {
	if _, ok := s.cards[itemID]; ok {
		return true
	}
	_, ok := s.groups[itemID]
	return ok
}

func (s *State) votesOf(itemID string) []string {
	return append([]string{}, s.votes[itemID]...)
}

// clientID accepts an id chosen by an optimistic client or mints one
func (s *State) clientID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return s.newID(), nil
	}
	if len(id) > MaxIDLength {
		return "", fmt.Errorf("%w: id too long", ErrPrecondition)
	}
	if s.itemExists(id) {
		return "", fmt.Errorf("%w: id %q already in use", ErrPrecondition, id)
	}
	if _, ok := s.actionItems[id]; ok {
		return "", fmt.Errorf("%w: id %q already in use", ErrPrecondition, id)
	}
	return id, nil
}

func cardContent(raw string) (string, error) {
	content := strings.TrimSpace(raw)
	if content == "" {
		return "", fmt.Errorf("%w: content is required", ErrPrecondition)
	}
	if utf8.RuneCountInString(content) > MaxCardContentRunes {
		return "", fmt.Errorf("%w: content longer than %d characters", ErrPrecondition, MaxCardContentRunes)
	}
	return content, nil
}

func reversed(in []string) []string {
	out := slices.Clone(in)
	slices.Reverse(out)
	return out
}
