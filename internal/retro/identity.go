package retro

// Attachment describes how a connection was bound to a participant
type Attachment struct {
	ParticipantID  string
	Name           string
	Generation     uint64
	IsReconnection bool
	// CreatorChanged is set when this attach moved the creator role
	CreatorChanged    bool
	PreviousCreatorID string
}

// Detachment describes the effect of a connection loss
type Detachment struct {
	// Stale is set when the connection had already been superseded; nothing changed.
	Stale             bool
	CreatorChanged    bool
	PreviousCreatorID string
}

// Attach binds a connection to a participant. A requestedID naming a known
// participant, connected or not, reattaches that participant and bumps its
// connection generation; anything else mints a new participant. The
// attaching participant becomes creator when the current creator is absent
// or disconnected.
func (s *State) Attach(requestedID string) Attachment {
	var att Attachment
	m, ok := s.members[requestedID]
	if requestedID != "" && ok {
		att.IsReconnection = true
	} else {
		taken := make(map[string]bool, len(s.members))
		for _, other := range s.members {
			taken[other.Name] = true
		}
		m = &member{}
		m.ID = s.newID()
		m.Name = DisplayName(s.cfg.NameTheme, taken)
		m.JoinedAt = s.now()
		s.members[m.ID] = m
		s.joinOrder = append(s.joinOrder, m.ID)
	}
	m.generation++
	m.Connected = true

	if s.creatorID != m.ID {
		current, has := s.members[s.creatorID]
		if !has || !current.Connected {
			att.CreatorChanged = true
			att.PreviousCreatorID = s.creatorID
			s.creatorID = m.ID
		}
	}

	att.ParticipantID = m.ID
	att.Name = m.Name
	att.Generation = m.generation
	s.touch()
	return att
}

// Detach marks the participant's connection of the given generation as
// lost. If the participant held the creator role it passes to the
// earliest-joined participant still connected; with nobody connected the
// role stays put until the next attach.
func (s *State) Detach(participantID string, generation uint64) Detachment {
	m, ok := s.members[participantID]
	if !ok || m.generation != generation || !m.Connected {
		return Detachment{Stale: true}
	}
	m.Connected = false

	var det Detachment
	if s.creatorID == participantID {
		for _, id := range s.joinOrder {
			if other := s.members[id]; other.Connected {
				det.CreatorChanged = true
				det.PreviousCreatorID = s.creatorID
				s.creatorID = id
				break
			}
		}
	}
	s.touch()
	return det
}

// Generation returns the live connection generation of participantID
func (s *State) Generation(participantID string) (uint64, bool) {
	m, ok := s.members[participantID]
	if !ok || !m.Connected {
		return 0, false
	}
	return m.generation, true
}

// ConnectedCount counts participants with a live connection
func (s *State) ConnectedCount() int {
	n := 0
	for _, m := range s.members {
		if m.Connected {
			n++
		}
	}
	return n
}

func (s *State) known(participantID string) bool {
	_, ok := s.members[participantID]
	return ok
}
