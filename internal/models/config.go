package models

// RoomConfig is the session metadata a room is bootstrapped from
type RoomConfig struct {
	SessionID           string   `json:"sessionId" yaml:"-"`
	Title               string   `json:"title" yaml:"title"`
	Template            string   `json:"template" yaml:"name"`
	Columns             []Column `json:"columns" yaml:"columns"`
	Stages              []Stage  `json:"stages" yaml:"stages"`
	VotingLimit         int      `json:"votingLimit" yaml:"votingLimit"`
	NameTheme           string   `json:"nameTheme" yaml:"nameTheme"`
	IcebreakerQuestions []string `json:"icebreakerQuestions,omitempty" yaml:"icebreakerQuestions"`
}

// EnabledStages returns the stages a room actually steps through, in order
func (c RoomConfig) EnabledStages() []Stage {
	out := make([]Stage, 0, len(c.Stages))
	for _, s := range c.Stages {
		if s.Enabled {
			out = append(out, s)
		}
	}
	return out
}

// HasColumn reports whether columnID is accepted by the board. A config
// without columns accepts any column.
func (c RoomConfig) HasColumn(columnID string) bool {
	if len(c.Columns) == 0 {
		return true
	}
	for _, col := range c.Columns {
		if col.ID == columnID {
			return true
		}
	}
	return false
}
