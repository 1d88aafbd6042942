package entity

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Stage is one of the six fixed pipeline phases. The zero value is not a valid stage.
type Stage uint8

const (
	StageNew Stage = iota + 1
	StageContacted
	StageQualified
	StageProposal
	StageWon
	StageLost
)

// Stages lists every stage in board order.
var Stages = []Stage{StageNew, StageContacted, StageQualified, StageProposal, StageWon, StageLost}

func (s Stage) String() string {
	switch s {
	case StageNew:
		return "New"
	case StageContacted:
		return "Contacted"
	case StageQualified:
		return "Qualified"
	case StageProposal:
		return "Proposal"
	case StageWon:
		return "Won"
	case StageLost:
		return "Lost"
	default:
		return ""
	}
}

func (s Stage) Valid() bool {
	return s >= StageNew && s <= StageLost
}

// ParseStage matches the persisted stage names case-insensitively.
func ParseStage(raw string) (Stage, error) {
	for _, s := range Stages {
		if strings.EqualFold(strings.TrimSpace(raw), s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownStage, raw)
}

func (s Stage) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, s)
	}
	return []byte(s.String()), nil
}

func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Stage) Value() (driver.Value, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStage, s)
	}
	return s.String(), nil
}

func (s *Stage) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return s.UnmarshalText([]byte(v))
	case []byte:
		return s.UnmarshalText(v)
	default:
		return fmt.Errorf("%w: cannot scan %T", ErrUnknownStage, src)
	}
}
