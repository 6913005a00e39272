package types

import (
	"encoding/json"
	"fmt"
	"time"
)

// Snapshot is the structured payload of one episodic memory. The model that
// synthesizes snapshots is free to attach extra keys; anything beyond the
// required fields is preserved round-trip in Extra rather than dropped.
// Validation happens at the store boundary, not on every access.
type Snapshot struct {
	Summary         string   `json:"summary"`
	Entities        []string `json:"entities"`
	EmotionLabel    string   `json:"emotion_label"`
	ImportanceScore int      `json:"importance_score"`
	Timestamp       string   `json:"timestamp"`

	// Extra holds unrecognized keys from the model output.
	Extra map[string]json.RawMessage `json:"-"`
}

// MaxImportanceScore caps the importance counter. Scores increment each time
// a snapshot is used as chat context and never exceed this value.
const MaxImportanceScore = 10

// snapshotKnownKeys are the reserved top-level keys of a snapshot payload.
var snapshotKnownKeys = map[string]bool{
	"summary":          true,
	"entities":         true,
	"emotion_label":    true,
	"importance_score": true,
	"timestamp":        true,
}

// Validate checks the required snapshot fields and score bounds.
func (s *Snapshot) Validate() error {
	if s.Summary == "" {
		return fmt.Errorf("snapshot summary is required")
	}
	if s.ImportanceScore < 0 || s.ImportanceScore > MaxImportanceScore {
		return fmt.Errorf("snapshot importance_score %d out of range [0, %d]", s.ImportanceScore, MaxImportanceScore)
	}
	return nil
}

// Boost increments the importance score by one, capped at MaxImportanceScore.
func (s *Snapshot) Boost() {
	if s.ImportanceScore < MaxImportanceScore {
		s.ImportanceScore++
	}
}

// UnmarshalJSON decodes the known fields and stashes everything else in Extra.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	type alias Snapshot
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key := range raw {
		if snapshotKnownKeys[key] {
			delete(raw, key)
		}
	}
	if len(raw) == 0 {
		raw = nil
	}

	*s = Snapshot(known)
	s.Extra = raw
	return nil
}

// MarshalJSON merges the known fields with the preserved Extra keys.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	type alias Snapshot
	base, err := json.Marshal(alias(s))
	if err != nil {
		return nil, err
	}

	if len(s.Extra) == 0 {
		return base, nil
	}

	merged := make(map[string]json.RawMessage, len(s.Extra)+len(snapshotKnownKeys))
	if err := json.Unmarshal(base, &merged); err != nil {
		return nil, err
	}
	for key, value := range s.Extra {
		if !snapshotKnownKeys[key] {
			merged[key] = value
		}
	}
	return json.Marshal(merged)
}

// EpisodicSnapshot is one mid-term memory record: a consolidated summary of
// past interactions with mood and importance metadata. Snapshots are created
// by background consolidation and mutated only by importance boosts and
// content merges.
type EpisodicSnapshot struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Snapshot  Snapshot  `json:"snapshot"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
