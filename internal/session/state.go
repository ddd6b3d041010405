// Package session holds the serializable state of one guided conversation.
package session

import (
	"fmt"
	"strings"
	"time"

	"github.com/Atentamente-Consultores-A-C/chatbot-narrativa/internal/config"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// Stage is the phase of the conversation the user is in.
type Stage string

const (
	StageStart               Stage = "start"
	StageConsent             Stage = "consent"
	StageCollectingPrimary   Stage = "collecting_primary"
	StageSelectNarrative     Stage = "select_narrative"
	StageRefinePrimary       Stage = "refine_primary"
	StageReflect             Stage = "reflect"
	StageRateDimensions      Stage = "rate_dimensions"
	StageAwaitTieBreak       Stage = "await_tie_break"
	StageCollectingDimension Stage = "collecting_dimension"
	StageRefineSecondary     Stage = "refine_secondary"
	StageDone                Stage = "done"
)

// Stages lists every stage in flow order.
var Stages = []Stage{
	StageStart, StageConsent, StageCollectingPrimary, StageSelectNarrative, StageRefinePrimary,
	StageReflect, StageRateDimensions, StageAwaitTieBreak, StageCollectingDimension,
	StageRefineSecondary, StageDone,
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	for _, st := range Stages {
		if s == st {
			return true
		}
	}
	return false
}

// Role marks who wrote a memory message.
type Role string

const (
	RoleHuman     Role = "human"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role Role   `json:"role" validate:"required,oneof=human assistant"`
	Text string `json:"text"`
}

// Memory is the append-only message log of one stage.
type Memory []Message

// History renders the memory the way collection templates expect it in {history}.
func (m Memory) History() string {
	lines := make([]string, len(m))
	for i, msg := range m {
		prefix := "AI: "
		if msg.Role == RoleHuman {
			prefix = "Human: "
		}
		lines[i] = prefix + msg.Text
	}
	return strings.Join(lines, "\n")
}

// Transcript renders the memory for extraction and synthesis.
func (m Memory) Transcript() string {
	lines := make([]string, len(m))
	for i, msg := range m {
		prefix := "AI: "
		if msg.Role == RoleHuman {
			prefix = "HUMAN: "
		}
		lines[i] = prefix + msg.Text
	}
	return strings.Join(lines, "\n")
}

// LastAssistant returns the most recent assistant message, or "".
func (m Memory) LastAssistant() string {
	for i := len(m) - 1; i >= 0; i-- {
		if m[i].Role == RoleAssistant {
			return m[i].Text
		}
	}
	return ""
}

// Actor marks who wrote a narrative revision.
type Actor string

const (
	ActorHuman Actor = "human"
	ActorAI    Actor = "ai"
)

type Revision struct {
	Actor Actor  `json:"actor" validate:"required,oneof=human ai"`
	Text  string `json:"text" validate:"required"`
}

// Narrative is a selected or generated narrative and its edit history.
// The last revision is the authoritative text.
type Narrative struct {
	PersonaIndex int        `json:"personaIndex" validate:"min=0"`
	Revisions    []Revision `json:"revisions" validate:"required,min=1,dive"`
}

// Text returns the authoritative text.
func (n *Narrative) Text() string {
	if n == nil || len(n.Revisions) == 0 {
		return ""
	}
	return n.Revisions[len(n.Revisions)-1].Text
}

// State is everything the stage machine knows about one session.
type State struct {
	ID      string         `json:"id" validate:"required,uuid4"`
	Profile config.Profile `json:"profile" validate:"required,oneof=simple full"`
	Stage   Stage          `json:"stage" validate:"required"`

	Memories map[Stage]Memory `json:"memories,omitempty"`
	// Answers is nil until the collection stage completes. A nil value means unknown.
	Answers    map[string]*string `json:"answers,omitempty"`
	Candidates []string           `json:"candidates,omitempty"`
	Primary    *Narrative         `json:"primary,omitempty" validate:"omitempty"`
	Secondary  *Narrative         `json:"secondary,omitempty" validate:"omitempty"`
	Suggestion string             `json:"suggestion,omitempty"`

	Ratings   map[string]int `json:"ratings,omitempty"`
	Tied      []string       `json:"tied,omitempty"`
	Dimension string         `json:"dimension,omitempty"`

	CreatedAt time.Time `json:"createdAt" validate:"required"`
	UpdatedAt time.Time `json:"updatedAt" validate:"required"`
}

// New returns a fresh session at the start stage.
func New(profile config.Profile, now time.Time) *State {
	return &State{
		ID:        uuid.NewString(),
		Profile:   profile,
		Stage:     StageStart,
		Memories:  make(map[Stage]Memory),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

var validate = validator.New()

// Validate checks a state read back from storage.
func (s *State) Validate() error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	if !s.Stage.Valid() {
		return fmt.Errorf("unknown stage %q", s.Stage)
	}
	return nil
}

// Memory returns the message log of stage.
func (s *State) Memory(stage Stage) Memory {
	return s.Memories[stage]
}

// Append adds messages to the log of stage.
func (s *State) Append(stage Stage, msgs ...Message) {
	if s.Memories == nil {
		s.Memories = make(map[Stage]Memory)
	}
	s.Memories[stage] = append(s.Memories[stage], msgs...)
}

// Narrative returns the narrative edited in the current refine stage.
func (s *State) Narrative() *Narrative {
	switch s.Stage {
	case StageRefinePrimary:
		return s.Primary
	case StageRefineSecondary:
		return s.Secondary
	}
	return nil
}

// Clone returns a deep copy, so transitions never mutate their input.
func (s *State) Clone() *State {
	c := *s

	if s.Memories != nil {
		c.Memories = make(map[Stage]Memory, len(s.Memories))
		for k, v := range s.Memories {
			c.Memories[k] = append(Memory(nil), v...)
		}
	}
	if s.Answers != nil {
		c.Answers = make(map[string]*string, len(s.Answers))
		for k, v := range s.Answers {
			if v != nil {
				val := *v
				v = &val
			}
			c.Answers[k] = v
		}
	}
	if s.Ratings != nil {
		c.Ratings = make(map[string]int, len(s.Ratings))
		for k, v := range s.Ratings {
			c.Ratings[k] = v
		}
	}
	c.Candidates = cloneStrings(s.Candidates)
	c.Tied = cloneStrings(s.Tied)
	c.Primary = s.Primary.clone()
	c.Secondary = s.Secondary.clone()
	return &c
}

func (n *Narrative) clone() *Narrative {
	if n == nil {
		return nil
	}
	return &Narrative{PersonaIndex: n.PersonaIndex, Revisions: append([]Revision(nil), n.Revisions...)}
}

func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}
