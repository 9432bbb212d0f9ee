package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Priya8975/event-console/internal/domain"
)

var (
	ErrUnknownKind      = errors.New("unknown wizard")
	ErrSessionNotFound  = errors.New("wizard session not found")
	ErrStepOutOfRange   = errors.New("step out of range")
	ErrStepNotVisited   = errors.New("step has not been visited")
	ErrInvalidFormPatch = errors.New("invalid form values")
	ErrNotOnLastStep    = errors.New("the wizard can only be submitted from its last step")
)

// Session is the navigation state of one wizard: the current step, the
// steps reached so far and the form being filled.
type Session struct {
	ID        string
	Kind      string
	UserID    string
	Form      any
	Current   int
	visited   map[int]bool
	def       *Definition
	Restored  bool
	UpdatedAt time.Time
}

func NewSession(def *Definition, id, userID string) *Session {
	return &Session{
		ID:      id,
		Kind:    def.Kind,
		UserID:  userID,
		Form:    def.NewForm(),
		visited: map[int]bool{0: true},
		def:     def,
	}
}

// Apply merges a JSON object of field values into the form. Absent keys are
// left untouched. The patch is decoded into a copy, so a rejected patch
// changes nothing.
func (s *Session) Apply(patch json.RawMessage) error {
	if len(patch) == 0 {
		return nil
	}
	form, err := s.copyForm()
	if err != nil {
		return err
	}
	if err := json.Unmarshal(patch, form); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidFormPatch, err)
	}
	s.Form = form
	return nil
}

func (s *Session) copyForm() (any, error) {
	values, err := json.Marshal(s.Form)
	if err != nil {
		return nil, fmt.Errorf("encoding wizard form: %w", err)
	}
	form := s.def.NewForm()
	if err := json.Unmarshal(values, form); err != nil {
		return nil, fmt.Errorf("copying wizard form: %w", err)
	}
	return form, nil
}

// Next validates the current step and advances when it passes. The returned
// error is nil on success; on failure the step does not change.
func (s *Session) Next() *domain.ValidationError {
	v := s.def.ValidateStep(s.Form, s.Current)
	if v.OrNil() != nil {
		return v
	}
	if s.Current < len(s.def.Steps)-1 {
		s.Current++
		s.visited[s.Current] = true
	}
	return nil
}

// Back moves to the previous step without validating.
func (s *Session) Back() {
	if s.Current > 0 {
		s.Current--
	}
}

// GoTo jumps to a step already reached.
func (s *Session) GoTo(i int) error {
	if i < 0 || i >= len(s.def.Steps) {
		return ErrStepOutOfRange
	}
	if !s.visited[i] {
		return ErrStepNotVisited
	}
	s.Current = i
	return nil
}

// Validate checks the whole form. On failure the session moves to the
// first step holding an invalid field, provided that step was already
// reached. Validation never unlocks steps.
func (s *Session) Validate() *domain.ValidationError {
	v := s.def.ValidateAll(s.Form)
	if v.OrNil() == nil {
		return nil
	}
	first := len(s.def.Steps) - 1
	for field := range v.Fields {
		if i := s.def.StepOf(field); i < first {
			first = i
		}
	}
	if s.visited[first] {
		s.Current = first
	}
	return v
}

// OnLastStep reports whether the session is on its final step, the only
// one a wizard is submitted from.
func (s *Session) OnLastStep() bool {
	return s.Current == len(s.def.Steps)-1
}

// Visited returns the reached step indexes in order.
func (s *Session) Visited() []int {
	out := make([]int, 0, len(s.visited))
	for i := range s.visited {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Draft snapshots the session for persistence.
func (s *Session) Draft(savedAt time.Time) (Draft, error) {
	values, err := json.Marshal(s.Form)
	if err != nil {
		return Draft{}, fmt.Errorf("encoding wizard form: %w", err)
	}
	return Draft{
		Kind:        s.Kind,
		UserID:      s.UserID,
		CurrentStep: s.Current,
		Values:      values,
		SavedAt:     savedAt,
	}, nil
}

// Restore loads a draft: values, the saved step, and every step up to it
// marked visited.
func (s *Session) Restore(d Draft) error {
	form := s.def.NewForm()
	if err := json.Unmarshal(d.Values, form); err != nil {
		return fmt.Errorf("decoding wizard draft: %w", err)
	}
	s.Form = form
	s.Current = min(max(d.CurrentStep, 0), len(s.def.Steps)-1)
	for i := 0; i <= s.Current; i++ {
		s.visited[i] = true
	}
	s.Restored = true
	return nil
}

// StepState is the public view of a step.
type StepState struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Visited bool   `json:"visited"`
}

// State is what the API returns for a session.
type State struct {
	ID          string            `json:"id"`
	Kind        string            `json:"kind"`
	CurrentStep int               `json:"current_step"`
	Steps       []StepState       `json:"steps"`
	Values      any               `json:"values"`
	Restored    bool              `json:"restored"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Errors      map[string]string `json:"errors,omitempty"`
}

func (s *Session) State() State {
	steps := make([]StepState, len(s.def.Steps))
	for i, st := range s.def.Steps {
		steps[i] = StepState{ID: st.ID, Title: st.Title, Visited: s.visited[i]}
	}
	return State{
		ID:          s.ID,
		Kind:        s.Kind,
		CurrentStep: s.Current,
		Steps:       steps,
		Values:      s.Form,
		Restored:    s.Restored,
		UpdatedAt:   s.UpdatedAt,
	}
}
