package registration

import (
	"sync"
	"time"

	"github.com/ehr/intake/internal/card"
	"github.com/ehr/intake/internal/domain/age"
	"github.com/ehr/intake/internal/domain/attributes"
)

// Session is one operator's registration form. All access goes through the
// session mutex; the registry call itself runs outside it so the session can
// still be read while a submission is in flight.
type Session struct {
	mu        sync.Mutex
	id        string
	location  Location
	types     []attributes.Type
	input     Input
	age       age.Age
	state     State
	last      *Outcome
	printable *card.Card
	updatedAt time.Time
}

func newSession(id string, loc Location, types []attributes.Type, now time.Time) *Session {
	return &Session{
		id:        id,
		location:  loc,
		types:     types,
		state:     StateIdle,
		updatedAt: now,
	}
}

func (s *Session) ID() string { return s.id }

func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := View{
		ID:             s.id,
		State:          s.state,
		Location:       s.location,
		Input:          s.input,
		Age:            s.age,
		AttributeTypes: s.types,
		UpdatedAt:      s.updatedAt,
	}
	if s.last != nil {
		o := *s.last
		v.LastOutcome = &o
	}
	return v
}

func (s *Session) busy() bool {
	return s.state == StateValidating || s.state == StateSubmitting
}

func (s *Session) lastActive() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt, s.busy()
}

func (s *Session) setInput(in Input, a age.Age, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy() {
		return ErrSubmissionInFlight
	}
	s.input = in
	s.age = a
	s.state = StateIdle
	s.updatedAt = now
	return nil
}

// begin moves the session into validation and returns what is to be
// submitted.
func (s *Session) begin(now time.Time) (Input, Location, []attributes.Type, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy() {
		return Input{}, Location{}, nil, ErrSubmissionInFlight
	}
	s.state = StateValidating
	s.updatedAt = now
	return s.input, s.location, s.types, nil
}

func (s *Session) transition(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// finish records the outcome of a submission. A success clears the form and
// keeps the card data for printing.
func (s *Session) finish(out Outcome, printable *card.Card, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &out
	s.updatedAt = now
	if !out.OK() {
		s.state = StateFailed
		return
	}
	s.state = StateSucceeded
	s.input = Input{}
	s.age = age.Age{}
	s.printable = printable
}

func (s *Session) reset(now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy() {
		return ErrSubmissionInFlight
	}
	s.input = Input{}
	s.age = age.Age{}
	s.state = StateIdle
	s.last = nil
	s.updatedAt = now
	return nil
}

func (s *Session) lastCard() (card.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.printable == nil {
		return card.Card{}, false
	}
	return *s.printable, true
}
