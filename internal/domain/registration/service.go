package registration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ehr/intake/internal/card"
	"github.com/ehr/intake/internal/domain/age"
	"github.com/ehr/intake/internal/domain/attributes"
	"github.com/ehr/intake/internal/domain/phn"
	"github.com/ehr/intake/internal/platform/metrics"
	"github.com/ehr/intake/internal/registry"
)

var (
	ErrSchemaUnavailable  = errors.New("person attribute types unavailable")
	ErrSessionNotFound    = errors.New("registration session not found")
	ErrSubmissionInFlight = errors.New("a submission is already in progress")
	ErrNothingToPrint     = errors.New("no registered patient to print")
)

// GenericFailureMessage is reported when the registry gives no reason.
const GenericFailureMessage = "Patient creation failed"

// BirthdateLayout is the registry's birthdate format.
const BirthdateLayout = "2006-01-02T15:04:05.000-0700"

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks SchemaSource,PatientCreator,CardDispatcher

type SchemaSource interface {
	ListAttributeTypes(ctx context.Context) ([]attributes.Type, error)
}

type PatientCreator interface {
	CreatePatient(ctx context.Context, req *registry.CreatePatientRequest) (*registry.Patient, error)
}

// CardDispatcher prints cards without blocking the caller.
type CardDispatcher interface {
	Dispatch(c card.Card)
}

type Config struct {
	// PHNIdentifierType is the registry identifier type marking a PHN.
	PHNIdentifierType string
	// TimeZone is used for birthdates and ages. Defaults to time.Local.
	TimeZone      *time.Location
	MaxPhotoBytes int
}

type Service struct {
	cfg      Config
	schema   SchemaSource
	patients PatientCreator
	sessions *SessionStore
	phns     *phn.Allocator
	resolver *attributes.Resolver
	ages     *age.Calculator
	cards    CardDispatcher
	renderer *card.Renderer
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

func NewService(cfg Config, schema SchemaSource, patients PatientCreator, sessions *SessionStore, logger zerolog.Logger) *Service {
	if cfg.TimeZone == nil {
		cfg.TimeZone = time.Local
	}
	if cfg.MaxPhotoBytes <= 0 {
		cfg.MaxPhotoBytes = DefaultMaxPhotoBytes
	}
	if sessions == nil {
		sessions = NewSessionStore(0, nil)
	}
	s := &Service{
		cfg:      cfg,
		schema:   schema,
		patients: patients,
		sessions: sessions,
		phns:     phn.NewAllocator(nil),
		resolver: attributes.NewResolver(nil),
		renderer: card.NewRenderer(),
		logger:   logger.With().Str("component", "registration").Logger(),
	}
	s.SetCalculator(age.NewCalculator(nil))
	return s
}

// SetAllocator replaces the PHN allocator.
func (s *Service) SetAllocator(a *phn.Allocator) { s.phns = a }

// SetCalculator replaces the age calculator, and with it the clock. Session
// expiry follows the same clock.
func (s *Service) SetCalculator(c *age.Calculator) {
	s.ages = c
	s.sessions.SetClock(c.Now)
}

func (s *Service) SetResolver(r *attributes.Resolver) { s.resolver = r }

// SetCardDispatcher enables card printing on successful registrations.
func (s *Service) SetCardDispatcher(d CardDispatcher) { s.cards = d }

func (s *Service) SetMetrics(m *metrics.Metrics) { s.metrics = m }

func (s *Service) now() time.Time {
	return s.ages.Now().In(s.cfg.TimeZone)
}

// AgeOf computes the age for a YYYY-MM-DD date of birth.
func (s *Service) AgeOf(dob string) (age.Age, error) {
	birth, err := ParseDateOfBirth(dob, s.cfg.TimeZone)
	if err != nil {
		return age.Age{}, fmt.Errorf("parse date of birth: %w", err)
	}
	return age.Between(birth, s.now()), nil
}

func (s *Service) AttributeTypes(ctx context.Context) ([]attributes.Type, error) {
	types, err := s.schema.ListAttributeTypes(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaUnavailable, err)
	}
	return types, nil
}

// Register validates in, issues exactly one create call and interprets the
// result. It does not touch any session.
func (s *Service) Register(ctx context.Context, loc Location, types []attributes.Type, in Input, printCard bool) Outcome {
	return s.register(ctx, loc, types, in, printCard, nil)
}

func (s *Service) register(ctx context.Context, loc Location, types []attributes.Type, in Input, printCard bool, onSubmit func()) Outcome {
	in = normalize(in)
	if problems := Validate(in, loc, s.cfg.MaxPhotoBytes); len(problems) > 0 {
		out := ValidationFailed(strings.Join(problems, ", "))
		s.metrics.ObserveRegistration(string(out.Kind))
		return out
	}

	req, phnValue, err := s.BuildRequest(loc, types, in)
	if err != nil {
		out := ValidationFailed(err.Error())
		s.metrics.ObserveRegistration(string(out.Kind))
		return out
	}

	if onSubmit != nil {
		onSubmit()
	}

	// Once issued the create call is not cancelled; the client timeout bounds it.
	patient, err := s.patients.CreatePatient(context.WithoutCancel(ctx), req)
	if err != nil {
		out := ServerFailed(FailureMessage(err))
		s.logger.Warn().Err(err).Str("phn", phnValue).Msg("patient registration failed")
		s.metrics.ObserveRegistration(string(out.Kind))
		return out
	}

	out := Succeeded(phnValue, in.DisplayName(), patient.UUID, printCard)
	s.metrics.ObserveRegistration(string(out.Kind))
	s.logger.Info().Str("phn", phnValue).Str("patient_uuid", patient.UUID).Bool("print", printCard).Msg("patient registered")

	if printCard && s.cards != nil {
		s.cards.Dispatch(cardFor(out, in))
	}
	return out
}

func cardFor(out Outcome, in Input) card.Card {
	return card.Card{
		PHN:              out.PHN,
		DisplayName:      out.DisplayName,
		Photo:            in.Photo,
		PhotoContentType: in.PhotoContentType,
	}
}

// BuildRequest assembles the registry request for a validated input and
// returns it with the effective PHN.
func (s *Service) BuildRequest(loc Location, types []attributes.Type, in Input) (*registry.CreatePatientRequest, string, error) {
	birth, err := ParseDateOfBirth(in.DateOfBirth, s.cfg.TimeZone)
	if err != nil {
		return nil, "", errors.New("date of birth must be YYYY-MM-DD")
	}

	value, allocated := phn.Resolve(in.ExistingPHN, s.phns)
	if allocated {
		s.logger.Debug().Str("phn", value).Msg("allocated PHN")
	}

	req := &registry.CreatePatientRequest{
		Identifiers: []registry.Identifier{{
			Identifier:     value,
			IdentifierType: s.cfg.PHNIdentifierType,
			Location:       loc.ID,
			Preferred:      true,
		}},
		Person: registry.Person{
			Gender:    in.Gender.Code(),
			Age:       age.Between(birth, s.now()).WholeYears(),
			Birthdate: birth.Format(BirthdateLayout),
			Names: []registry.PersonName{{
				GivenName:  in.GivenName,
				FamilyName: in.FamilyName,
			}},
			Attributes: s.resolver.Resolve(types, in.attributeValues()),
		},
	}
	return req, value, nil
}

// FailureMessage turns a create error into the operator-facing message:
// the registry's global errors, else its message, else a generic text.
func FailureMessage(err error) string {
	if rerr, ok := registry.AsError(err); ok {
		if len(rerr.GlobalErrors) > 0 {
			return strings.Join(rerr.GlobalErrors, ", ")
		}
		if rerr.Message != "" {
			return rerr.Message
		}
	}
	return GenericFailureMessage
}

// StartSession fetches the attribute-type schema and opens a session at loc.
func (s *Service) StartSession(ctx context.Context, loc Location) (View, error) {
	types, err := s.AttributeTypes(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("cannot start registration session")
		return View{}, err
	}
	sess := newSession(uuid.NewString(), loc, types, s.now())
	s.sessions.Add(sess)
	return sess.View(), nil
}

func (s *Service) Session(id string) (View, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return View{}, err
	}
	return sess.View(), nil
}

// UpdateInput replaces the session's form and recomputes the age from the
// date of birth. An unparsable date yields a zero age.
func (s *Service) UpdateInput(id string, in Input) (View, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return View{}, err
	}
	a, _ := s.AgeOf(in.DateOfBirth)
	if err := sess.setInput(in, a, s.now()); err != nil {
		return View{}, err
	}
	return sess.View(), nil
}

// Submit registers the session's current input. The returned error is only
// set when the submission could not start; registration failures are
// reported through the Outcome.
func (s *Service) Submit(ctx context.Context, id string, printCard bool) (Outcome, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return Outcome{}, err
	}
	in, loc, types, err := sess.begin(s.now())
	if err != nil {
		return Outcome{}, err
	}

	out := s.register(ctx, loc, types, in, printCard, func() { sess.transition(StateSubmitting) })

	var printable *card.Card
	if out.OK() {
		c := cardFor(out, normalize(in))
		printable = &c
	}
	sess.finish(out, printable, s.now())
	return out, nil
}

// Reset clears the session's form.
func (s *Service) Reset(id string) (View, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return View{}, err
	}
	if err := sess.reset(s.now()); err != nil {
		return View{}, err
	}
	return sess.View(), nil
}

// Card renders the card of the session's most recent registration.
func (s *Service) Card(id string) (*card.Artifact, error) {
	sess, err := s.sessions.Get(id)
	if err != nil {
		return nil, err
	}
	c, ok := sess.lastCard()
	if !ok {
		return nil, ErrNothingToPrint
	}
	return s.renderer.Render(c)
}

func (s *Service) EndSession(id string) error {
	if !s.sessions.Remove(id) {
		return ErrSessionNotFound
	}
	return nil
}
