// Package registrystub is a small stand-in for the patient registry's REST
// API. It serves the attribute-type listing and patient creation endpoints
// the intake service calls, enforces identifier uniqueness and reports
// validation problems in the registry's error envelope.
package registrystub

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/ehr/intake/internal/registry"
	"github.com/ehr/intake/pkg/pagination"
)

const birthdateLayout = "2006-01-02T15:04:05.000-0700"

// ServerConfig configures the stub's HTTP surface. Basic auth is enforced
// when Username is set.
type ServerConfig struct {
	Username string
	Password string
}

// Server handles the registry endpoints.
type Server struct {
	store  Store
	logger zerolog.Logger
	now    func() time.Time
	newID  func() string
}

func NewServer(store Store, logger zerolog.Logger) *Server {
	return &Server{
		store:  store,
		logger: logger.With().Str("component", "registry-stub").Logger(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Echo returns an echo instance serving the stub at /ws/rest/v1.
func (s *Server) Echo(cfg ServerConfig) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = ErrorHandler
	e.Use(echomw.Recover())

	g := e.Group("/ws/rest/v1")
	if cfg.Username != "" {
		g.Use(echomw.BasicAuth(func(user, pass string, _ echo.Context) (bool, error) {
			return user == cfg.Username && pass == cfg.Password, nil
		}))
	}
	s.RegisterRoutes(g)
	return e
}

func (s *Server) RegisterRoutes(g *echo.Group) {
	g.GET("/personattributetype", s.ListAttributeTypes)
	g.POST("/patient", s.CreatePatient)
	g.GET("/patient", s.ListPatients)
	g.GET("/patient/:uuid", s.GetPatient)
}

type listResponse[T any] struct {
	Results []T               `json:"results"`
	Links   []pagination.Link `json:"links,omitempty"`
}

func (s *Server) ListAttributeTypes(c echo.Context) error {
	p := pagination.FromContext(c)
	types, total, err := s.store.AttributeTypes(c.Request().Context(), p)
	if err != nil {
		s.logger.Error().Err(err).Msg("list attribute types")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list person attribute types")
	}

	results := make([]registry.AttributeTypeResult, 0, len(types))
	for _, t := range types {
		results = append(results, registry.AttributeTypeResult{UUID: t.UUID, Display: t.Display, Format: t.Format})
	}
	return c.JSON(http.StatusOK, listResponse[registry.AttributeTypeResult]{
		Results: results,
		Links:   p.Links(c.Request().URL.Path, total),
	})
}

func (s *Server) CreatePatient(c echo.Context) error {
	var req registry.CreatePatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if errs := validateCreate(&req); len(errs) > 0 {
		return &ValidationError{GlobalErrors: errs}
	}

	id := req.Identifiers[0]
	name := req.Person.Names[0]
	rec := &PatientRecord{
		UUID:           s.newID(),
		Identifier:     id.Identifier,
		IdentifierType: id.IdentifierType,
		LocationUUID:   id.Location,
		GivenName:      name.GivenName,
		FamilyName:     name.FamilyName,
		Gender:         req.Person.Gender,
		Birthdate:      req.Person.Birthdate,
		Age:            req.Person.Age,
		Attributes:     req.Person.Attributes,
		CreatedAt:      s.now().UTC(),
	}

	err := s.store.CreatePatient(c.Request().Context(), rec)
	switch {
	case errors.Is(err, ErrDuplicateIdentifier):
		return &ValidationError{GlobalErrors: []string{
			fmt.Sprintf("Identifier %s already in use by another patient", id.Identifier),
		}}
	case errors.Is(err, ErrUnknownAttribute):
		return &ValidationError{GlobalErrors: []string{"Person attribute type not found"}}
	case err != nil:
		s.logger.Error().Err(err).Msg("create patient")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create patient")
	}

	s.logger.Info().Str("patient_uuid", rec.UUID).Str("identifier", rec.Identifier).Msg("patient created")
	return c.JSON(http.StatusCreated, toPatient(rec))
}

func (s *Server) GetPatient(c echo.Context) error {
	rec, err := s.store.GetPatient(c.Request().Context(), c.Param("uuid"))
	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "Object with given uuid doesn't exist")
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("get patient")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to get patient")
	}
	return c.JSON(http.StatusOK, toPatient(rec))
}

func (s *Server) ListPatients(c echo.Context) error {
	p := pagination.FromContext(c)
	recs, total, err := s.store.ListPatients(c.Request().Context(), p)
	if err != nil {
		s.logger.Error().Err(err).Msg("list patients")
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list patients")
	}

	results := make([]registry.Patient, 0, len(recs))
	for _, rec := range recs {
		results = append(results, toPatient(rec))
	}
	return c.JSON(http.StatusOK, listResponse[registry.Patient]{
		Results: results,
		Links:   p.Links(c.Request().URL.Path, total),
	})
}

func validateCreate(req *registry.CreatePatientRequest) []string {
	var errs []string
	if len(req.Identifiers) == 0 {
		errs = append(errs, "Patient must have at least one identifier")
	} else {
		id := req.Identifiers[0]
		if strings.TrimSpace(id.Identifier) == "" {
			errs = append(errs, "Identifier required")
		}
		if id.IdentifierType == "" {
			errs = append(errs, "Identifier type required")
		}
		if id.Location == "" {
			errs = append(errs, "Identifier location required")
		}
	}

	if len(req.Person.Names) == 0 || strings.TrimSpace(req.Person.Names[0].GivenName) == "" {
		errs = append(errs, "Name required")
	}
	switch req.Person.Gender {
	case "M", "F", "O":
	case "":
		errs = append(errs, "Gender required")
	default:
		errs = append(errs, "Gender must be M, F or O")
	}
	if req.Person.Birthdate == "" {
		errs = append(errs, "DOB required")
	} else if _, err := time.Parse(birthdateLayout, req.Person.Birthdate); err != nil {
		errs = append(errs, "DOB is not a valid date")
	}
	for _, a := range req.Person.Attributes {
		if a.AttributeTypeID == "" {
			errs = append(errs, "Person attribute type required")
			break
		}
	}
	return errs
}

func toPatient(rec *PatientRecord) registry.Patient {
	name := strings.TrimSpace(rec.GivenName + " " + rec.FamilyName)
	return registry.Patient{
		UUID:    rec.UUID,
		Display: rec.Identifier + " - " + name,
		Identifiers: []registry.PatientIdentifier{{
			Display:    "PHN = " + rec.Identifier,
			Identifier: rec.Identifier,
		}},
		Person: &registry.PatientPerson{
			UUID:      rec.UUID,
			Display:   name,
			Gender:    rec.Gender,
			Age:       rec.Age,
			Birthdate: rec.Birthdate,
		},
	}
}

// ValidationError is a 400 response listing global validation errors.
type ValidationError struct {
	GlobalErrors []string
}

func (e *ValidationError) Error() string {
	return "invalid submission: " + strings.Join(e.GlobalErrors, ", ")
}

// ErrorHandler renders errors in the registry's error envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	body := registry.ErrorResponse{Error: registry.ErrorBody{Message: "internal server error"}}

	var verr *ValidationError
	var herr *echo.HTTPError
	switch {
	case errors.As(err, &verr):
		status = http.StatusBadRequest
		body.Error.Message = "Invalid Submission"
		body.Error.Code = "webservices.rest.error.invalid.submission"
		for _, msg := range verr.GlobalErrors {
			body.Error.GlobalErrors = append(body.Error.GlobalErrors, registry.ErrorItem{Message: msg})
		}
	case errors.As(err, &herr):
		status = herr.Code
		body.Error.Message = fmt.Sprint(herr.Message)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = c.JSON(status, body)
}
