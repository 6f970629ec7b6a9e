package registration

import (
	"strings"
	"time"

	"github.com/ehr/intake/internal/domain/age"
	"github.com/ehr/intake/internal/domain/attributes"
)

// DateLayout is the wire format for dates of birth.
const DateLayout = "2006-01-02"

// DefaultMaxPhotoBytes bounds the profile image.
const DefaultMaxPhotoBytes = 2 << 20

type Gender string

const (
	GenderMale   Gender = "Male"
	GenderFemale Gender = "Female"
	GenderOther  Gender = "Other"
)

// Code returns the registry's sex code for g.
func (g Gender) Code() string {
	switch g {
	case GenderMale:
		return "M"
	case GenderFemale:
		return "F"
	case GenderOther:
		return "O"
	}
	return ""
}

// Location is the operating location supplied by the operator's session.
type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Input is the mutable registration form owned by one session.
type Input struct {
	GivenName          string `json:"given_name" validate:"required"`
	FamilyName         string `json:"family_name" validate:"required"`
	DateOfBirth        string `json:"date_of_birth" validate:"required,datetime=2006-01-02"`
	Gender             Gender `json:"gender" validate:"required,oneof=Male Female Other"`
	ExistingPHN        string `json:"existing_phn,omitempty"`
	TelephoneResidence string `json:"telephone_residence,omitempty"`
	TelephoneMobile    string `json:"telephone_mobile,omitempty"`
	NationalID         string `json:"national_id,omitempty"`
	Photo              []byte `json:"photo,omitempty"`
	PhotoContentType   string `json:"photo_content_type,omitempty"`
}

// IsEmpty reports whether in is the empty baseline.
func (in Input) IsEmpty() bool {
	return in.GivenName == "" && in.FamilyName == "" && in.DateOfBirth == "" && in.Gender == "" &&
		in.ExistingPHN == "" && in.TelephoneResidence == "" && in.TelephoneMobile == "" &&
		in.NationalID == "" && len(in.Photo) == 0 && in.PhotoContentType == ""
}

// DisplayName is the given and family name joined by a space.
func (in Input) DisplayName() string {
	return strings.TrimSpace(strings.TrimSpace(in.GivenName) + " " + strings.TrimSpace(in.FamilyName))
}

func (in Input) attributeValues() map[attributes.Field]string {
	return map[attributes.Field]string{
		attributes.FieldTelephoneResidence: in.TelephoneResidence,
		attributes.FieldTelephoneMobile:    in.TelephoneMobile,
		attributes.FieldNationalID:         in.NationalID,
	}
}

// ParseDateOfBirth parses a YYYY-MM-DD date as local midnight in loc.
func ParseDateOfBirth(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
}

type OutcomeKind string

const (
	OutcomeSuccess           OutcomeKind = "success"
	OutcomeValidationFailure OutcomeKind = "validation_failure"
	OutcomeServerFailure     OutcomeKind = "server_failure"
)

// Outcome is the result of one submission attempt.
type Outcome struct {
	Kind           OutcomeKind `json:"kind"`
	PHN            string      `json:"phn,omitempty"`
	DisplayName    string      `json:"display_name,omitempty"`
	PatientUUID    string      `json:"patient_uuid,omitempty"`
	PrintRequested bool        `json:"print_requested,omitempty"`
	Message        string      `json:"message,omitempty"`
}

func Succeeded(phn, displayName, patientUUID string, printCard bool) Outcome {
	return Outcome{Kind: OutcomeSuccess, PHN: phn, DisplayName: displayName, PatientUUID: patientUUID, PrintRequested: printCard}
}

func ValidationFailed(msg string) Outcome {
	return Outcome{Kind: OutcomeValidationFailure, Message: msg}
}

func ServerFailed(msg string) Outcome {
	return Outcome{Kind: OutcomeServerFailure, Message: msg}
}

func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

// View is a point-in-time snapshot of a session.
type View struct {
	ID             string            `json:"id"`
	State          State             `json:"state"`
	Location       Location          `json:"location"`
	Input          Input             `json:"input"`
	Age            age.Age           `json:"age"`
	AttributeTypes []attributes.Type `json:"attribute_types"`
	LastOutcome    *Outcome          `json:"last_outcome,omitempty"`
	UpdatedAt      time.Time         `json:"updated_at"`
}
