package registry

import "github.com/ehr/intake/internal/domain/attributes"

// CreatePatientRequest is the body of a patient creation call.
type CreatePatientRequest struct {
	Identifiers []Identifier `json:"identifiers"`
	Person      Person       `json:"person"`
}

// Identifier assigns an identifier value of a given type at a location.
type Identifier struct {
	Identifier     string `json:"identifier"`
	IdentifierType string `json:"identifierType"`
	Location       string `json:"location"`
	Preferred      bool   `json:"preferred"`
}

// Person carries the demographics of the patient being created.
type Person struct {
	Gender     string                  `json:"gender"`
	Age        int                     `json:"age"`
	Birthdate  string                  `json:"birthdate"`
	Names      []PersonName            `json:"names"`
	Attributes []attributes.Assignment `json:"attributes,omitempty"`
}

// PersonName is a structured name.
type PersonName struct {
	GivenName  string `json:"givenName"`
	FamilyName string `json:"familyName"`
}

// Patient is the registry's representation of a created patient.
type Patient struct {
	UUID        string              `json:"uuid"`
	Display     string              `json:"display"`
	Identifiers []PatientIdentifier `json:"identifiers,omitempty"`
	Person      *PatientPerson      `json:"person,omitempty"`
}

// PatientIdentifier is an identifier as echoed back by the registry.
type PatientIdentifier struct {
	UUID       string `json:"uuid,omitempty"`
	Display    string `json:"display,omitempty"`
	Identifier string `json:"identifier,omitempty"`
}

// PatientPerson is the person part of a created patient.
type PatientPerson struct {
	UUID      string `json:"uuid,omitempty"`
	Display   string `json:"display,omitempty"`
	Gender    string `json:"gender,omitempty"`
	Age       int    `json:"age,omitempty"`
	Birthdate string `json:"birthdate,omitempty"`
}

// AttributeTypeResult is one entry of the attribute-type listing.
type AttributeTypeResult struct {
	UUID    string `json:"uuid"`
	Display string `json:"display"`
	Format  string `json:"format"`
}

// AttributeTypeList is the attribute-type listing envelope.
type AttributeTypeList struct {
	Results []AttributeTypeResult `json:"results"`
}

// ErrorResponse is the registry's structured error envelope.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// ErrorBody describes why the registry rejected a request.
type ErrorBody struct {
	Message      string                 `json:"message,omitempty"`
	Code         string                 `json:"code,omitempty"`
	GlobalErrors []ErrorItem            `json:"globalErrors,omitempty"`
	FieldErrors  map[string][]ErrorItem `json:"fieldErrors,omitempty"`
}

// ErrorItem is a single validation message.
type ErrorItem struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}
