package registrystub_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/intake/internal/domain/registration"
	"github.com/ehr/intake/internal/platform/cache"
	"github.com/ehr/intake/internal/registry"
	"github.com/ehr/intake/internal/registrystub"
)

// TestRegistrationAgainstStub drives a full intake session through the real
// registry client and schema cache.
func TestRegistrationAgainstStub(t *testing.T) {
	stub := registrystub.NewServer(registrystub.NewMemoryStore(registrystub.DefaultAttributeTypes), zerolog.Nop())
	ts := httptest.NewServer(stub.Echo(registrystub.ServerConfig{Username: "intake", Password: "pw"}))
	defer ts.Close()

	client := registry.NewClient(registry.ClientConfig{
		BaseURL:  ts.URL + "/ws/rest/v1",
		Username: "intake",
		Password: "pw",
		Timeout:  5 * time.Second,
	}, zerolog.Nop(), nil)
	schema := registry.NewSchemaCache(client, cache.NewMemoryStore(), time.Minute, zerolog.Nop())

	tz := time.FixedZone("+0530", 5*3600+30*60)
	svc := registration.NewService(registration.Config{
		PHNIdentifierType: "a5d38e09-efcb-4d91-a526-50ce1ba5011a",
		TimeZone:          tz,
	}, schema, client, registration.NewSessionStore(time.Hour, nil), zerolog.Nop())

	ctx := context.Background()
	view, err := svc.StartSession(ctx, registration.Location{ID: "loc-1", Name: "Colombo OPD"})
	require.NoError(t, err)
	require.Len(t, view.AttributeTypes, len(registrystub.DefaultAttributeTypes))

	_, err = svc.UpdateInput(view.ID, registration.Input{
		GivenName:          "Amal",
		FamilyName:         "Perera",
		DateOfBirth:        "1990-05-14",
		Gender:             registration.GenderMale,
		TelephoneResidence: "0112345678",
		TelephoneMobile:    "0771234567",
		NationalID:         "901351234V",
	})
	require.NoError(t, err)

	out, err := svc.Submit(ctx, view.ID, false)
	require.NoError(t, err)
	require.True(t, out.OK(), "unexpected outcome: %+v", out)
	assert.Len(t, out.PHN, 10)
	assert.Equal(t, "Amal Perera", out.DisplayName)
	assert.NotEmpty(t, out.PatientUUID)

	after, err := svc.Session(view.ID)
	require.NoError(t, err)
	assert.Equal(t, registration.StateSucceeded, after.State)
	assert.True(t, after.Input.IsEmpty())

	artifact, err := svc.Card(view.ID)
	require.NoError(t, err)
	assert.Contains(t, string(artifact.Body), out.PHN)

	// Reusing the PHN is rejected by the registry and surfaced verbatim.
	_, err = svc.UpdateInput(view.ID, registration.Input{
		GivenName:   "Nimal",
		FamilyName:  "Silva",
		DateOfBirth: "1985-01-02",
		Gender:      registration.GenderMale,
		ExistingPHN: out.PHN,
	})
	require.NoError(t, err)

	dup, err := svc.Submit(ctx, view.ID, false)
	require.NoError(t, err)
	assert.Equal(t, registration.OutcomeServerFailure, dup.Kind)
	assert.Equal(t, "Identifier "+out.PHN+" already in use by another patient", dup.Message)
}
