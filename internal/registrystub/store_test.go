package registrystub

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehr/intake/internal/domain/attributes"
	"github.com/ehr/intake/internal/platform/db"
	"github.com/ehr/intake/pkg/pagination"
)

func TestMigrations_Load(t *testing.T) {
	migs, err := db.NewMigrator(nil, Migrations()).LoadMigrations()
	require.NoError(t, err)
	require.Len(t, migs, 2)
	assert.Equal(t, 1, migs[0].Version)
	assert.Contains(t, migs[0].SQL, "CREATE TABLE IF NOT EXISTS patient_identifiers")

	// The seed migration and the in-memory defaults describe the same types.
	for _, at := range DefaultAttributeTypes {
		assert.True(t, strings.Contains(migs[1].SQL, at.UUID), "seed is missing %s", at.Display)
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	store := NewMemoryStore(DefaultAttributeTypes)
	ctx := context.Background()

	rec := &PatientRecord{
		UUID:       "p-1",
		Identifier: "1234567890",
		GivenName:  "Amal",
		Attributes: []attributes.Assignment{{AttributeTypeID: DefaultAttributeTypes[2].UUID, Value: "0771234567"}},
	}
	require.NoError(t, store.CreatePatient(ctx, rec))

	// Callers cannot mutate stored records.
	rec.Attributes[0].Value = "changed"
	got, err := store.GetPatient(ctx, "p-1")
	require.NoError(t, err)
	assert.Equal(t, "0771234567", got.Attributes[0].Value)

	_, err = store.GetPatient(ctx, "p-2")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestMemoryStore_Constraints(t *testing.T) {
	store := NewMemoryStore(DefaultAttributeTypes)
	ctx := context.Background()

	require.NoError(t, store.CreatePatient(ctx, &PatientRecord{UUID: "p-1", Identifier: "1111111111"}))
	assert.ErrorIs(t, store.CreatePatient(ctx, &PatientRecord{UUID: "p-2", Identifier: "1111111111"}), ErrDuplicateIdentifier)
	assert.ErrorIs(t, store.CreatePatient(ctx, &PatientRecord{
		UUID:       "p-3",
		Identifier: "2222222222",
		Attributes: []attributes.Assignment{{AttributeTypeID: "unknown", Value: "x"}},
	}), ErrUnknownAttribute)

	_, err := store.GetPatient(ctx, "p-3")
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestMemoryStore_Paging(t *testing.T) {
	store := NewMemoryStore(DefaultAttributeTypes)
	ctx := context.Background()

	base := time.Date(2026, 10, 19, 8, 0, 0, 0, time.UTC)
	for i, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.CreatePatient(ctx, &PatientRecord{
			UUID:       id,
			Identifier: id + "000000000",
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	page, total, err := store.ListPatients(ctx, pagination.Params{Limit: 2, StartIndex: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, "a", page[0].UUID)
	assert.Equal(t, "b", page[1].UUID)

	types, total, err := store.AttributeTypes(ctx, pagination.Params{Limit: 10, StartIndex: 4})
	require.NoError(t, err)
	assert.Equal(t, len(DefaultAttributeTypes), total)
	assert.Len(t, types, 1)
}
