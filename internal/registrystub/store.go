package registrystub

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ehr/intake/internal/domain/attributes"
	"github.com/ehr/intake/pkg/pagination"
)

var (
	ErrDuplicateIdentifier = errors.New("identifier already in use")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrUnknownAttribute    = errors.New("unknown person attribute type")
)

// AttributeType is a stored person-attribute type.
type AttributeType struct {
	UUID    string
	Display string
	Format  string
}

// DefaultAttributeTypes seeds the in-memory store. They mirror the seed
// migration.
var DefaultAttributeTypes = []AttributeType{
	{UUID: "14d4f066-15f5-102d-96e4-000c29c2a5d7", Display: "Telephone Number", Format: "java.lang.String"},
	{UUID: "8d8718c2-c2cc-11de-8d13-0010c6dffd0f", Display: "Birthplace", Format: "java.lang.String"},
	{UUID: "c8ba5d9e-3a5b-4e8c-9f1e-6a7b2c9d0e11", Display: "Mobile Number", Format: "java.lang.String"},
	{UUID: "f3b1a2c4-5d6e-4f70-8a9b-0c1d2e3f4a55", Display: "NIC Number", Format: "java.lang.String"},
	{UUID: "8d871d18-c2cc-11de-8d13-0010c6dffd0f", Display: "Health Center", Format: "org.openmrs.Location"},
}

// PatientRecord is a registered patient.
type PatientRecord struct {
	UUID           string
	Identifier     string
	IdentifierType string
	LocationUUID   string
	GivenName      string
	FamilyName     string
	Gender         string
	Birthdate      string
	Age            int
	Attributes     []attributes.Assignment
	CreatedAt      time.Time
}

// Store persists the stub registry's data.
type Store interface {
	AttributeTypes(ctx context.Context, p pagination.Params) ([]AttributeType, int, error)
	CreatePatient(ctx context.Context, rec *PatientRecord) error
	GetPatient(ctx context.Context, uuid string) (*PatientRecord, error)
	ListPatients(ctx context.Context, p pagination.Params) ([]*PatientRecord, int, error)
}

type memoryStore struct {
	mu          sync.RWMutex
	types       []AttributeType
	patients    map[string]*PatientRecord
	identifiers map[string]string
}

// NewMemoryStore returns a Store seeded with types.
func NewMemoryStore(types []AttributeType) Store {
	return &memoryStore{
		types:       append([]AttributeType(nil), types...),
		patients:    make(map[string]*PatientRecord),
		identifiers: make(map[string]string),
	}
}

func (s *memoryStore) AttributeTypes(_ context.Context, p pagination.Params) ([]AttributeType, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lo, hi := p.Window(len(s.types))
	return append([]AttributeType(nil), s.types[lo:hi]...), len(s.types), nil
}

func (s *memoryStore) CreatePatient(_ context.Context, rec *PatientRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.identifiers[rec.Identifier]; taken {
		return ErrDuplicateIdentifier
	}
	for _, a := range rec.Attributes {
		if !s.knownType(a.AttributeTypeID) {
			return ErrUnknownAttribute
		}
	}
	cp := *rec
	cp.Attributes = append([]attributes.Assignment(nil), rec.Attributes...)
	s.patients[rec.UUID] = &cp
	s.identifiers[rec.Identifier] = rec.UUID
	return nil
}

func (s *memoryStore) knownType(id string) bool {
	for _, t := range s.types {
		if t.UUID == id {
			return true
		}
	}
	return false
}

func (s *memoryStore) GetPatient(_ context.Context, uuid string) (*PatientRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.patients[uuid]
	if !ok {
		return nil, ErrPatientNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *memoryStore) ListPatients(_ context.Context, p pagination.Params) ([]*PatientRecord, int, error) {
	s.mu.RLock()
	all := make([]*PatientRecord, 0, len(s.patients))
	for _, rec := range s.patients {
		cp := *rec
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].UUID < all[j].UUID
		}
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})
	lo, hi := p.Window(len(all))
	return all[lo:hi], len(all), nil
}
