package registrystub

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/intake/internal/domain/attributes"
	"github.com/ehr/intake/pkg/pagination"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations for the Postgres store.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

type pgStore struct {
	pool *pgxpool.Pool
}

// NewPGStore returns a Store backed by Postgres. The schema is created by
// the migrations from Migrations.
func NewPGStore(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool}
}

func (s *pgStore) AttributeTypes(ctx context.Context, p pagination.Params) ([]AttributeType, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM person_attribute_types`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count attribute types: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT uuid, display, format FROM person_attribute_types
		ORDER BY sort_weight, display
		LIMIT $1 OFFSET $2`, p.Limit, p.StartIndex)
	if err != nil {
		return nil, 0, fmt.Errorf("query attribute types: %w", err)
	}
	defer rows.Close()

	var types []AttributeType
	for rows.Next() {
		var t AttributeType
		if err := rows.Scan(&t.UUID, &t.Display, &t.Format); err != nil {
			return nil, 0, fmt.Errorf("scan attribute type: %w", err)
		}
		types = append(types, t)
	}
	return types, total, rows.Err()
}

func (s *pgStore) CreatePatient(ctx context.Context, rec *PatientRecord) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO patients (uuid, given_name, family_name, gender, birthdate, age, location_uuid)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		rec.UUID, rec.GivenName, rec.FamilyName, rec.Gender, rec.Birthdate, rec.Age, rec.LocationUUID,
	).Scan(&rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert patient: %w", err)
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO patient_identifiers (identifier, identifier_type, patient_uuid)
		VALUES ($1, $2, $3)`,
		rec.Identifier, rec.IdentifierType, rec.UUID,
	); err != nil {
		return translatePGError("insert identifier", err)
	}

	if len(rec.Attributes) > 0 {
		batch := &pgx.Batch{}
		for i, a := range rec.Attributes {
			batch.Queue(`
				INSERT INTO person_attributes (patient_uuid, position, attribute_type_uuid, value)
				VALUES ($1, $2, $3, $4)`, rec.UUID, i, a.AttributeTypeID, a.Value)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return translatePGError("insert attributes", err)
		}
	}

	return tx.Commit(ctx)
}

func translatePGError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicateIdentifier
		case pgForeignKeyViolation:
			return ErrUnknownAttribute
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

const patientColumns = `p.uuid, i.identifier, i.identifier_type, p.location_uuid,
	p.given_name, p.family_name, p.gender, p.birthdate, p.age, p.created_at`

func (s *pgStore) GetPatient(ctx context.Context, uuid string) (*PatientRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT `+patientColumns+`
		FROM patients p JOIN patient_identifiers i ON i.patient_uuid = p.uuid
		WHERE p.uuid = $1`, uuid)
	rec, err := scanPatient(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get patient: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT attribute_type_uuid, value FROM person_attributes
		WHERE patient_uuid = $1 ORDER BY position`, uuid)
	if err != nil {
		return nil, fmt.Errorf("query attributes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var a attributes.Assignment
		if err := rows.Scan(&a.AttributeTypeID, &a.Value); err != nil {
			return nil, fmt.Errorf("scan attribute: %w", err)
		}
		rec.Attributes = append(rec.Attributes, a)
	}
	return rec, rows.Err()
}

func (s *pgStore) ListPatients(ctx context.Context, p pagination.Params) ([]*PatientRecord, int, error) {
	var total int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+patientColumns+`
		FROM patients p JOIN patient_identifiers i ON i.patient_uuid = p.uuid
		ORDER BY p.created_at, p.uuid
		LIMIT $1 OFFSET $2`, p.Limit, p.StartIndex)
	if err != nil {
		return nil, 0, fmt.Errorf("query patients: %w", err)
	}
	defer rows.Close()

	var out []*PatientRecord
	for rows.Next() {
		rec, err := scanPatient(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan patient: %w", err)
		}
		out = append(out, rec)
	}
	return out, total, rows.Err()
}

func scanPatient(row pgx.Row) (*PatientRecord, error) {
	var rec PatientRecord
	err := row.Scan(&rec.UUID, &rec.Identifier, &rec.IdentifierType, &rec.LocationUUID,
		&rec.GivenName, &rec.FamilyName, &rec.Gender, &rec.Birthdate, &rec.Age, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
