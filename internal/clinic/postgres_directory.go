package clinic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// directoryDB is the subset of pgxpool.Pool the directory needs.
type directoryDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const doctorColumns = `id, name, email, specialization, COALESCE(slack_id, ''), COALESCE(phone, '')`

// PostgresDirectory reads doctors and templates from Postgres.
type PostgresDirectory struct {
	db directoryDB
}

// NewPostgresDirectory creates a directory backed by a pgx pool.
func NewPostgresDirectory(pool *pgxpool.Pool) *PostgresDirectory {
	if pool == nil {
		panic("clinic: pgx pool required for directory")
	}
	return &PostgresDirectory{db: pool}
}

// NewPostgresDirectoryWithDB allows injecting a mock database for testing.
func NewPostgresDirectoryWithDB(db directoryDB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) SearchDoctors(ctx context.Context, fragment string) ([]Doctor, error) {
	rows, err := d.db.Query(ctx,
		`SELECT `+doctorColumns+` FROM doctors WHERE name ILIKE '%' || $1 || '%' ORDER BY id`, fragment)
	if err != nil {
		return nil, fmt.Errorf("clinic: search doctors: %w", err)
	}
	return collectDoctors(rows)
}

func (d *PostgresDirectory) GetDoctor(ctx context.Context, id int64) (*Doctor, error) {
	var doc Doctor
	err := d.db.QueryRow(ctx, `SELECT `+doctorColumns+` FROM doctors WHERE id = $1`, id).
		Scan(&doc.ID, &doc.Name, &doc.Email, &doc.Specialization, &doc.SlackID, &doc.Phone)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDoctorNotFound
		}
		return nil, fmt.Errorf("clinic: get doctor: %w", err)
	}
	return &doc, nil
}

func (d *PostgresDirectory) ListDoctors(ctx context.Context, specialization string) ([]Doctor, error) {
	rows, err := d.db.Query(ctx,
		`SELECT `+doctorColumns+` FROM doctors WHERE ($1 = '' OR specialization ILIKE '%' || $1 || '%') ORDER BY name`,
		specialization)
	if err != nil {
		return nil, fmt.Errorf("clinic: list doctors: %w", err)
	}
	return collectDoctors(rows)
}

func (d *PostgresDirectory) Templates(ctx context.Context, doctorID int64, weekday int) ([]AvailabilityTemplate, error) {
	rows, err := d.db.Query(ctx, `
		SELECT doctor_id, day_of_week, to_char(start_time, 'HH24:MI'), to_char(end_time, 'HH24:MI'), slot_duration_minutes
		FROM availability_templates
		WHERE doctor_id = $1 AND day_of_week = $2
		ORDER BY start_time`, doctorID, weekday)
	if err != nil {
		return nil, fmt.Errorf("clinic: list templates: %w", err)
	}
	defer rows.Close()

	var out []AvailabilityTemplate
	for rows.Next() {
		var (
			tpl        AvailabilityTemplate
			start, end string
			slotMins   int
		)
		if err := rows.Scan(&tpl.DoctorID, &tpl.Weekday, &start, &end, &slotMins); err != nil {
			return nil, fmt.Errorf("clinic: scan template: %w", err)
		}
		if tpl.Start, err = ParseClock(start); err != nil {
			return nil, err
		}
		if tpl.End, err = ParseClock(end); err != nil {
			return nil, err
		}
		tpl.SlotDuration = time.Duration(slotMins) * time.Minute
		out = append(out, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clinic: iterate templates: %w", err)
	}
	return out, nil
}

func collectDoctors(rows pgx.Rows) ([]Doctor, error) {
	defer rows.Close()
	var out []Doctor
	for rows.Next() {
		var doc Doctor
		if err := rows.Scan(&doc.ID, &doc.Name, &doc.Email, &doc.Specialization, &doc.SlackID, &doc.Phone); err != nil {
			return nil, fmt.Errorf("clinic: scan doctor: %w", err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clinic: iterate doctors: %w", err)
	}
	return out, nil
}

var _ Directory = (*PostgresDirectory)(nil)
