package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type appointmentsDB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const appointmentColumns = `id, doctor_id, patient_name, patient_email, start_time, COALESCE(reason, ''), status, COALESCE(google_calendar_event_id, ''), created_at`

// PostgresRepository stores appointments in the relational database.
type PostgresRepository struct {
	db appointmentsDB
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &PostgresRepository{db: pool}
}

// NewPostgresRepositoryWithDB allows injecting a mock database for testing.
func NewPostgresRepositoryWithDB(db appointmentsDB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) FindActiveAt(ctx context.Context, doctorID int64, start time.Time) (*Appointment, error) {
	row := r.db.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND start_time = $2 AND status <> 'cancelled'
		LIMIT 1`, doctorID, start.UTC())
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("appointments: find active: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) Create(ctx context.Context, appt *Appointment) error {
	if appt == nil {
		return fmt.Errorf("appointments: nil appointment")
	}
	if appt.Status == "" {
		appt.Status = StatusScheduled
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO appointments (doctor_id, patient_name, patient_email, start_time, reason, status)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), $6)
		RETURNING id, created_at`,
		appt.DoctorID,
		appt.PatientName,
		appt.PatientEmail,
		appt.StartTime.UTC(),
		appt.Reason,
		string(appt.Status),
	).Scan(&appt.ID, &appt.CreatedAt)
	if err != nil {
		return fmt.Errorf("appointments: insert failed: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListActiveBetween(ctx context.Context, doctorID int64, from, to time.Time) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND start_time >= $2 AND start_time < $3 AND status <> 'cancelled'
		ORDER BY start_time`, doctorID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("appointments: list active: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PostgresRepository) ListBetween(ctx context.Context, doctorID int64, from, to time.Time, reasonFilter string) ([]Appointment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE doctor_id = $1 AND start_time >= $2 AND start_time < $3
		  AND ($4 = '' OR reason ILIKE '%' || $4 || '%')
		ORDER BY start_time`, doctorID, from.UTC(), to.UTC(), reasonFilter)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PostgresRepository) SetCalendarRef(ctx context.Context, id int64, ref string) error {
	tag, err := r.db.Exec(ctx, `UPDATE appointments SET google_calendar_event_id = $2 WHERE id = $1`, id, ref)
	if err != nil {
		return fmt.Errorf("appointments: set calendar ref: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("appointments: appointment %d not found", id)
	}
	return nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt   Appointment
		status string
	)
	if err := row.Scan(
		&appt.ID,
		&appt.DoctorID,
		&appt.PatientName,
		&appt.PatientEmail,
		&appt.StartTime,
		&appt.Reason,
		&status,
		&appt.CalendarRef,
		&appt.CreatedAt,
	); err != nil {
		return nil, err
	}
	appt.Status = Status(status)
	return &appt, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()
	var out []Appointment
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("appointments: scan: %w", err)
		}
		out = append(out, *appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

var _ Repository = (*PostgresRepository)(nil)
