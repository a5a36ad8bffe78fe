package clinic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/geekyuvi069/CureLink/pkg/logging"
)

// SeedDoctor is a directory entry plus its weekly hours.
type SeedDoctor struct {
	Doctor      Doctor
	Weekdays    []int // 0 = Monday
	Start       string
	End         string
	SlotMinutes int
}

// DefaultSeed is the starter directory loaded by cmd/seed.
var DefaultSeed = []SeedDoctor{
	{Doctor: Doctor{Name: "Dr. Rajesh Ahuja", Email: "ahuja@hospital.com", Specialization: "General Physician", Phone: "+91-9876543210"}, Weekdays: []int{0, 2, 4}, Start: "09:00", End: "17:00", SlotMinutes: 30},
	{Doctor: Doctor{Name: "Dr. Sarah Smith", Email: "smith@hospital.com", Specialization: "Cardiologist", Phone: "+91-9876543211"}, Weekdays: []int{1, 3, 5}, Start: "10:00", End: "16:00", SlotMinutes: 30},
	{Doctor: Doctor{Name: "Dr. Michael Molar", Email: "molar@hospital.com", Specialization: "Dentist", Phone: "+91-9876543212"}, Weekdays: []int{0, 1, 2, 3, 4}, Start: "09:00", End: "18:00", SlotMinutes: 30},
	{Doctor: Doctor{Name: "Dr. Priya Sharma", Email: "sharma@hospital.com", Specialization: "Pediatrician", Phone: "+91-9876543213"}, Weekdays: []int{0, 2, 4, 5}, Start: "08:00", End: "14:00", SlotMinutes: 30},
	{Doctor: Doctor{Name: "Dr. James Wilson", Email: "wilson@hospital.com", Specialization: "Orthopedic Surgeon", Phone: "+91-9876543214"}, Weekdays: []int{1, 3, 5}, Start: "11:00", End: "17:00", SlotMinutes: 30},
	{Doctor: Doctor{Name: "Dr. Robert Chen", Email: "chen@hospital.com", Specialization: "Neurologist", Phone: "+91-9876543216"}, Weekdays: []int{2, 4, 5}, Start: "10:00", End: "16:00", SlotMinutes: 30},
	{Doctor: Doctor{Name: "Dr. Kavita Reddy", Email: "reddy@hospital.com", Specialization: "Dermatologist", Phone: "+91-9876543217"}, Weekdays: []int{0, 2, 4}, Start: "14:00", End: "19:00", SlotMinutes: 30},
	{Doctor: Doctor{Name: "Dr. David Kumar", Email: "kumar@hospital.com", Specialization: "Ophthalmologist", Phone: "+91-9876543218"}, Weekdays: []int{1, 3, 5}, Start: "09:00", End: "17:00", SlotMinutes: 30},
}

// Seeder loads doctors and templates through database/sql so it can run from
// the same pgx stdlib connection the migrator uses.
type Seeder struct {
	db     *sql.DB
	logger *logging.Logger
}

func NewSeeder(db *sql.DB, logger *logging.Logger) *Seeder {
	if logger == nil {
		logger = logging.Default()
	}
	return &Seeder{db: db, logger: logger}
}

// Seed inserts each doctor that is not already present by name, together with
// its templates, one transaction per doctor. It returns how many were inserted.
func (s *Seeder) Seed(ctx context.Context, entries []SeedDoctor) (int, error) {
	inserted := 0
	for _, entry := range entries {
		created, err := s.seedOne(ctx, entry)
		if err != nil {
			return inserted, err
		}
		if created {
			inserted++
		}
	}
	return inserted, nil
}

func (s *Seeder) seedOne(ctx context.Context, entry SeedDoctor) (bool, error) {
	if _, err := ParseClock(entry.Start); err != nil {
		return false, err
	}
	if _, err := ParseClock(entry.End); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("clinic: seed begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx, `SELECT id FROM doctors WHERE name = $1`, entry.Doctor.Name).Scan(&existing)
	switch {
	case err == nil:
		s.logger.Info("doctor already seeded", "doctor", entry.Doctor.Name, "doctor_id", existing)
		return false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return false, fmt.Errorf("clinic: seed lookup %q: %w", entry.Doctor.Name, err)
	}

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO doctors (name, email, specialization, slack_id, phone)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
		RETURNING id`,
		entry.Doctor.Name, entry.Doctor.Email, entry.Doctor.Specialization, entry.Doctor.SlackID, entry.Doctor.Phone,
	).Scan(&id)
	if err != nil {
		return false, fmt.Errorf("clinic: seed insert %q: %w", entry.Doctor.Name, err)
	}

	for _, day := range entry.Weekdays {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO availability_templates (doctor_id, day_of_week, start_time, end_time, slot_duration_minutes)
			VALUES ($1, $2, $3::time, $4::time, $5)`,
			id, day, entry.Start, entry.End, entry.SlotMinutes,
		); err != nil {
			return false, fmt.Errorf("clinic: seed template %q day %d: %w", entry.Doctor.Name, day, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("clinic: seed commit: %w", err)
	}
	s.logger.Info("doctor seeded", "doctor", entry.Doctor.Name, "doctor_id", id, "weekdays", len(entry.Weekdays))
	return true, nil
}

// LoadMemory fills an in-process directory with entries, for running without
// a database.
func LoadMemory(dir *MemoryDirectory, entries []SeedDoctor) error {
	for _, entry := range entries {
		start, err := ParseClock(entry.Start)
		if err != nil {
			return err
		}
		end, err := ParseClock(entry.End)
		if err != nil {
			return err
		}
		doc := dir.AddDoctor(entry.Doctor)
		for _, day := range entry.Weekdays {
			dir.AddTemplate(AvailabilityTemplate{
				DoctorID:     doc.ID,
				Weekday:      day,
				Start:        start,
				End:          end,
				SlotDuration: time.Duration(entry.SlotMinutes) * time.Minute,
			})
		}
	}
	return nil
}
