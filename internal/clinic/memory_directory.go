package clinic

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryDirectory is an in-process Directory used for development and tests.
type MemoryDirectory struct {
	mu        sync.RWMutex
	nextID    int64
	doctors   []Doctor
	templates []AvailabilityTemplate
}

// NewMemoryDirectory creates an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{nextID: 1}
}

// AddDoctor stores a doctor, assigning an id when none is set.
func (d *MemoryDirectory) AddDoctor(doc Doctor) Doctor {
	d.mu.Lock()
	defer d.mu.Unlock()
	if doc.ID == 0 {
		doc.ID = d.nextID
	}
	if doc.ID >= d.nextID {
		d.nextID = doc.ID + 1
	}
	d.doctors = append(d.doctors, doc)
	sort.SliceStable(d.doctors, func(i, j int) bool { return d.doctors[i].ID < d.doctors[j].ID })
	return doc
}

// AddTemplate registers a weekly availability rule.
func (d *MemoryDirectory) AddTemplate(tpl AvailabilityTemplate) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.templates = append(d.templates, tpl)
}

func (d *MemoryDirectory) SearchDoctors(_ context.Context, fragment string) ([]Doctor, error) {
	needle := strings.ToLower(fragment)
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []Doctor
	for _, doc := range d.doctors {
		if strings.Contains(strings.ToLower(doc.Name), needle) {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (d *MemoryDirectory) GetDoctor(_ context.Context, id int64) (*Doctor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, doc := range d.doctors {
		if doc.ID == id {
			found := doc
			return &found, nil
		}
	}
	return nil, ErrDoctorNotFound
}

func (d *MemoryDirectory) ListDoctors(_ context.Context, specialization string) ([]Doctor, error) {
	needle := strings.ToLower(strings.TrimSpace(specialization))
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]Doctor, 0, len(d.doctors))
	for _, doc := range d.doctors {
		if needle == "" || strings.Contains(strings.ToLower(doc.Specialization), needle) {
			out = append(out, doc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (d *MemoryDirectory) Templates(_ context.Context, doctorID int64, weekday int) ([]AvailabilityTemplate, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var out []AvailabilityTemplate
	for _, tpl := range d.templates {
		if tpl.DoctorID == doctorID && tpl.Weekday == weekday {
			out = append(out, tpl)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out, nil
}

var _ Directory = (*MemoryDirectory)(nil)
