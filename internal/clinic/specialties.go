package clinic

import (
	"context"
	"strings"
)

// specialtySynonyms maps lay terms onto directory specializations. Order
// matters: the first key contained in the query wins.
var specialtySynonyms = []struct {
	term      string
	canonical string
}{
	{"heart", "Cardiologist"},
	{"cardiac", "Cardiologist"},
	{"cardio", "Cardiologist"},
	{"tooth", "Dentist"},
	{"teeth", "Dentist"},
	{"dental", "Dentist"},
	{"bone", "Orthopedic"},
	{"ortho", "Orthopedic"},
	{"skin", "Dermatologist"},
	{"eye", "Ophthalmologist"},
	{"brain", "Neurologist"},
	{"nerve", "Neurologist"},
	{"child", "Pediatrician"},
	{"kids", "Pediatrician"},
	{"baby", "Pediatrician"},
}

// NormalizeSpecialization rewrites a lay description ("heart doctor") to the
// specialization stored in the directory. Unknown terms pass through trimmed.
func NormalizeSpecialization(query string) string {
	query = strings.TrimSpace(query)
	lower := strings.ToLower(query)
	for _, s := range specialtySynonyms {
		if strings.Contains(lower, s.term) {
			return s.canonical
		}
	}
	return query
}

// FindDoctors lists doctors matching a lay or canonical specialization.
func FindDoctors(ctx context.Context, dir Directory, specialization string) ([]Doctor, error) {
	return dir.ListDoctors(ctx, NormalizeSpecialization(specialization))
}
