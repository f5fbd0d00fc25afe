package core

import (
	"errors"
	"fmt"

	"github.com/baxromumarov/hh-collector/internal/apperr"
	"github.com/baxromumarov/hh-collector/internal/scraper"
	"github.com/baxromumarov/hh-collector/internal/store"
)

var ErrMissingField = errors.New("missing field")

// Normalize turns raw search items into vacancies. Items without salary.from
// are dropped. A kept item with a broken employer, area or experience fails
// the whole call; nothing is skipped silently.
func Normalize(raw []scraper.RawVacancy) ([]store.Vacancy, error) {
	out := make([]store.Vacancy, 0, len(raw))
	for i, r := range raw {
		if r.Salary == nil || r.Salary.From == nil {
			continue
		}
		v, err := normalizeOne(r)
		if err != nil {
			return nil, apperr.Data(fmt.Sprintf("vacancy #%d %q", i, r.Name), err)
		}
		out = append(out, v)
	}
	return out, nil
}

func normalizeOne(r scraper.RawVacancy) (store.Vacancy, error) {
	from := *r.Salary.From
	to := from
	if r.Salary.To != nil {
		to = *r.Salary.To
	}

	if r.Employer == nil {
		return store.Vacancy{}, fmt.Errorf("%w: employer", ErrMissingField)
	}
	employerID, err := r.Employer.ID.Int()
	if err != nil {
		return store.Vacancy{}, fmt.Errorf("%w: employer.id: %v", ErrMissingField, err)
	}
	if r.Area == nil {
		return store.Vacancy{}, fmt.Errorf("%w: area", ErrMissingField)
	}
	if r.Experience == nil {
		return store.Vacancy{}, fmt.Errorf("%w: experience", ErrMissingField)
	}

	return store.Vacancy{
		Name:       r.Name,
		SalaryFrom: from,
		SalaryTo:   to,
		EmployerID: employerID,
		URL:        r.AlternateURL,
		City:       r.Area.Name,
		Experience: r.Experience.Name,
	}, nil
}
