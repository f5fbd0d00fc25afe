package core

import (
	"context"
	"fmt"
	"sort"

	"github.com/baxromumarov/hh-collector/internal/apperr"
	"github.com/baxromumarov/hh-collector/internal/observability"
	"github.com/baxromumarov/hh-collector/internal/scraper"
	"github.com/baxromumarov/hh-collector/internal/store"
)

// UniqueEmployerIDs returns each employer id referenced by vacancies once, ascending.
func UniqueEmployerIDs(vacancies []store.Vacancy) []int {
	seen := make(map[int]struct{}, len(vacancies))
	ids := make([]int, 0, len(vacancies))
	for _, v := range vacancies {
		if _, ok := seen[v.EmployerID]; ok {
			continue
		}
		seen[v.EmployerID] = struct{}{}
		ids = append(ids, v.EmployerID)
	}
	sort.Ints(ids)
	return ids
}

// CollectEmployers fetches each distinct employer exactly once.
// The first failed lookup aborts the batch.
func CollectEmployers(ctx context.Context, src scraper.EmployerSource, vacancies []store.Vacancy) ([]store.Employer, error) {
	ids := UniqueEmployerIDs(vacancies)
	employers := make([]store.Employer, 0, len(ids))

	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		observability.IncAPICall("employers")
		raw, err := src.Employer(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("collecting employer %d: %w", id, err)
		}
		emp, err := toEmployer(id, raw)
		if err != nil {
			return nil, err
		}
		observability.IncEmployersFetched()
		employers = append(employers, emp)
	}
	return employers, nil
}

func toEmployer(id int, raw *scraper.RawEmployer) (store.Employer, error) {
	if raw == nil {
		return store.Employer{}, apperr.Data(fmt.Sprintf("employer %d: empty response", id), nil)
	}
	if raw.ID != "" {
		got, err := raw.ID.Int()
		if err != nil {
			return store.Employer{}, apperr.Data(fmt.Sprintf("employer %d: bad id", id), err)
		}
		if got != id {
			return store.Employer{}, apperr.Data(fmt.Sprintf("employer %d: response is for employer %d", id, got), nil)
		}
	}
	return store.Employer{
		ID:            id,
		Name:          raw.Name,
		Description:   raw.AlternateURL,
		VacanciesURL:  raw.VacanciesURL,
		OpenVacancies: raw.OpenVacancies,
	}, nil
}
