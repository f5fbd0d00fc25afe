package console

import (
	"context"
	"fmt"
	"io"

	"github.com/baxromumarov/hh-collector/internal/store"
)

// Queries is the read side of store.Gateway.
type Queries interface {
	TopCompaniesByOpenVacancies(ctx context.Context, dbName string) ([]store.CompanyVacancies, error)
	AllVacanciesWithSalaryRank(ctx context.Context, dbName string) ([]store.VacancyListing, error)
	AverageSalary(ctx context.Context, dbName string) (int, error)
	VacanciesAtOrAbove(ctx context.Context, dbName string, threshold int) ([]store.VacancyListing, error)
	VacanciesByKeyword(ctx context.Context, dbName, keyword string) ([]store.Vacancy, error)
}

// Reporter prints query results, at most limit rows per section.
type Reporter struct {
	out   io.Writer
	limit int
}

func NewReporter(out io.Writer, limit int) *Reporter {
	if limit < 0 {
		limit = 0
	}
	return &Reporter{out: out, limit: limit}
}

func (r *Reporter) Companies(rows []store.CompanyVacancies) {
	for _, row := range rows[:r.take(len(rows))] {
		fmt.Fprintf(r.out, "Company '%s':\nCount vacancies: %d\n\n", row.Company, row.OpenVacancies)
	}
}

func (r *Reporter) Listings(rows []store.VacancyListing) {
	for _, row := range rows[:r.take(len(rows))] {
		fmt.Fprintf(r.out, "Company: %s\nVacancy: %s\nSalary: from %d to %d\nURL: %s\n\n",
			row.Company, row.Vacancy, row.SalaryFrom, row.SalaryTo, row.URL)
	}
}

func (r *Reporter) AverageSalary(avg int) {
	fmt.Fprintf(r.out, "Average salary for this vacancy: %d\n\n", avg)
}

// Vacancies prints a sorted copy, highest SalaryTo first.
func (r *Reporter) Vacancies(vacancies []store.Vacancy) {
	sorted := make([]store.Vacancy, len(vacancies))
	copy(sorted, vacancies)
	store.SortBySalaryTo(sorted)
	for _, v := range sorted[:r.take(len(sorted))] {
		fmt.Fprintln(r.out, v.String())
	}
}

func (r *Reporter) take(n int) int {
	if n < r.limit {
		return n
	}
	return r.limit
}

// RunReport runs the five read queries against dbName in order and prints them.
// Vacancies at or above the average salary use the average just computed.
func RunReport(ctx context.Context, q Queries, r *Reporter, dbName, keyword string) error {
	companies, err := q.TopCompaniesByOpenVacancies(ctx, dbName)
	if err != nil {
		return err
	}
	r.Companies(companies)

	listings, err := q.AllVacanciesWithSalaryRank(ctx, dbName)
	if err != nil {
		return err
	}
	r.Listings(listings)

	avg, err := q.AverageSalary(ctx, dbName)
	if err != nil {
		return err
	}
	r.AverageSalary(avg)

	above, err := q.VacanciesAtOrAbove(ctx, dbName, avg)
	if err != nil {
		return err
	}
	r.Listings(above)

	matched, err := q.VacanciesByKeyword(ctx, dbName, keyword)
	if err != nil {
		return err
	}
	r.Vacancies(matched)
	return nil
}

// SearchSnapshot prints the snapshot vacancies whose name starts or ends with
// keyword and returns how many matched. No database is involved.
func SearchSnapshot(snap *store.Snapshot, r *Reporter, keyword string) (int, error) {
	stored, err := snap.Load()
	if err != nil {
		return 0, err
	}
	matched := store.FilterByKeyword(stored, keyword)
	r.Vacancies(matched)
	return len(matched), nil
}
