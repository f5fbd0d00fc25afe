package store

import (
	"fmt"
	"sort"
)

// Vacancy is one normalized posting. SalaryFrom is always present;
// SalaryTo falls back to SalaryFrom when the posting has no upper bound.
type Vacancy struct {
	Name       string `json:"name"`
	SalaryFrom int    `json:"salary_from"`
	SalaryTo   int    `json:"salary_to"`
	EmployerID int    `json:"employer_id"`
	URL        string `json:"url"`
	City       string `json:"city"`
	Experience string `json:"experience"`
}

// Less orders vacancies by pay ceiling, highest first.
// It compares SalaryTo only and says nothing about equality of other fields.
func (v Vacancy) Less(other Vacancy) bool {
	return other.SalaryTo < v.SalaryTo
}

func (v Vacancy) String() string {
	return fmt.Sprintf("Vacancy name: %s\nSalary from: %d\nSalary to: %d\nEmployer id: %d\nURL: %s\nCity: %s\nExperience: %s\n",
		v.Name, v.SalaryFrom, v.SalaryTo, v.EmployerID, v.URL, v.City, v.Experience)
}

// SortBySalaryTo sorts vacancies in place by descending SalaryTo, keeping input order for ties.
func SortBySalaryTo(vacancies []Vacancy) {
	sort.SliceStable(vacancies, func(i, j int) bool {
		return vacancies[i].Less(vacancies[j])
	})
}

type Employer struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	VacanciesURL  string `json:"vacancies_url"`
	OpenVacancies int    `json:"open_vacancies"`
}

type CompanyVacancies struct {
	Company       string `json:"company"`
	OpenVacancies int    `json:"open_vacancies"`
}

// VacancyListing is a vacancy row joined with its employer name.
type VacancyListing struct {
	Company    string `json:"company"`
	Vacancy    string `json:"vacancy"`
	SalaryFrom int    `json:"salary_from"`
	SalaryTo   int    `json:"salary_to"`
	URL        string `json:"url"`
}
