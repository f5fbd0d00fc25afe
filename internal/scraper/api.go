package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawVacancy is one item of the hh.ru vacancy search response, kept as close
// to the wire shape as possible. Nested objects are nil when absent or null.
type RawVacancy struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Salary       *RawSalary      `json:"salary"`
	Employer     *RawEmployerRef `json:"employer"`
	AlternateURL string          `json:"alternate_url"`
	Area         *RawNamed       `json:"area"`
	Experience   *RawNamed       `json:"experience"`
}

type RawSalary struct {
	From     *int   `json:"from"`
	To       *int   `json:"to"`
	Currency string `json:"currency"`
	Gross    *bool  `json:"gross"`
}

type RawEmployerRef struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

type RawNamed struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RawEmployer is the hh.ru employer detail response.
type RawEmployer struct {
	ID            ID     `json:"id"`
	Name          string `json:"name"`
	AlternateURL  string `json:"alternate_url"`
	VacanciesURL  string `json:"vacancies_url"`
	OpenVacancies int    `json:"open_vacancies"`
}

func (e RawEmployer) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

func (e *RawEmployer) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, e)
}

// ID accepts both JSON strings and numbers; hh.ru sends employer ids as strings.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Int parses the id as a decimal integer.
func (id ID) Int() (int, error) {
	s := strings.TrimSpace(string(id))
	if s == "" {
		return 0, fmt.Errorf("id is empty")
	}
	return strconv.Atoi(s)
}

type VacancySource interface {
	SearchVacancies(ctx context.Context, text string) ([]RawVacancy, error)
}

type EmployerSource interface {
	Employer(ctx context.Context, id int) (*RawEmployer, error)
}
