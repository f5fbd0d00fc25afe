package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/baxromumarov/hh-collector/internal/apperr"
)

// Snapshot keeps cleaned vacancies in a single JSON array file.
// The file is always read and written as a whole.
type Snapshot struct {
	path string
}

func NewSnapshot(path string) *Snapshot {
	return &Snapshot{path: path}
}

func (s *Snapshot) Path() string {
	return s.path
}

// Save replaces the file content with vacancies.
func (s *Snapshot) Save(vacancies []Vacancy) error {
	if vacancies == nil {
		vacancies = []Vacancy{}
	}
	data, err := json.MarshalIndent(vacancies, "", "  ")
	if err != nil {
		return apperr.Data("encoding snapshot", err)
	}

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return apperr.Persistence(fmt.Sprintf("creating snapshot dir %s", dir), err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, append(data, '\n'), 0o644); err != nil {
		return apperr.Persistence(fmt.Sprintf("writing snapshot %s", tmp), err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return apperr.Persistence(fmt.Sprintf("replacing snapshot %s", s.path), err)
	}
	return nil
}

// Load returns the stored vacancies in file order. A missing file is an empty snapshot.
func (s *Snapshot) Load() ([]Vacancy, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []Vacancy{}, nil
	}
	if err != nil {
		return nil, apperr.Persistence(fmt.Sprintf("reading snapshot %s", s.path), err)
	}

	var vacancies []Vacancy
	if err := json.Unmarshal(data, &vacancies); err != nil {
		return nil, apperr.Data(fmt.Sprintf("decoding snapshot %s", s.path), err)
	}
	if vacancies == nil {
		vacancies = []Vacancy{}
	}
	return vacancies, nil
}

// Append puts vacancies in front of what is already stored.
func (s *Snapshot) Append(vacancies []Vacancy) error {
	existing, err := s.Load()
	if err != nil {
		return err
	}
	merged := make([]Vacancy, 0, len(vacancies)+len(existing))
	merged = append(merged, vacancies...)
	merged = append(merged, existing...)
	return s.Save(merged)
}

// DeleteByName rewrites the snapshot without vacancies named name and returns how many were removed.
func (s *Snapshot) DeleteByName(name string) (int, error) {
	existing, err := s.Load()
	if err != nil {
		return 0, err
	}
	kept := make([]Vacancy, 0, len(existing))
	for _, v := range existing {
		if v.Name != name {
			kept = append(kept, v)
		}
	}
	removed := len(existing) - len(kept)
	if removed == 0 {
		return 0, nil
	}
	return removed, s.Save(kept)
}

// MatchesKeyword reports whether name starts or ends with keyword, ignoring case.
// It mirrors the ILIKE patterns used by Gateway.VacanciesByKeyword.
func MatchesKeyword(name, keyword string) bool {
	if keyword == "" {
		return false
	}
	n := strings.ToLower(name)
	k := strings.ToLower(keyword)
	return strings.HasPrefix(n, k) || strings.HasSuffix(n, k)
}

// FilterByKeyword returns the vacancies whose name matches keyword, in input order.
func FilterByKeyword(vacancies []Vacancy, keyword string) []Vacancy {
	var out []Vacancy
	for _, v := range vacancies {
		if MatchesKeyword(v.Name, keyword) {
			out = append(out, v)
		}
	}
	return out
}
