package core_test

import (
	"errors"
	"testing"

	"github.com/baxromumarov/hh-collector/internal/apperr"
	"github.com/baxromumarov/hh-collector/internal/core"
	"github.com/baxromumarov/hh-collector/internal/scraper"
)

func intPtr(v int) *int { return &v }

func rawVacancy(name string, from, to *int, employerID string) scraper.RawVacancy {
	r := scraper.RawVacancy{
		Name:         name,
		AlternateURL: "https://hh.ru/vacancy/" + name,
		Employer:     &scraper.RawEmployerRef{ID: scraper.ID(employerID)},
		Area:         &scraper.RawNamed{Name: "Москва"},
		Experience:   &scraper.RawNamed{Name: "Нет опыта"},
	}
	if from != nil || to != nil {
		r.Salary = &scraper.RawSalary{From: from, To: to}
	}
	return r
}

// ── Dropping ───────────────────────────────────────────────────────────────

func TestNormalize_DropsMissingSalary(t *testing.T) {
	raw := []scraper.RawVacancy{
		rawVacancy("no-salary", nil, nil, "1"),
		rawVacancy("no-from", nil, intPtr(90000), "1"),
		rawVacancy("kept", intPtr(50000), intPtr(70000), "2"),
	}

	got, err := core.Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if len(got) != 1 || got[0].Name != "kept" {
		t.Errorf("unexpected output: %+v", got)
	}
}

func TestNormalize_DroppedRecordsAreNotValidated(t *testing.T) {
	broken := scraper.RawVacancy{Name: "anonymous", Salary: nil}
	got, err := core.Normalize([]scraper.RawVacancy{broken})
	if err != nil {
		t.Fatalf("dropped records must not fail: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

// ── Reshaping ──────────────────────────────────────────────────────────────

func TestNormalize_SalaryToDefaultsToFrom(t *testing.T) {
	got, err := core.Normalize([]scraper.RawVacancy{rawVacancy("a", intPtr(50000), nil, "1")})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got[0].SalaryFrom != 50000 || got[0].SalaryTo != 50000 {
		t.Errorf("salary = %d..%d, want 50000..50000", got[0].SalaryFrom, got[0].SalaryTo)
	}
}

func TestNormalize_MapsAllFields(t *testing.T) {
	r := rawVacancy("Go developer", intPtr(200000), intPtr(300000), "1740")
	r.Area = &scraper.RawNamed{Name: "Санкт-Петербург"}
	r.Experience = &scraper.RawNamed{Name: "От 3 до 6 лет"}

	got, err := core.Normalize([]scraper.RawVacancy{r})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	v := got[0]
	if v.Name != "Go developer" || v.SalaryTo != 300000 || v.EmployerID != 1740 ||
		v.URL != "https://hh.ru/vacancy/Go developer" || v.City != "Санкт-Петербург" || v.Experience != "От 3 до 6 лет" {
		t.Errorf("unexpected vacancy: %+v", v)
	}
}

func TestNormalize_KeepsURLVerbatim(t *testing.T) {
	const link = "https://hh.ru/vacancy/1?query=go&area=1&from=vacancy_search_list"
	r := rawVacancy("Go developer", intPtr(100000), nil, "1")
	r.AlternateURL = link

	got, err := core.Normalize([]scraper.RawVacancy{r})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got[0].URL != link {
		t.Errorf("URL = %q, want %q", got[0].URL, link)
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	raw := []scraper.RawVacancy{rawVacancy("a", intPtr(1000), nil, "1")}
	if _, err := core.Normalize(raw); err != nil {
		t.Fatal(err)
	}
	if raw[0].Salary.To != nil {
		t.Error("input salary.to was modified")
	}
}

func TestNormalize_PreservesOrder(t *testing.T) {
	raw := []scraper.RawVacancy{
		rawVacancy("first", intPtr(1), nil, "1"),
		rawVacancy("skip", nil, nil, "1"),
		rawVacancy("second", intPtr(2), nil, "2"),
		rawVacancy("third", intPtr(3), nil, "3"),
	}
	got, err := core.Normalize(raw)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"first", "second", "third"}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("position %d = %s, want %s", i, got[i].Name, name)
		}
	}
}

// ── Failures ───────────────────────────────────────────────────────────────

func TestNormalize_MissingNestedFieldsFail(t *testing.T) {
	noEmployer := rawVacancy("no-employer", intPtr(1), nil, "1")
	noEmployer.Employer = nil
	emptyID := rawVacancy("empty-id", intPtr(1), nil, "")
	noArea := rawVacancy("no-area", intPtr(1), nil, "1")
	noArea.Area = nil
	noExperience := rawVacancy("no-experience", intPtr(1), nil, "1")
	noExperience.Experience = nil

	for _, r := range []scraper.RawVacancy{noEmployer, emptyID, noArea, noExperience} {
		_, err := core.Normalize([]scraper.RawVacancy{rawVacancy("ok", intPtr(1), nil, "1"), r})
		if err == nil {
			t.Errorf("%s: expected error", r.Name)
			continue
		}
		if !errors.Is(err, core.ErrMissingField) {
			t.Errorf("%s: expected ErrMissingField, got %v", r.Name, err)
		}
		if !apperr.Is(err, apperr.ErrTypeData) {
			t.Errorf("%s: expected DATA error, got %v", r.Name, err)
		}
	}
}
