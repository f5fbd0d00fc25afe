package store_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/baxromumarov/hh-collector/internal/apperr"
	"github.com/baxromumarov/hh-collector/internal/config"
	"github.com/baxromumarov/hh-collector/internal/store"
)

var testParams = config.Postgres{Host: "localhost", Port: 5432, User: "postgres", Password: "pa'ss", SSLMode: "disable"}

// newGateway returns a gateway whose every connection is the same sqlmock handle,
// plus the list of DSNs it was asked to open.
func newGateway(t *testing.T) (*store.Gateway, sqlmock.Sqlmock, *[]string) {
	t.Helper()
	return newGatewayWith(t, testParams)
}

func newGatewayWith(t *testing.T, params config.Postgres) (*store.Gateway, sqlmock.Sqlmock, *[]string) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	var dsns []string
	open := func(dsn string) (*sql.DB, error) {
		dsns = append(dsns, dsn)
		return db, nil
	}
	return store.NewGateway(params, zap.NewNop(), store.WithOpener(open)), mock, &dsns
}

func checkExpectations(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// ── DSN ────────────────────────────────────────────────────────────────────

func TestDSN_QuotesValues(t *testing.T) {
	g := store.NewGateway(testParams, zap.NewNop())
	dsn := g.DSN("vacancies")

	for _, want := range []string{"host='localhost'", "port=5432", "dbname='vacancies'", `password='pa\'ss'`, "sslmode='disable'"} {
		if !strings.Contains(dsn, want) {
			t.Errorf("DSN %q missing %q", dsn, want)
		}
	}
}

// ── Schema ─────────────────────────────────────────────────────────────────

func TestCreateDatabase_DropsAndCreatesViaMaintenanceDB(t *testing.T) {
	g, mock, dsns := newGateway(t)
	mock.ExpectExec(regexp.QuoteMeta(`DROP DATABASE IF EXISTS "hh"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`^CREATE DATABASE "hh"$`).WillReturnResult(sqlmock.NewResult(0, 0))

	if err := g.CreateDatabase(context.Background(), "hh"); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	if len(*dsns) != 1 || !strings.Contains((*dsns)[0], "dbname='postgres'") {
		t.Errorf("expected maintenance connection, got %v", *dsns)
	}
	checkExpectations(t, mock)
}

func TestCreateDatabase_PinsConfiguredLocale(t *testing.T) {
	params := testParams
	params.Locale = "ru_RU.UTF-8"
	g, mock, _ := newGatewayWith(t, params)
	mock.ExpectExec(regexp.QuoteMeta(`DROP DATABASE IF EXISTS "hh"`)).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "hh" TEMPLATE template0 ENCODING 'UTF8' LC_COLLATE 'ru_RU.UTF-8' LC_CTYPE 'ru_RU.UTF-8'`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := g.CreateDatabase(context.Background(), "hh"); err != nil {
		t.Fatalf("CreateDatabase: %v", err)
	}
	checkExpectations(t, mock)
}

func TestCreateDatabase_InUse(t *testing.T) {
	g, mock, _ := newGateway(t)
	mock.ExpectExec("DROP DATABASE").WillReturnError(&pq.Error{Code: "55006", Message: "database is being accessed by other users"})

	err := g.CreateDatabase(context.Background(), "hh")
	if !apperr.Is(err, apperr.ErrTypePersistence) {
		t.Errorf("expected PERSISTENCE error, got %v", err)
	}
	checkExpectations(t, mock)
}

func TestCreateDatabase_EmptyName(t *testing.T) {
	g, _, dsns := newGateway(t)
	if err := g.CreateDatabase(context.Background(), " "); !apperr.Is(err, apperr.ErrTypeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
	if len(*dsns) != 0 {
		t.Error("no connection should be opened")
	}
}

func TestCreateTables_InOneTransaction(t *testing.T) {
	g, mock, dsns := newGateway(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE info_vacancies").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE info_employers").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := g.CreateTables(context.Background(), "hh"); err != nil {
		t.Fatalf("CreateTables: %v", err)
	}
	if !strings.Contains((*dsns)[0], "dbname='hh'") {
		t.Errorf("expected connection to hh, got %v", *dsns)
	}
	checkExpectations(t, mock)
}

func TestCreateTables_AlreadyExists(t *testing.T) {
	g, mock, _ := newGateway(t)
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE info_vacancies").WillReturnError(&pq.Error{Code: "42P07", Message: "relation already exists"})
	mock.ExpectRollback()

	err := g.CreateTables(context.Background(), "hh")
	if !apperr.Is(err, apperr.ErrTypeConflict) {
		t.Errorf("expected CONFLICT error, got %v", err)
	}
	checkExpectations(t, mock)
}

// ── Writes ─────────────────────────────────────────────────────────────────

func TestSaveData_OneInsertPerRow(t *testing.T) {
	g, mock, _ := newGateway(t)
	vacancies := []store.Vacancy{
		{Name: "Go developer", SalaryFrom: 200000, SalaryTo: 300000, EmployerID: 1, URL: "u1", City: "Москва", Experience: "3–6"},
		{Name: "Оператор", SalaryFrom: 40000, SalaryTo: 40000, EmployerID: 2, URL: "u2", City: "Казань", Experience: "нет"},
	}
	employers := []store.Employer{
		{ID: 1, Name: "Acme", Description: "https://hh.ru/employer/1", VacanciesURL: "https://api.hh.ru/vacancies?employer_id=1", OpenVacancies: 12},
		{ID: 2, Name: "Beta", Description: "https://hh.ru/employer/2", VacanciesURL: "https://api.hh.ru/vacancies?employer_id=2", OpenVacancies: 3},
	}
	for _, v := range vacancies {
		mock.ExpectExec("INSERT INTO info_vacancies").
			WithArgs(v.Name, v.SalaryFrom, v.SalaryTo, v.EmployerID, v.URL, v.City, v.Experience).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}
	for _, e := range employers {
		mock.ExpectExec("INSERT INTO info_employers").
			WithArgs(e.ID, e.Name, e.Description, e.VacanciesURL, e.OpenVacancies).
			WillReturnResult(sqlmock.NewResult(1, 1))
	}

	if err := g.SaveData(context.Background(), "hh", vacancies, employers); err != nil {
		t.Fatalf("SaveData: %v", err)
	}
	checkExpectations(t, mock)
}

func TestSaveData_DuplicateEmployerAborts(t *testing.T) {
	g, mock, _ := newGateway(t)
	employers := []store.Employer{{ID: 1, Name: "Acme"}, {ID: 1, Name: "Acme"}, {ID: 2, Name: "Beta"}}

	mock.ExpectExec("INSERT INTO info_employers").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO info_employers").WillReturnError(&pq.Error{Code: "23505", Message: "duplicate key"})

	err := g.SaveData(context.Background(), "hh", nil, employers)
	if !apperr.Is(err, apperr.ErrTypeConflict) {
		t.Fatalf("expected CONFLICT error, got %v", err)
	}
	checkExpectations(t, mock)
}

func TestDeleteVacancy(t *testing.T) {
	g, mock, _ := newGateway(t)
	mock.ExpectExec("DELETE FROM info_vacancies").WithArgs("Оператор").WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := g.DeleteVacancy(context.Background(), "hh", "Оператор")
	if err != nil {
		t.Fatalf("DeleteVacancy: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted = %d, want 2", n)
	}
	checkExpectations(t, mock)
}

// ── Reads ──────────────────────────────────────────────────────────────────

func TestTopCompaniesByOpenVacancies(t *testing.T) {
	g, mock, _ := newGateway(t)
	rows := sqlmock.NewRows([]string{"company_name", "open_vacancies"}).
		AddRow("Acme", 120).
		AddRow("Beta", 7)
	mock.ExpectQuery("SELECT company_name, open_vacancies FROM info_employers ORDER BY open_vacancies DESC LIMIT").
		WithArgs(10).
		WillReturnRows(rows)

	got, err := g.TopCompaniesByOpenVacancies(context.Background(), "hh")
	if err != nil {
		t.Fatalf("TopCompaniesByOpenVacancies: %v", err)
	}
	if len(got) != 2 || got[0].Company != "Acme" || got[0].OpenVacancies != 120 {
		t.Errorf("unexpected rows: %+v", got)
	}
	checkExpectations(t, mock)
}

func TestAllVacanciesWithSalaryRank(t *testing.T) {
	g, mock, _ := newGateway(t)
	rows := sqlmock.NewRows([]string{"company_name", "name_vacancy", "salary_from", "salary_to", "url"}).
		AddRow("Acme", "Go developer", 200000, 300000, "u1").
		AddRow(nil, "Оператор", 40000, nil, "u2")
	mock.ExpectQuery(`JOIN info_vacancies AS i USING \(employer_id\)`).
		WithArgs(10).
		WillReturnRows(rows)

	got, err := g.AllVacanciesWithSalaryRank(context.Background(), "hh")
	if err != nil {
		t.Fatalf("AllVacanciesWithSalaryRank: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].SalaryTo != 300000 || got[1].Company != "" || got[1].SalaryTo != 0 {
		t.Errorf("unexpected rows: %+v", got)
	}
	checkExpectations(t, mock)
}

func TestAverageSalary_IsScalarWithoutOrderBy(t *testing.T) {
	g, mock, _ := newGateway(t)
	mock.ExpectQuery(`^\s*SELECT AVG\(\(salary_to \+ salary_from\) / 2\)\s+FROM info_vacancies\s*$`).
		WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(123456.6))

	got, err := g.AverageSalary(context.Background(), "hh")
	if err != nil {
		t.Fatalf("AverageSalary: %v", err)
	}
	if got != 123457 {
		t.Errorf("AverageSalary = %d, want 123457", got)
	}
	checkExpectations(t, mock)
}

func TestAverageSalary_EmptyTable(t *testing.T) {
	g, mock, _ := newGateway(t)
	mock.ExpectQuery("SELECT AVG").WillReturnRows(sqlmock.NewRows([]string{"avg"}).AddRow(nil))

	got, err := g.AverageSalary(context.Background(), "hh")
	if err != nil || got != 0 {
		t.Errorf("AverageSalary = %d, %v; want 0, nil", got, err)
	}
}

func TestVacanciesAtOrAbove_BindsThreshold(t *testing.T) {
	g, mock, _ := newGateway(t)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE i.salary_from >= $1")).
		WithArgs(150000).
		WillReturnRows(sqlmock.NewRows([]string{"company_name", "name_vacancy", "salary_from", "salary_to", "url"}).
			AddRow("Acme", "Go developer", 200000, 300000, "u1"))

	got, err := g.VacanciesAtOrAbove(context.Background(), "hh", 150000)
	if err != nil {
		t.Fatalf("VacanciesAtOrAbove: %v", err)
	}
	if len(got) != 1 || got[0].Vacancy != "Go developer" {
		t.Errorf("unexpected rows: %+v", got)
	}
	checkExpectations(t, mock)
}

func TestVacanciesByKeyword_BindsPrefixAndSuffixPatterns(t *testing.T) {
	g, mock, _ := newGateway(t)
	cols := []string{"name_vacancy", "salary_from", "salary_to", "employer_id", "url", "city", "experience"}
	mock.ExpectQuery(regexp.QuoteMeta("WHERE name_vacancy ILIKE $1 OR name_vacancy ILIKE $2")).
		WithArgs("оператор%", "%оператор").
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("Оператор call-центра", 40000, 50000, 1, "u1", "Москва", "нет").
			AddRow("Старший оператор", 60000, nil, 2, "u2", "Казань", "1–3"))

	got, err := g.VacanciesByKeyword(context.Background(), "hh", "оператор")
	if err != nil {
		t.Fatalf("VacanciesByKeyword: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[1].SalaryTo != 60000 {
		t.Errorf("NULL salary_to should fall back to salary_from, got %d", got[1].SalaryTo)
	}
	checkExpectations(t, mock)
}

func TestVacanciesByKeyword_EmptyKeyword(t *testing.T) {
	g, _, _ := newGateway(t)
	if _, err := g.VacanciesByKeyword(context.Background(), "hh", ""); !apperr.Is(err, apperr.ErrTypeInvalidInput) {
		t.Errorf("expected INVALID_INPUT, got %v", err)
	}
}

func TestKeywordPatterns_EscapesMetacharacters(t *testing.T) {
	prefix, suffix := store.KeywordPatterns(`50%_off\`)
	if prefix != `50\%\_off\\%` {
		t.Errorf("prefix = %q", prefix)
	}
	if suffix != `%50\%\_off\\` {
		t.Errorf("suffix = %q", suffix)
	}
}

func TestGateway_MissingDatabase(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectPing().WillReturnError(&pq.Error{Code: "3D000", Message: `database "nope" does not exist`})

	g := store.NewGateway(testParams, zap.NewNop(), store.WithOpener(func(string) (*sql.DB, error) { return db, nil }))
	_, err = g.TopCompaniesByOpenVacancies(context.Background(), "nope")
	if !apperr.Is(err, apperr.ErrTypeNotFound) {
		t.Errorf("expected NOT_FOUND error, got %v", err)
	}
}

func TestGateway_OpenFailure(t *testing.T) {
	g := store.NewGateway(testParams, zap.NewNop(), store.WithOpener(func(string) (*sql.DB, error) {
		return nil, errors.New("driver missing")
	}))
	_, err := g.AverageSalary(context.Background(), "hh")
	if !apperr.Is(err, apperr.ErrTypePersistence) {
		t.Errorf("expected PERSISTENCE error, got %v", err)
	}
}
