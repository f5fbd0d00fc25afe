package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/baxromumarov/hh-collector/internal/apperr"
	"github.com/baxromumarov/hh-collector/internal/config"
)

const (
	maintenanceDB = "postgres"
	topLimit      = 10
)

const createVacanciesTable = `
CREATE TABLE info_vacancies (
    vacancy_id SERIAL PRIMARY KEY,
    name_vacancy VARCHAR(255) NOT NULL,
    salary_from INTEGER,
    salary_to INTEGER,
    employer_id INTEGER,
    url TEXT,
    city VARCHAR(100),
    experience TEXT
)`

const createEmployersTable = `
CREATE TABLE info_employers (
    employer_id INTEGER,
    company_name VARCHAR(255),
    description TEXT,
    vacancies_url TEXT,
    open_vacancies INTEGER,
    CONSTRAINT pk_info_employers_employer_id PRIMARY KEY (employer_id)
)`

// Opener returns a handle for a DSN. The gateway closes every handle it opens.
type Opener func(dsn string) (*sql.DB, error)

type Option func(*Gateway)

// WithOpener replaces the lib/pq opener, mainly for tests.
func WithOpener(open Opener) Option {
	return func(g *Gateway) {
		g.open = open
	}
}

// Gateway owns the schema and every SQL statement. Each call opens its own
// connection to the named database and closes it before returning, so
// nothing is shared or transactional across calls.
type Gateway struct {
	params config.Postgres
	open   Opener
	logger *zap.Logger
}

func NewGateway(params config.Postgres, logger *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		params: params,
		open:   openPostgres,
		logger: logger,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func openPostgres(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}

// DSN builds a lib/pq key/value connection string for dbName.
func (g *Gateway) DSN(dbName string) string {
	parts := []string{
		"host=" + quoteDSNValue(g.params.Host),
		"port=" + strconv.Itoa(g.params.Port),
		"user=" + quoteDSNValue(g.params.User),
		"dbname=" + quoteDSNValue(dbName),
	}
	if g.params.Password != "" {
		parts = append(parts, "password="+quoteDSNValue(g.params.Password))
	}
	if g.params.SSLMode != "" {
		parts = append(parts, "sslmode="+quoteDSNValue(g.params.SSLMode))
	}
	return strings.Join(parts, " ")
}

func quoteDSNValue(v string) string {
	v = strings.ReplaceAll(v, `\`, `\\`)
	v = strings.ReplaceAll(v, `'`, `\'`)
	return "'" + v + "'"
}

func (g *Gateway) withDB(ctx context.Context, dbName string, fn func(db *sql.DB) error) error {
	if strings.TrimSpace(dbName) == "" {
		return apperr.InvalidInput("database name is empty", nil)
	}

	db, err := g.open(g.DSN(dbName))
	if err != nil {
		return apperr.Persistence(fmt.Sprintf("opening database %s", dbName), err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		return wrapPQ(fmt.Sprintf("connecting to database %s", dbName), err)
	}
	return fn(db)
}

// wrapPQ maps postgres error codes onto the error taxonomy.
func wrapPQ(message string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505", "42P07", "42P04":
			return apperr.Conflict(message, err)
		case "3D000", "42P01":
			return apperr.NotFound(message, err)
		}
	}
	return apperr.Persistence(message, err)
}

// CreateDatabase drops dbName if it exists and creates it again. All data in it is lost.
func (g *Gateway) CreateDatabase(ctx context.Context, dbName string) error {
	if strings.TrimSpace(dbName) == "" {
		return apperr.InvalidInput("database name is empty", nil)
	}
	ident := pq.QuoteIdentifier(dbName)

	return g.withDB(ctx, maintenanceDB, func(db *sql.DB) error {
		if _, err := db.ExecContext(ctx, "DROP DATABASE IF EXISTS "+ident); err != nil {
			return wrapPQ(fmt.Sprintf("dropping database %s", dbName), err)
		}
		if _, err := db.ExecContext(ctx, createDatabaseSQL(ident, g.params.Locale)); err != nil {
			return wrapPQ(fmt.Sprintf("creating database %s", dbName), err)
		}
		g.logger.Info("database created", zap.String("database", dbName))
		return nil
	})
}

// createDatabaseSQL pins a UTF-8 locale when one is configured so that ILIKE
// folds Cyrillic case; otherwise the new database inherits template1.
func createDatabaseSQL(ident, locale string) string {
	stmt := "CREATE DATABASE " + ident
	if locale == "" {
		return stmt
	}
	lit := pq.QuoteLiteral(locale)
	return stmt + " TEMPLATE template0 ENCODING 'UTF8' LC_COLLATE " + lit + " LC_CTYPE " + lit
}

// CreateTables creates info_vacancies and info_employers. It fails when either exists.
func (g *Gateway) CreateTables(ctx context.Context, dbName string) error {
	return g.withDB(ctx, dbName, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return wrapPQ("starting schema transaction", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx, createVacanciesTable); err != nil {
			return wrapPQ("creating table info_vacancies", err)
		}
		if _, err := tx.ExecContext(ctx, createEmployersTable); err != nil {
			return wrapPQ("creating table info_employers", err)
		}
		if err := tx.Commit(); err != nil {
			return wrapPQ("committing schema", err)
		}
		g.logger.Info("tables created", zap.String("database", dbName))
		return nil
	})
}

// SaveData inserts every vacancy, then every employer, one autocommitted row at a time.
// The first failing row stops the call; rows inserted before it stay.
func (g *Gateway) SaveData(ctx context.Context, dbName string, vacancies []Vacancy, employers []Employer) error {
	return g.withDB(ctx, dbName, func(db *sql.DB) error {
		for _, v := range vacancies {
			_, err := db.ExecContext(ctx, `
INSERT INTO info_vacancies (name_vacancy, salary_from, salary_to, employer_id, url, city, experience)
VALUES ($1, $2, $3, $4, $5, $6, $7)
`, v.Name, v.SalaryFrom, v.SalaryTo, v.EmployerID, v.URL, v.City, v.Experience)
			if err != nil {
				return wrapPQ(fmt.Sprintf("inserting vacancy %q", v.Name), err)
			}
		}

		for _, e := range employers {
			_, err := db.ExecContext(ctx, `
INSERT INTO info_employers (employer_id, company_name, description, vacancies_url, open_vacancies)
VALUES ($1, $2, $3, $4, $5)
`, e.ID, e.Name, e.Description, e.VacanciesURL, e.OpenVacancies)
			if err != nil {
				return wrapPQ(fmt.Sprintf("inserting employer %d", e.ID), err)
			}
		}

		g.logger.Info("data saved",
			zap.String("database", dbName),
			zap.Int("vacancies", len(vacancies)),
			zap.Int("employers", len(employers)))
		return nil
	})
}

// TopCompaniesByOpenVacancies returns at most ten employers with the most open vacancies.
func (g *Gateway) TopCompaniesByOpenVacancies(ctx context.Context, dbName string) ([]CompanyVacancies, error) {
	var out []CompanyVacancies
	err := g.withDB(ctx, dbName, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `
SELECT company_name, open_vacancies
FROM info_employers
ORDER BY open_vacancies DESC
LIMIT $1
`, topLimit)
		if err != nil {
			return wrapPQ("querying companies", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				company sql.NullString
				open    sql.NullInt64
			)
			if err := rows.Scan(&company, &open); err != nil {
				return wrapPQ("scanning company row", err)
			}
			out = append(out, CompanyVacancies{Company: company.String, OpenVacancies: int(open.Int64)})
		}
		return rows.Err()
	})
	return out, err
}

// AllVacanciesWithSalaryRank returns at most ten vacancies with their employer,
// best average salary first.
func (g *Gateway) AllVacanciesWithSalaryRank(ctx context.Context, dbName string) ([]VacancyListing, error) {
	var out []VacancyListing
	err := g.withDB(ctx, dbName, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `
SELECT company_name, i.name_vacancy, i.salary_from, i.salary_to, i.url
FROM info_employers
JOIN info_vacancies AS i USING (employer_id)
ORDER BY (i.salary_to + i.salary_from) / 2 DESC
LIMIT $1
`, topLimit)
		if err != nil {
			return wrapPQ("querying vacancies", err)
		}
		out, err = scanListings(rows)
		return err
	})
	return out, err
}

// AverageSalary is AVG((salary_to+salary_from)/2) over all vacancies, rounded.
// An empty table yields 0.
func (g *Gateway) AverageSalary(ctx context.Context, dbName string) (int, error) {
	var avg sql.NullFloat64
	err := g.withDB(ctx, dbName, func(db *sql.DB) error {
		err := db.QueryRowContext(ctx, `
SELECT AVG((salary_to + salary_from) / 2)
FROM info_vacancies
`).Scan(&avg)
		if err != nil {
			return wrapPQ("querying average salary", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if !avg.Valid {
		return 0, nil
	}
	return int(math.Round(avg.Float64)), nil
}

// VacanciesAtOrAbove returns every vacancy whose salary_from is at least threshold.
func (g *Gateway) VacanciesAtOrAbove(ctx context.Context, dbName string, threshold int) ([]VacancyListing, error) {
	var out []VacancyListing
	err := g.withDB(ctx, dbName, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `
SELECT company_name, i.name_vacancy, i.salary_from, i.salary_to, i.url
FROM info_employers
JOIN info_vacancies AS i USING (employer_id)
WHERE i.salary_from >= $1
ORDER BY (i.salary_to + i.salary_from) / 2 DESC
`, threshold)
		if err != nil {
			return wrapPQ("querying vacancies by salary", err)
		}
		out, err = scanListings(rows)
		return err
	})
	return out, err
}

// VacanciesByKeyword returns vacancies whose name starts or ends with keyword,
// ignoring case. A keyword only in the middle of the name does not match.
func (g *Gateway) VacanciesByKeyword(ctx context.Context, dbName, keyword string) ([]Vacancy, error) {
	if strings.TrimSpace(keyword) == "" {
		return nil, apperr.InvalidInput("keyword is empty", nil)
	}
	prefix, suffix := KeywordPatterns(keyword)

	var out []Vacancy
	err := g.withDB(ctx, dbName, func(db *sql.DB) error {
		rows, err := db.QueryContext(ctx, `
SELECT name_vacancy, salary_from, salary_to, employer_id, url, city, experience
FROM info_vacancies
WHERE name_vacancy ILIKE $1 OR name_vacancy ILIKE $2
`, prefix, suffix)
		if err != nil {
			return wrapPQ("querying vacancies by keyword", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				v          Vacancy
				salaryFrom sql.NullInt64
				salaryTo   sql.NullInt64
				employerID sql.NullInt64
				url        sql.NullString
				city       sql.NullString
				experience sql.NullString
			)
			if err := rows.Scan(&v.Name, &salaryFrom, &salaryTo, &employerID, &url, &city, &experience); err != nil {
				return wrapPQ("scanning vacancy row", err)
			}
			v.SalaryFrom = int(salaryFrom.Int64)
			v.SalaryTo = int(salaryTo.Int64)
			if !salaryTo.Valid {
				v.SalaryTo = v.SalaryFrom
			}
			v.EmployerID = int(employerID.Int64)
			v.URL = url.String
			v.City = city.String
			v.Experience = experience.String
			out = append(out, v)
		}
		return rows.Err()
	})
	return out, err
}

// DeleteVacancy removes every vacancy named exactly vacancyName and reports how many went.
func (g *Gateway) DeleteVacancy(ctx context.Context, dbName, vacancyName string) (int64, error) {
	var deleted int64
	err := g.withDB(ctx, dbName, func(db *sql.DB) error {
		res, err := db.ExecContext(ctx, `
DELETE FROM info_vacancies
WHERE name_vacancy = $1
`, vacancyName)
		if err != nil {
			return wrapPQ(fmt.Sprintf("deleting vacancy %q", vacancyName), err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

// KeywordPatterns returns the ILIKE prefix and suffix patterns for keyword
// with LIKE metacharacters escaped.
func KeywordPatterns(keyword string) (prefix, suffix string) {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(keyword)
	return escaped + "%", "%" + escaped
}

func scanListings(rows *sql.Rows) ([]VacancyListing, error) {
	defer rows.Close()

	var out []VacancyListing
	for rows.Next() {
		var (
			l          VacancyListing
			company    sql.NullString
			salaryFrom sql.NullInt64
			salaryTo   sql.NullInt64
			url        sql.NullString
		)
		if err := rows.Scan(&company, &l.Vacancy, &salaryFrom, &salaryTo, &url); err != nil {
			return nil, wrapPQ("scanning vacancy row", err)
		}
		l.Company = company.String
		l.SalaryFrom = int(salaryFrom.Int64)
		l.SalaryTo = int(salaryTo.Int64)
		l.URL = url.String
		out = append(out, l)
	}
	return out, rows.Err()
}
