package core

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/baxromumarov/hh-collector/internal/observability"
	"github.com/baxromumarov/hh-collector/internal/scraper"
	"github.com/baxromumarov/hh-collector/internal/store"
)

// Repository is the part of store.Gateway the pipeline writes through.
type Repository interface {
	CreateDatabase(ctx context.Context, dbName string) error
	CreateTables(ctx context.Context, dbName string) error
	SaveData(ctx context.Context, dbName string, vacancies []store.Vacancy, employers []store.Employer) error
}

// Batch is the result of one search: cleaned vacancies and their employers.
type Batch struct {
	Query     string
	RawCount  int
	Vacancies []store.Vacancy
	Employers []store.Employer
}

type Pipeline struct {
	vacancies      scraper.VacancySource
	employers      scraper.EmployerSource
	repo           Repository
	snapshot       *store.Snapshot
	appendSnapshot bool
	logger         *zap.Logger
}

// NewPipeline wires the pipeline. snapshot may be nil to skip the JSON copy.
func NewPipeline(vacancies scraper.VacancySource, employers scraper.EmployerSource, repo Repository, snapshot *store.Snapshot, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		vacancies: vacancies,
		employers: employers,
		repo:      repo,
		snapshot:  snapshot,
		logger:    logger,
	}
}

// AppendSnapshot makes Store put new vacancies in front of the existing
// snapshot instead of replacing it.
func (p *Pipeline) AppendSnapshot(on bool) {
	p.appendSnapshot = on
}

// Collect searches hh.ru for text, cleans the result and fetches every employer.
func (p *Pipeline) Collect(ctx context.Context, text string) (*Batch, error) {
	start := time.Now()
	observability.IncAPICall("vacancies")
	raw, err := p.vacancies.SearchVacancies(ctx, text)
	observability.ObserveFetchDuration(time.Since(start).Seconds())
	if err != nil {
		p.fail(err, "search")
		return nil, err
	}
	observability.AddVacanciesFetched(len(raw))

	vacancies, err := Normalize(raw)
	if err != nil {
		p.fail(err, "normalizer")
		return nil, err
	}
	observability.AddVacanciesDropped(len(raw) - len(vacancies))

	employers, err := CollectEmployers(ctx, p.employers, vacancies)
	if err != nil {
		p.fail(err, "employers")
		return nil, err
	}

	p.logger.Info("batch collected",
		zap.String("text", text),
		zap.Int("raw", len(raw)),
		zap.Int("vacancies", len(vacancies)),
		zap.Int("employers", len(employers)),
		zap.Duration("took", time.Since(start)))

	return &Batch{
		Query:     text,
		RawCount:  len(raw),
		Vacancies: vacancies,
		Employers: employers,
	}, nil
}

// Store writes the snapshot, recreates dbName from scratch and saves the batch into it.
func (p *Pipeline) Store(ctx context.Context, dbName string, batch *Batch) error {
	if p.snapshot != nil {
		write := p.snapshot.Save
		if p.appendSnapshot {
			write = p.snapshot.Append
		}
		if err := write(batch.Vacancies); err != nil {
			p.fail(err, "snapshot")
			return err
		}
		p.logger.Info("snapshot written",
			zap.String("path", p.snapshot.Path()),
			zap.Bool("append", p.appendSnapshot),
			zap.Int("vacancies", len(batch.Vacancies)))
	}

	if err := p.repo.CreateDatabase(ctx, dbName); err != nil {
		p.fail(err, "gateway")
		return err
	}
	if err := p.repo.CreateTables(ctx, dbName); err != nil {
		p.fail(err, "gateway")
		return err
	}
	if err := p.repo.SaveData(ctx, dbName, batch.Vacancies, batch.Employers); err != nil {
		p.fail(err, "gateway")
		return err
	}
	observability.AddRowsSaved(len(batch.Vacancies) + len(batch.Employers))
	return nil
}

func (p *Pipeline) fail(err error, component string) {
	kind := observability.ClassifyError(err)
	observability.IncError(kind, component)
	p.logger.Error("pipeline step failed",
		zap.String("component", component),
		zap.String("kind", kind),
		zap.Error(err))
}
