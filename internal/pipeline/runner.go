// Package pipeline runs the seeding stages in dependency order and reports
// what each of them wrote.
package pipeline

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"

	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/activity"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/audit"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/authors"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/availability"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/branches"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/catalog"
	"github.com/MarcoPoloResearchLab/catalog-seeder/internal/dataset"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

const (
	opRunnerNew    = "pipeline.runner.new"
	opLoad         = "pipeline.load"
	opAvailability = "pipeline.availability"
)

var (
	errMissingStore = errors.New("store is required")
	errMissingCache = errors.New("cache is required")
	noOpLogger      = zap.NewNop()
)

// Store is the union of every stage's store surface.
type Store interface {
	authors.Store
	branches.Store
	activity.Store
	availability.Store
	audit.Store
}

// Cache is the union of the projector and auditor cache surfaces.
type Cache interface {
	availability.Cache
	audit.Cache
}

// Sources locates the JSON collections.
type Sources struct {
	Books    string
	Branches string
	Users    string
}

// RunnerConfig describes the runner dependencies. Seed drives every random
// draw of the run; PasswordCost is handed to the activity stage.
type RunnerConfig struct {
	Store        Store
	Cache        Cache
	Sources      Sources
	Seed         uint64
	PasswordCost int
	Logger       *zap.Logger
}

// Runner executes the stages against one store and cache.
type Runner struct {
	store        Store
	cache        Cache
	sources      Sources
	seed         uint64
	random       *rand.Rand
	passwordCost int
	logger       *zap.Logger
}

// Report collects the result of every stage that ran.
type Report struct {
	Seed         uint64               `yaml:"seed,omitempty"`
	Authors      *authors.Result      `yaml:"authors,omitempty"`
	Branches     *branches.Result     `yaml:"branches,omitempty"`
	Activity     *activity.Result     `yaml:"activity,omitempty"`
	Availability *availability.Result `yaml:"availability,omitempty"`
	Audit        *audit.Report        `yaml:"audit,omitempty"`
}

// WriteYAML encodes the report to w.
func (r Report) WriteYAML(w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(r); err != nil {
		return err
	}
	return encoder.Close()
}

// NewRunner validates cfg and builds a Runner.
func NewRunner(cfg RunnerConfig) (*Runner, error) {
	if cfg.Store == nil {
		return nil, catalog.NewServiceError(opRunnerNew, "missing_store", errMissingStore)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Runner{
		store:        cfg.Store,
		cache:        cfg.Cache,
		sources:      cfg.Sources,
		seed:         cfg.Seed,
		random:       rand.New(rand.NewPCG(cfg.Seed, cfg.Seed)),
		passwordCost: cfg.PasswordCost,
		logger:       logger,
	}, nil
}

// Seed runs every stage in order and audits the result. A failing stage
// stops the run; the report holds the stages that completed.
func (r *Runner) Seed(ctx context.Context) (Report, error) {
	report := Report{Seed: r.seed}
	r.logger.Info("seed run starting", zap.Uint64("seed", r.seed))

	authorsResult, err := r.Authors(ctx)
	if err != nil {
		return report, err
	}
	report.Authors = &authorsResult

	branchesResult, err := r.Branches(ctx)
	if err != nil {
		return report, err
	}
	report.Branches = &branchesResult

	activityResult, err := r.Activity(ctx)
	if err != nil {
		return report, err
	}
	report.Activity = &activityResult

	availabilityResult, err := r.Availability(ctx)
	if err != nil {
		return report, err
	}
	report.Availability = &availabilityResult

	auditReport, err := r.Audit(ctx)
	if err != nil {
		return report, err
	}
	report.Audit = &auditReport

	r.logger.Info("seed run finished", zap.Int("violations", len(auditReport.Violations)))
	return report, nil
}

// Authors loads the book collection and runs the identity and author resolver.
func (r *Runner) Authors(ctx context.Context) (authors.Result, error) {
	books, err := dataset.LoadBooks(r.sources.Books)
	if err != nil {
		return authors.Result{}, r.loadFailed("books", r.sources.Books, err)
	}
	service, err := authors.NewService(authors.ServiceConfig{Store: r.store, Logger: r.logger})
	if err != nil {
		return authors.Result{}, err
	}
	return service.Run(ctx, books)
}

// Branches loads the branch collection and runs the branch assignment engine.
func (r *Runner) Branches(ctx context.Context) (branches.Result, error) {
	sources, err := dataset.LoadBranches(r.sources.Branches)
	if err != nil {
		return branches.Result{}, r.loadFailed("branches", r.sources.Branches, err)
	}
	service, err := branches.NewService(branches.ServiceConfig{Store: r.store, Random: r.random, Logger: r.logger})
	if err != nil {
		return branches.Result{}, err
	}
	return service.Run(ctx, sources)
}

// Activity loads the user collection and runs the activity synthesizer.
func (r *Runner) Activity(ctx context.Context) (activity.Result, error) {
	users, err := dataset.LoadUsers(r.sources.Users)
	if err != nil {
		return activity.Result{}, r.loadFailed("users", r.sources.Users, err)
	}
	service, err := activity.NewService(activity.ServiceConfig{
		Store:        r.store,
		Random:       r.random,
		PasswordCost: r.passwordCost,
		Logger:       r.logger,
	})
	if err != nil {
		return activity.Result{}, err
	}
	return service.Run(ctx, users)
}

// Availability projects copy counts into the cache.
func (r *Runner) Availability(ctx context.Context) (availability.Result, error) {
	if r.cache == nil {
		return availability.Result{}, catalog.NewServiceError(opAvailability, "missing_cache", errMissingCache)
	}
	projector, err := availability.NewProjector(availability.ProjectorConfig{Store: r.store, Cache: r.cache, Logger: r.logger})
	if err != nil {
		return availability.Result{}, err
	}
	return projector.Run(ctx)
}

// Audit checks the store, and the cache when one is configured.
func (r *Runner) Audit(ctx context.Context) (audit.Report, error) {
	auditor, err := audit.NewAuditor(audit.AuditorConfig{Store: r.store, Cache: r.cache, Logger: r.logger})
	if err != nil {
		return audit.Report{}, err
	}
	return auditor.Run(ctx)
}

func (r *Runner) loadFailed(collection, path string, err error) error {
	r.logger.Error("pipeline error",
		zap.String("operation", opLoad),
		zap.String("reason", "load_failed"),
		zap.String("collection", collection),
		zap.String("path", path),
		zap.Error(err))
	return catalog.NewServiceError(opLoad, collection+"_load_failed", err)
}
