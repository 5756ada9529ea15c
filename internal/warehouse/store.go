// Package warehouse loads one school year's student marks and reference
// tables from the PostgreSQL student information warehouse.
package warehouse

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"cumgpa/internal/config"
	"cumgpa/internal/errors"
	"cumgpa/pkg/contracts/domain"
)

// Store is a Postgres-backed source of yearly record sets.
type Store struct {
	pool         *pgxpool.Pool
	queries      queries
	queryTimeout time.Duration
	logger       *slog.Logger
}

// New creates a new Store and verifies the connection.
func New(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.DSN == "" {
		return nil, errors.NewConfigError("database DSN is required", nil)
	}

	q, err := buildQueries(cfg.Tables)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, errors.NewConfigError("invalid database DSN", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.NewSourceError("postgres connect", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.NewSourceError("postgres ping", err)
	}

	return &Store{
		pool:         pool,
		queries:      q,
		queryTimeout: cfg.QueryTimeout,
		logger:       logger.With(slog.String("component", "warehouse")),
	}, nil
}

// Close closes the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

// LoadYear reads the five record sets of schoolYear. Marks are restricted
// to final, non-exam rows with positive credits. The school crosswalk is
// not year specific. The queries run concurrently on the pool.
func (s *Store) LoadYear(ctx context.Context, schoolYear int) (*domain.YearTables, error) {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	tables := &domain.YearTables{SchoolYear: schoolYear}
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		tables.Marks, err = s.loadMarks(gctx, schoolYear)
		return err
	})
	g.Go(func() (err error) {
		tables.CourseInfo, err = s.loadCourseInfo(gctx, schoolYear)
		return err
	})
	g.Go(func() (err error) {
		tables.CourseFlags, err = s.loadCourseFlags(gctx, schoolYear)
		return err
	})
	g.Go(func() (err error) {
		tables.Schools, err = s.loadSchools(gctx)
		return err
	})
	g.Go(func() (err error) {
		tables.MarkDefinitions, err = s.loadMarkDefinitions(gctx, schoolYear)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "school year loaded",
		slog.Int("school_year", schoolYear),
		slog.Int("marks", len(tables.Marks)),
		slog.Int("course_info", len(tables.CourseInfo)),
		slog.Int("course_flags", len(tables.CourseFlags)),
		slog.Int("schools", len(tables.Schools)),
		slog.Int("mark_definitions", len(tables.MarkDefinitions)),
		slog.Duration("duration", time.Since(start)))

	return tables, nil
}

func queryError(set string, err error) error {
	return errors.NewSourceError(fmt.Sprintf("query %s", set), err).WithContext("record_set", set)
}
