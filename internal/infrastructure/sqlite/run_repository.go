package sqlite

import (
	"context"
	"database/sql"

	"github.com/martijn/harvestd/internal/core/domain"
	"github.com/martijn/harvestd/internal/core/repository"
	"github.com/martijn/harvestd/internal/errors"
)

const (
	runColumns         = "id, started, finished, exit_code, log"
	runColumnsNoLog    = "id, started, finished, exit_code, '' AS log"
	defaultRunOrdering = "started DESC, rowid DESC"
)

type runRow struct {
	ID       string         `db:"id"`
	Started  string         `db:"started"`
	Finished sql.NullString `db:"finished"`
	ExitCode sql.NullInt64  `db:"exit_code"`
	Log      string         `db:"log"`
}

type runRepository struct {
	db *DB
}

func NewRunRepository(db *DB) repository.RunRepository {
	return &runRepository{db: db}
}

func (r *runRepository) Save(ctx context.Context, run *domain.Run) error {
	query := `
		INSERT INTO run (id, started, finished, exit_code, log)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started = excluded.started,
			finished = excluded.finished,
			exit_code = excluded.exit_code,
			log = excluded.log
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID,
		FormatTime(run.StartedAt),
		NullTime(run.FinishedAt),
		NullInt(run.ExitCode),
		run.Log,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to save run %s", run.ID)
	}
	return nil
}

func (r *runRepository) FindByID(ctx context.Context, id string) (*domain.Run, error) {
	var row runRow
	err := r.db.GetContext(ctx, &row, "SELECT "+runColumns+" FROM run WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errors.Wrapf(repository.ErrNotFound, "run %s", id)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find run %s", id)
	}
	return row.toDomain()
}

func (r *runRepository) List(ctx context.Context, filter repository.RunFilter) ([]*domain.Run, error) {
	columns := runColumnsNoLog
	if filter.IncludeLog {
		columns = runColumns
	}

	q := newQueryBuilder("SELECT "+columns+" FROM run", runColumnKinds)
	if err := q.Where(filter.Filters); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid run filter"), repository.ErrInvalidFilter)
	}
	if err := q.OrderBy(filter.Order, defaultRunOrdering); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "invalid run ordering"), repository.ErrInvalidFilter)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = repository.DefaultRunLimit
	}
	q.Page(limit, filter.Offset)

	var rows []runRow
	if err := r.db.SelectContext(ctx, &rows, q.String(), q.Args()...); err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}

	runs := make([]*domain.Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (r *runRepository) Count(ctx context.Context, filter repository.RunFilter) (int, error) {
	q := newQueryBuilder("SELECT COUNT(*) FROM run", runColumnKinds)
	if err := q.Where(filter.Filters); err != nil {
		return 0, errors.Mark(errors.Wrap(err, "invalid run filter"), repository.ErrInvalidFilter)
	}

	var count int
	if err := r.db.GetContext(ctx, &count, q.String(), q.Args()...); err != nil {
		return 0, errors.Wrap(err, "failed to count runs")
	}
	return count, nil
}

func (r *runRepository) FindUnfinished(ctx context.Context) ([]*domain.Run, error) {
	var rows []runRow
	err := r.db.SelectContext(ctx, &rows,
		"SELECT "+runColumns+" FROM run WHERE finished IS NULL ORDER BY started ASC")
	if err != nil {
		return nil, errors.Wrap(err, "failed to find unfinished runs")
	}

	runs := make([]*domain.Run, 0, len(rows))
	for _, row := range rows {
		run, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, nil
}

func (row runRow) toDomain() (*domain.Run, error) {
	started, err := ParseTime(row.Started)
	if err != nil {
		return nil, errors.Wrapf(err, "run %s", row.ID)
	}

	run := &domain.Run{
		ID:        row.ID,
		StartedAt: started,
		Log:       row.Log,
	}

	if row.Finished.Valid {
		finished, err := ParseTime(row.Finished.String)
		if err != nil {
			return nil, errors.Wrapf(err, "run %s", row.ID)
		}
		run.FinishedAt = &finished
	}
	if row.ExitCode.Valid {
		code := int(row.ExitCode.Int64)
		run.ExitCode = &code
	}

	return run, nil
}
