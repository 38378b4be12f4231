package storage

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/practice-sem-2/campus-chat-service/internal/models"
)

// ErrRetryable marks failures that may succeed when the whole unit of work is retried.
var ErrRetryable = errors.New("transient storage failure")

func GetPgxConstraintName(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

func getPgxCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRetryable) || errors.Is(err, driver.ErrBadConn) {
		return true
	}
	code := getPgxCode(err)
	switch {
	case code == pgerrcode.SerializationFailure, code == pgerrcode.DeadlockDetected:
		return true
	case strings.HasPrefix(code, "08"):
		// connection exception class
		return true
	}
	return false
}

func classifyError(err error) error {
	if err == nil || errors.Is(err, ErrRetryable) || !IsRetryable(err) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRetryable, err)
}

func chunks[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultChunkSize
	}
	res := make([][]T, 0, (len(items)+size-1)/size)
	for size < len(items) {
		items, res = items[size:], append(res, items[:size])
	}
	if len(items) > 0 {
		res = append(res, items)
	}
	return res
}

func selectPage[T any](ctx context.Context, db Scope, base sq.SelectBuilder, req models.PageRequest, orderBy ...string) (*models.Page[T], error) {
	req = req.Normalize()

	query, args, err := sq.Select("count(*)").
		FromSelect(base, "q").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var total uint64
	if err = db.GetContext(ctx, &total, query, args...); err != nil {
		return nil, err
	}

	query, args, err = base.
		OrderBy(orderBy...).
		Limit(req.PerPage).
		Offset(req.Offset()).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	items := make([]T, 0, req.PerPage)
	if err = db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}

	return models.NewPage(items, total, req), nil
}

func rowsAffected(res interface{ RowsAffected() (int64, error) }, err error) (int64, error) {
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
