package repository

import (
	"errors"

	repo "marketplace/internal/repository"

	"github.com/jackc/pgx/v5/pgconn"
)

// postgresのSQLSTATE
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgUniqueViolation      = "23505"
)

// シリアライゼーション失敗・デッドロック・一意制約違反をErrConflictへ寄せる。
// 呼び出し側はErrConflictだけ見てリトライ判断できる。
func wrapConflict(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgUniqueViolation:
			return repo.ErrConflict
		}
	}
	return err
}
