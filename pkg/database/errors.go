package database

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"
	mssql "github.com/microsoft/go-mssqldb"
	"gorm.io/gorm"
)

// IsUniqueViolation reports whether err is a unique or primary key
// violation from any supported driver. Some driver translators only match
// one form of their error type, so the raw driver errors are checked too.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var liteVal sqlite3.Error
	if errors.As(err, &liteVal) {
		return sqliteUnique(liteVal)
	}
	var litePtr *sqlite3.Error
	if errors.As(err, &litePtr) && litePtr != nil {
		return sqliteUnique(*litePtr)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}

	var msVal mssql.Error
	if errors.As(err, &msVal) {
		return mssqlUnique(msVal)
	}
	var msPtr *mssql.Error
	if errors.As(err, &msPtr) && msPtr != nil {
		return mssqlUnique(*msPtr)
	}
	return false
}

func sqliteUnique(e sqlite3.Error) bool {
	return e.ExtendedCode == sqlite3.ErrConstraintUnique || e.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// 2627 is a unique constraint, 2601 a unique index.
func mssqlUnique(e mssql.Error) bool {
	return e.Number == 2627 || e.Number == 2601
}
