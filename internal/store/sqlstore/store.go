package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq" // Postgres driver
	"github.com/mattn/go-sqlite3"
	"github.com/pliu/personifid/internal/common"
	"github.com/pliu/personifid/internal/models"
	"github.com/pliu/personifid/internal/store"
	"github.com/pliu/personifid/internal/xlog"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gl "gorm.io/gorm/logger"
)

type SQLStore struct {
	db         *gorm.DB
	sqlDB      *sql.DB
	driverName string
}

var _ store.Store = (*SQLStore)(nil)

type Option func(*options)

type options struct {
	logger       gl.Interface
	maxOpenConns int
}

func WithLogger(l gl.Interface) Option {
	return func(o *options) { o.logger = l }
}

func WithMaxOpenConns(n int) Option {
	return func(o *options) { o.maxOpenConns = n }
}

// New opens driverName ("sqlite3", "postgres" or "mysql") and migrates the
// schema.
func New(driverName, dataSourceName string, opts ...Option) (*SQLStore, error) {
	o := options{logger: xlog.NewGormLogger(false), maxOpenConns: 10}
	for _, opt := range opts {
		opt(&o)
	}

	if driverName == "sqlite3" {
		dataSourceName = sqliteDSN(dataSourceName)
	}
	sqlDB, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	var dialector gorm.Dialector
	switch driverName {
	case "sqlite3":
		// SQLite allows one writer; a single connection also keeps
		// ":memory:" databases alive for the life of the store.
		sqlDB.SetMaxOpenConns(1)
		dialector = sqlite.New(sqlite.Config{DriverName: driverName, Conn: sqlDB})
	case "postgres":
		sqlDB.SetMaxOpenConns(o.maxOpenConns)
		dialector = postgres.New(postgres.Config{Conn: sqlDB})
	case "mysql":
		sqlDB.SetMaxOpenConns(o.maxOpenConns)
		dialector = gormmysql.New(gormmysql.Config{Conn: sqlDB})
	default:
		sqlDB.Close()
		return nil, fmt.Errorf("unsupported driver %q", driverName)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         o.logger,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		sqlDB.Close()
		return nil, err
	}

	s := &SQLStore{db: db, sqlDB: sqlDB, driverName: driverName}
	if err := s.migrate(); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// sqliteDSN turns on foreign keys for every connection the pool opens,
// unless the DSN already sets them.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys=") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

func (s *SQLStore) migrate() error {
	return s.db.AutoMigrate(
		&models.Account{},
		&models.Identity{},
		&models.Context{},
		&models.IdentityContext{},
	)
}

func (s *SQLStore) Tx(ctx context.Context, fn func(tx store.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&SQLStore{db: tx, sqlDB: s.sqlDB, driverName: s.driverName})
	})
}

func (s *SQLStore) Totals(ctx context.Context) (models.Totals, error) {
	var t models.Totals
	db := s.db.WithContext(ctx)
	if err := db.Model(&models.Account{}).Count(&t.Users).Error; err != nil {
		return t, err
	}
	if err := db.Model(&models.Identity{}).Count(&t.Identities).Error; err != nil {
		return t, err
	}
	if err := db.Model(&models.Context{}).Count(&t.Contexts).Error; err != nil {
		return t, err
	}
	return t, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

func (s *SQLStore) Close() error {
	return s.sqlDB.Close()
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.Errorf(common.ErrNotFound, "%s not found", what)
	}
	return err
}

// isDuplicate reports a unique constraint violation. TranslateError only
// understands the drivers GORM ships with, so the database/sql drivers
// opened in New are checked directly as well.
func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == 1062
	}
	return false
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
