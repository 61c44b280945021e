package repository

import (
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/pkg/errors"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/models"
)

const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// sqlitePragmas mirrors the write-ahead, relaxed-sync tuning used for the
// single-file deployment.
const sqlitePragmas = "_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)"

// Open connects to the configured database. name is the SQLite file, dsn the
// MySQL data source.
func Open(driver, name, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case DriverSQLite, "":
		dialector = sqlite.Open(withPragmas(name))
	case DriverMySQL:
		dialector = mysql.Open(dsn)
	default:
		return nil, errors.Wrapf(customerrors.ErrConfiguration, "unknown database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, errors.Wrap(customerrors.ErrStoreUnavailable, "connect db failed: "+err.Error())
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, errors.Wrap(err, "get core db failed")
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, errors.Wrap(customerrors.ErrStoreUnavailable, "ping core db failed: "+err.Error())
	}
	return db, nil
}

// Migrate creates or updates the short_links table.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Link{}); err != nil {
		return errors.Wrap(err, "migrate short_links")
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func withPragmas(name string) string {
	if name == ":memory:" || strings.Contains(name, "_pragma=") {
		return name
	}
	if strings.Contains(name, "?") {
		return name + "&" + sqlitePragmas
	}
	return name + "?" + sqlitePragmas
}
