package repository

import (
	"context"
	"strings"
	"time"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	customerrors "github.com/axellelanca/shortlink/internal/errors"
	"github.com/axellelanca/shortlink/internal/models"
)

// LinkRepository est une interface qui définit les méthodes d'accès aux données
type LinkRepository interface {
	// CreateLink inserts link with the id and alias already set.
	CreateLink(ctx context.Context, link *models.Link) error
	// CreateLinkWithTempAlias inserts link under a random alias, lets the
	// store assign the id, then replaces the alias with aliasFor(id) in the
	// same transaction.
	CreateLinkWithTempAlias(ctx context.Context, link *models.Link, aliasFor func(id uint64) (string, error)) error
	GetLinkByAlias(ctx context.Context, alias string) (*models.Link, error)
	DeleteLink(ctx context.Context, alias string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	CountLinks(ctx context.Context) (int64, error)
	MaxID(ctx context.Context) (uint64, error)
	Ping(ctx context.Context) error
}

// GormLinkRepository est l'implémentation de LinkRepository utilisant GORM.
type GormLinkRepository struct {
	db *gorm.DB
}

// NewLinkRepository crée et retourne une nouvelle instance de GormLinkRepository.
func NewLinkRepository(db *gorm.DB) *GormLinkRepository {
	return &GormLinkRepository{db: db}
}

// CreateLink insère un nouveau lien dans la base de données.
// A duplicate id or alias yields ErrConflict; nothing is overwritten.
func (r *GormLinkRepository) CreateLink(ctx context.Context, link *models.Link) error {
	if err := r.db.WithContext(ctx).Create(link).Error; err != nil {
		return translateError(err, "create link %s", link.Alias)
	}
	return nil
}

func (r *GormLinkRepository) CreateLinkWithTempAlias(ctx context.Context, link *models.Link, aliasFor func(id uint64) (string, error)) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		link.ID = 0
		link.Alias = strings.ReplaceAll(uuid.NewString(), "-", "")
		if err := tx.Create(link).Error; err != nil {
			return translateError(err, "create link with temporary alias")
		}

		alias, err := aliasFor(link.ID)
		if err != nil {
			return err
		}
		if err := tx.Model(link).Update("alias", alias).Error; err != nil {
			return translateError(err, "assign alias %s to link %d", alias, link.ID)
		}
		link.Alias = alias
		return nil
	})
}

// GetLinkByAlias récupère un lien de la base de données en utilisant son alias.
func (r *GormLinkRepository) GetLinkByAlias(ctx context.Context, alias string) (*models.Link, error) {
	var link models.Link
	if err := r.db.WithContext(ctx).Where("alias = ?", alias).Take(&link).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errors.Wrapf(customerrors.ErrNotFound, "alias %s", alias)
		}
		return nil, translateError(err, "get link %s", alias)
	}
	return &link, nil
}

// DeleteLink removes the link stored under alias. Deleting an absent alias is not an error.
func (r *GormLinkRepository) DeleteLink(ctx context.Context, alias string) error {
	if err := r.db.WithContext(ctx).Where("alias = ?", alias).Delete(&models.Link{}).Error; err != nil {
		return translateError(err, "delete link %s", alias)
	}
	return nil
}

// DeleteExpired removes every link whose expiry is at or before now.
func (r *GormLinkRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("expire_at IS NOT NULL AND expire_at <= ?", now.UTC()).
		Delete(&models.Link{})
	if result.Error != nil {
		return 0, translateError(result.Error, "delete expired links")
	}
	return result.RowsAffected, nil
}

// CountLinks compte le nombre total de liens stockés.
func (r *GormLinkRepository) CountLinks(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Link{}).Count(&count).Error; err != nil {
		return 0, translateError(err, "count links")
	}
	return count, nil
}

// MaxID returns the largest stored id, 0 for an empty table.
func (r *GormLinkRepository) MaxID(ctx context.Context) (uint64, error) {
	var maxID int64
	row := r.db.WithContext(ctx).Model(&models.Link{}).Select("COALESCE(MAX(id), 0)").Row()
	if err := row.Scan(&maxID); err != nil {
		return 0, translateError(err, "read max id")
	}
	return uint64(maxID), nil
}

func (r *GormLinkRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return translateError(err, "get sql db")
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return translateError(err, "ping")
	}
	return nil
}

// translateError maps driver errors onto the shortener taxonomy.
func translateError(err error, format string, args ...interface{}) error {
	if isDuplicate(err) {
		return errors.Wrapf(customerrors.ErrConflict, format+": %v", append(args, err)...)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrapf(err, format, args...)
	}
	return errors.Wrapf(customerrors.ErrStoreUnavailable, format+": %v", append(args, err)...)
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var mysqlErr *mysqldriver.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
