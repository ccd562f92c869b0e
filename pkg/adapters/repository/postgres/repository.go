package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wadjakorntonsri/limitlink/pkg/core/domain"
	"github.com/wadjakorntonsri/limitlink/pkg/ports"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const (
	uniqueViolation = "23505"

	codeConstraint        = "idx_links_code"
	ownerTargetConstraint = "idx_links_owner_target_active"
	identityConstraint    = "identities_pkey"
)

// Repository stores links in PostgreSQL through gorm.
type Repository struct {
	db *gorm.DB
}

func NewRepository(dsn string) (*Repository, error) {
	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := migrate(db); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&identityModel{}, &linkModel{}, &eventModel{}); err != nil {
		return err
	}
	// gorm tags cannot express a partial index
	return db.Exec(`CREATE UNIQUE INDEX IF NOT EXISTS ` + ownerTargetConstraint +
		` ON links (owner_id, target) WHERE deleted = false`).Error
}

func (r *Repository) GetByCode(ctx context.Context, code string) (*domain.Link, error) {
	return r.first(ctx, "code = ? AND deleted = ?", code, false)
}

func (r *Repository) GetAnyByCode(ctx context.Context, code string) (*domain.Link, error) {
	return r.first(ctx, "code = ?", code)
}

func (r *Repository) first(ctx context.Context, query string, args ...any) (*domain.Link, error) {
	var model linkModel
	result := r.db.WithContext(ctx).Where(query, args...).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return model.toLink(), nil
}

func (r *Repository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	return r.exists(ctx, &linkModel{}, "code = ?", code)
}

func (r *Repository) ExistsActiveTargetForOwner(ctx context.Context, ownerID, target string) (bool, error) {
	return r.exists(ctx, &linkModel{}, "owner_id = ? AND target = ? AND deleted = ?", ownerID, target, false)
}

func (r *Repository) exists(ctx context.Context, model any, query string, args ...any) (bool, error) {
	var count int64
	result := r.db.WithContext(ctx).Model(model).Where(query, args...).Limit(1).Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

func (r *Repository) Create(ctx context.Context, link *domain.Link) error {
	model := fromLink(link)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return translateError(err, link)
	}
	link.ID = model.ID
	return nil
}

func (r *Repository) IncrementUseCount(ctx context.Context, code string, now time.Time) (*domain.Link, error) {
	var model linkModel
	result := r.db.WithContext(ctx).Model(&model).Clauses(clause.Returning{}).
		Where("code = ? AND deleted = ? AND expires_at >= ? AND use_count < use_limit", code, false, now).
		Update("use_count", gorm.Expr("use_count + 1"))
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return model.toLink(), nil
}

func (r *Repository) UpdateFields(ctx context.Context, link *domain.Link) (*domain.Link, error) {
	var model linkModel
	result := r.db.WithContext(ctx).Model(&model).Clauses(clause.Returning{}).
		Where("code = ? AND deleted = ? AND use_count <= ?", link.Code, false, link.UseLimit).
		Updates(map[string]any{
			"target":     link.Target,
			"use_limit":  link.UseLimit,
			"ttl_hours":  link.TTLHours,
			"expires_at": link.ExpiresAt(),
			"updated_at": link.UpdatedAt,
		})
	if result.Error != nil {
		return nil, translateError(result.Error, link)
	}
	if result.RowsAffected == 0 {
		return nil, nil
	}
	return model.toLink(), nil
}

func (r *Repository) MarkDeleted(ctx context.Context, code string, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&linkModel{}).
		Where("code = ? AND deleted = ?", code, false).
		Updates(map[string]any{"deleted": true, "updated_at": at})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *Repository) FindExpired(ctx context.Context, now time.Time) ([]domain.Link, error) {
	var models []linkModel
	result := r.db.WithContext(ctx).
		Where("deleted = ? AND expires_at < ?", false, now).
		Order("id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}
	return toLinks(models), nil
}

func (r *Repository) Dump(ctx context.Context) ([]domain.Link, error) {
	var models []linkModel
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return toLinks(models), nil
}

func toLinks(models []linkModel) []domain.Link {
	links := make([]domain.Link, len(models))
	for i := range models {
		links[i] = *models[i].toLink()
	}
	return links
}

func (r *Repository) GetIdentity(ctx context.Context, id string) (*domain.Identity, error) {
	var model identityModel
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&model)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return &domain.Identity{ID: model.ID, CreatedAt: model.CreatedAt.UTC()}, nil
}

func (r *Repository) ExistsIdentity(ctx context.Context, id string) (bool, error) {
	return r.exists(ctx, &identityModel{}, "id = ?", id)
}

func (r *Repository) SaveIdentity(ctx context.Context, identity *domain.Identity) error {
	err := r.db.WithContext(ctx).Create(&identityModel{ID: identity.ID, CreatedAt: identity.CreatedAt}).Error
	if constraintOf(err) == identityConstraint {
		return ports.ErrIdentityTaken
	}
	return err
}

func (r *Repository) RecordEvent(ctx context.Context, event *domain.LinkEvent) error {
	model := &eventModel{
		Code:      event.Code,
		OwnerID:   event.OwnerID,
		Kind:      string(event.Kind),
		Detail:    event.Detail,
		CreatedAt: event.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	event.ID = model.ID
	return nil
}

func (r *Repository) ListEvents(ctx context.Context, code, ownerID string) ([]domain.LinkEvent, error) {
	var models []eventModel
	result := r.db.WithContext(ctx).
		Where("code = ? AND owner_id = ?", code, ownerID).
		Order("id ASC").
		Find(&models)
	if result.Error != nil {
		return nil, result.Error
	}

	events := make([]domain.LinkEvent, len(models))
	for i := range models {
		events[i] = models[i].toEvent()
	}
	return events, nil
}

// constraintOf returns the violated unique constraint, or "".
func constraintOf(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return pgErr.ConstraintName
	}
	return ""
}

func translateError(err error, link *domain.Link) error {
	switch constraintOf(err) {
	case codeConstraint:
		return ports.ErrCodeTaken
	case ownerTargetConstraint:
		return fmt.Errorf("%w: user %s already has an active link to %s", domain.ErrConflict, link.OwnerID, link.Target)
	}
	return err
}

// Ensure interface compliance
var _ ports.LinkRepository = (*Repository)(nil)
