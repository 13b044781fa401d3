package db

import (
	"context"
	"time"

	"Gin_postgres_redis_device_tracker/models"
)

func (r *Repo) CreateInvite(ctx context.Context, email, displayName, token string, expiresAt time.Time, createdBy string) (*models.Invite, error) {
	inv := &models.Invite{Email: email, DisplayName: displayName, Token: token, ExpiresAt: expiresAt.UTC(), CreatedBy: createdBy}
	return inv, r.DB.WithContext(ctx).Create(inv).Error
}

func (r *Repo) GetInviteByToken(ctx context.Context, token string) (*models.Invite, error) {
	var inv models.Invite
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&inv).Error; err != nil {
		return nil, translate(err)
	}
	return &inv, nil
}

func (r *Repo) ListInvites(ctx context.Context, pendingOnly bool) ([]models.Invite, error) {
	invs := []models.Invite{}
	tx := r.DB.WithContext(ctx).Order("created_at DESC")
	if pendingOnly {
		tx = tx.Where("used_at IS NULL AND expires_at > ?", time.Now().UTC())
	}
	return invs, tx.Find(&invs).Error
}

func (r *Repo) MarkInviteUsed(ctx context.Context, token string) error {
	now := time.Now().UTC()
	res := r.DB.WithContext(ctx).Model(&models.Invite{}).
		Where("token = ? AND used_at IS NULL", token).
		Update("used_at", &now)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrInviteConsumed
	}
	return nil
}
