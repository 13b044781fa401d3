package db

import (
	"context"
	"time"

	"Gin_postgres_redis_device_tracker/models"

	"gorm.io/gorm"
)

const (
	DefaultHistoryLimit = 100
	MaxHistoryLimit     = 1000
)

type HistoryQuery struct {
	DeviceID string
	HolderID string
	Action   models.EventAction
	Limit    int
}

// ListHistory 最新的在前。
func (r *Repo) ListHistory(ctx context.Context, q HistoryQuery) ([]models.CheckoutEvent, error) {
	if q.Limit <= 0 {
		q.Limit = DefaultHistoryLimit
	}
	if q.Limit > MaxHistoryLimit {
		q.Limit = MaxHistoryLimit
	}
	tx := r.DB.WithContext(ctx).Model(&models.CheckoutEvent{})
	if q.DeviceID != "" {
		tx = tx.Where("device_id = ?", q.DeviceID)
	}
	if q.HolderID != "" {
		tx = tx.Where("holder_id = ?", q.HolderID)
	}
	if q.Action != "" {
		tx = tx.Where("action = ?", q.Action)
	}
	evs := []models.CheckoutEvent{}
	err := tx.Order("at DESC").Limit(q.Limit).Find(&evs).Error
	return evs, err
}

// PruneDuplicateEvents 删除同一设备、持有人、动作下与上一条保留记录间隔不超过 window 的流水。
// 返回删除条数。
func (r *Repo) PruneDuplicateEvents(ctx context.Context, window time.Duration) (int, error) {
	var evs []models.CheckoutEvent
	if err := r.DB.WithContext(ctx).
		Order("device_id, holder_id, action, at ASC").
		Find(&evs).Error; err != nil {
		return 0, err
	}

	var (
		drop []string
		kept *models.CheckoutEvent
	)
	for i := range evs {
		ev := &evs[i]
		sameKey := kept != nil &&
			kept.DeviceID == ev.DeviceID && kept.HolderID == ev.HolderID && kept.Action == ev.Action
		if sameKey && ev.At.Sub(kept.At) <= window {
			drop = append(drop, ev.ID)
			continue
		}
		kept = ev
	}
	if len(drop) == 0 {
		return 0, nil
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		const batch = 500
		for start := 0; start < len(drop); start += batch {
			end := min(start+batch, len(drop))
			if err := tx.Where("id IN ?", drop[start:end]).Delete(&models.CheckoutEvent{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(drop), nil
}
