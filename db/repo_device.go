package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"Gin_postgres_redis_device_tracker/models"
	"Gin_postgres_redis_device_tracker/tracker"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ tracker.Store = (*Repo)(nil)

// Devices

func (r *Repo) CreateDevice(ctx context.Context, label string) (*models.Device, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return nil, fmt.Errorf("%w: label is required", tracker.ErrInvalidArgument)
	}
	d := &models.Device{ID: uuid.NewString(), Label: label, Status: models.DeviceAvailable}
	if err := r.DB.WithContext(ctx).Create(d).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrLabelTaken
		}
		return nil, err
	}
	return d, nil
}

// DeleteDevice 只允许删除空闲设备，流水保留。
func (r *Repo) DeleteDevice(ctx context.Context, id string) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var d models.Device
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&d, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		if d.Status != models.DeviceAvailable {
			return fmt.Errorf("%w: device %s is checked out", tracker.ErrInvalidArgument, d.Label)
		}
		return tx.Delete(&d).Error
	})
}

func (r *Repo) ReadDevice(ctx context.Context, id string) (*models.Device, error) {
	var d models.Device
	if err := r.DB.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (r *Repo) ListDevices(ctx context.Context) ([]models.Device, error) {
	ds := []models.Device{}
	err := r.DB.WithContext(ctx).Order("label ASC").Find(&ds).Error
	return ds, err
}

func (r *Repo) ListDevicesByStatus(ctx context.Context, statuses ...models.DeviceStatus) ([]models.Device, error) {
	ds := []models.Device{}
	if len(statuses) == 0 {
		return ds, nil
	}
	err := r.DB.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("label ASC").
		Find(&ds).Error
	return ds, err
}

func (r *Repo) ListDevicesByHolder(ctx context.Context, holderID string) ([]models.Device, error) {
	ds := []models.Device{}
	err := r.DB.WithContext(ctx).
		Where("holder_id = ?", holderID).
		Order("label ASC").
		Find(&ds).Error
	return ds, err
}

// AtomicUpdateDevice 原子操作 = 锁住设备行 → 执行变更 → 带版本号写回。
// 变更函数与事件写入在同一事务内；返回 tracker.ErrNoChange 时什么都不写。
func (r *Repo) AtomicUpdateDevice(ctx context.Context, id string, fn tracker.Mutation) (*models.Device, error) {
	var out models.Device
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// 1) 锁住该设备（sqlite 会忽略 FOR UPDATE）
		var d models.Device
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&d, "id = ?", id).Error; err != nil {
			return err
		}
		before := d.Version

		// 2) 调用方变更
		if err := fn(&d, &txEventLog{tx: tx}); err != nil {
			return err
		}
		if !d.Consistent() {
			return fmt.Errorf("%w: mutation left device %s inconsistent", tracker.ErrDataIntegrity, id)
		}

		// 3) 乐观锁写回
		d.Version = before + 1
		d.UpdatedAt = time.Now().UTC()
		res := tx.Model(&models.Device{}).
			Where("id = ? AND version = ?", id, before).
			Updates(map[string]any{
				"status":             d.Status,
				"holder_id":          d.HolderID,
				"holder_name":        d.HolderName,
				"checked_out_at":     d.CheckedOutAt,
				"expected_return_at": d.ExpectedReturnAt,
				"last_returned_at":   d.LastReturnedAt,
				"last_holder_id":     d.LastHolderID,
				"last_holder_name":   d.LastHolderName,
				"version":            d.Version,
				"updated_at":         d.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return tracker.ErrConcurrentModification
		}
		out = d
		return nil
	})

	switch {
	case errors.Is(err, tracker.ErrNoChange):
		return r.ReadDevice(ctx, id)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return nil, tracker.ErrHolderHasDevice
	case err != nil:
		return nil, translate(err)
	}
	return &out, nil
}

// txEventLog 让变更函数在同一事务里查询和追加流水。
type txEventLog struct{ tx *gorm.DB }

func (l *txEventLog) FindRecent(deviceID, holderID string, action models.EventAction, since time.Time) (*models.CheckoutEvent, error) {
	var ev models.CheckoutEvent
	err := l.tx.
		Where("device_id = ? AND holder_id = ? AND action = ? AND at >= ?", deviceID, holderID, action, since.UTC()).
		Order("at DESC").
		Take(&ev).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

func (l *txEventLog) Append(ev *models.CheckoutEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	ev.At = ev.At.UTC()
	return l.tx.Create(ev).Error
}
