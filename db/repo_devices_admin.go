// db/repo_devices_admin.go
package db

import (
	"context"
	"strings"
	"time"

	"Gin_postgres_redis_device_tracker/models"

	"gorm.io/gorm"
)

type AdminDeviceRow struct {
	ID               string     `json:"id"`
	Label            string     `json:"label"`
	Status           string     `json:"status"`
	HolderID         *string    `json:"holderId,omitempty"`
	HolderName       *string    `json:"holderName,omitempty"`
	HolderUsername   *string    `json:"holderUsername,omitempty"`
	CheckedOutAt     *time.Time `json:"checkedOutAt,omitempty"`
	ExpectedReturnAt *time.Time `json:"expectedReturnAt,omitempty"`
	LastReturnedAt   *time.Time `json:"lastReturnedAt,omitempty"`
	LastHolderName   *string    `json:"lastHolderName,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

type AdminDevicesQuery struct {
	Q      string // 模糊搜索：label / 持有人
	Status string // "", "available", "in_use", "overdue", "out"
	Page   int
	Size   int
}

type PagedAdminDevices struct {
	Total int64            `json:"total"`
	Items []AdminDeviceRow `json:"items"`
}

func (r *Repo) ListDevicesPage(ctx context.Context, q AdminDevicesQuery) (*PagedAdminDevices, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Size <= 0 || q.Size > 200 {
		q.Size = 20
	}
	offset := (q.Page - 1) * q.Size

	// 计数与分页各自构建一次，过滤条件一致
	filtered := func() *gorm.DB {
		qry := r.DB.WithContext(ctx).
			Table(models.DeviceTable + " d").
			Joins("LEFT JOIN lsb_users u ON u.id = d.holder_id")
		if s := strings.TrimSpace(q.Q); s != "" {
			pat := "%" + strings.ToLower(s) + "%"
			qry = qry.Where("LOWER(d.label) LIKE ? OR LOWER(d.holder_name) LIKE ? OR LOWER(u.username) LIKE ?", pat, pat, pat)
		}
		switch q.Status {
		case string(models.DeviceAvailable), string(models.DeviceInUse), string(models.DeviceOverdue):
			qry = qry.Where("d.status = ?", q.Status)
		case "out":
			qry = qry.Where("d.status <> ?", models.DeviceAvailable)
		default:
			// all
		}
		return qry
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		return nil, err
	}

	rows := []AdminDeviceRow{}
	if err := filtered().
		Select(`
			d.id, d.label, d.status,
			d.holder_id, d.holder_name,
			u.username AS holder_username,
			d.checked_out_at, d.expected_return_at,
			d.last_returned_at, d.last_holder_name,
			d.created_at, d.updated_at
		`).
		Order("d.label ASC").
		Offset(offset).Limit(q.Size).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return &PagedAdminDevices{Total: total, Items: rows}, nil
}
