// models/device.go
package models

import "time"

const DeviceTable = "lsb_devices"
const CheckoutEventTable = "lsb_checkout_events"

type DeviceStatus string

const (
	DeviceAvailable DeviceStatus = "available"
	DeviceInUse     DeviceStatus = "in_use"
	DeviceOverdue   DeviceStatus = "overdue"
)

// CheckedOut reports whether the status belongs to the checked-out superstate.
func (s DeviceStatus) CheckedOut() bool { return s == DeviceInUse || s == DeviceOverdue }

func (s DeviceStatus) Valid() bool {
	switch s {
	case DeviceAvailable, DeviceInUse, DeviceOverdue:
		return true
	}
	return false
}

// Device 共享设备池中的一台设备。holder 字段仅在借出状态下存在。
type Device struct {
	ID     string       `gorm:"type:uuid;primaryKey" json:"id"`
	Label  string       `gorm:"size:120;uniqueIndex;not null" json:"label"`
	Status DeviceStatus `gorm:"size:20;not null;default:'available';index" json:"status"`

	HolderID         *string    `gorm:"type:uuid;index" json:"holderId,omitempty"`
	HolderName       *string    `gorm:"size:255" json:"holderName,omitempty"`
	CheckedOutAt     *time.Time `json:"checkedOutAt,omitempty"`
	ExpectedReturnAt *time.Time `json:"expectedReturnAt,omitempty"`

	// audit only
	LastReturnedAt *time.Time `json:"lastReturnedAt,omitempty"`
	LastHolderID   *string    `gorm:"type:uuid" json:"lastHolderId,omitempty"`
	LastHolderName *string    `gorm:"size:255" json:"lastHolderName,omitempty"`

	Version   int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Consistent reports whether the status and holder fields agree:
// available <=> no holder fields, checked out => holder id and checkout time set.
func (d *Device) Consistent() bool {
	if !d.Status.Valid() {
		return false
	}
	if d.Status == DeviceAvailable {
		return d.HolderID == nil && d.HolderName == nil && d.CheckedOutAt == nil && d.ExpectedReturnAt == nil
	}
	return d.HolderID != nil && *d.HolderID != "" && d.CheckedOutAt != nil
}

type EventAction string

const (
	ActionPickup EventAction = "pickup"
	ActionReturn EventAction = "return"
)

// CheckoutEvent 借还流水，只追加不修改。
type CheckoutEvent struct {
	ID         string      `gorm:"type:uuid;primaryKey" json:"id"`
	DeviceID   string      `gorm:"type:uuid;index:idx_event_lookup,priority:1;not null" json:"deviceId"`
	HolderID   string      `gorm:"type:uuid;index:idx_event_lookup,priority:2;not null" json:"holderId"`
	HolderName string      `gorm:"size:255;not null" json:"holderName"`
	Action     EventAction `gorm:"size:10;index:idx_event_lookup,priority:3;not null" json:"action"`
	At         time.Time   `gorm:"index:idx_event_lookup,priority:4;not null" json:"at"`
}

func (Device) TableName() string        { return DeviceTable }
func (CheckoutEvent) TableName() string { return CheckoutEventTable }
