package models

import (
	"strings"
	"time"
)

const ScheduleTable = "lsb_schedule_sessions"

// Weekday is the canonical English day name stored with each session.
type Weekday string

const (
	Monday    Weekday = "Monday"
	Tuesday   Weekday = "Tuesday"
	Wednesday Weekday = "Wednesday"
	Thursday  Weekday = "Thursday"
	Friday    Weekday = "Friday"
	Saturday  Weekday = "Saturday"
	Sunday    Weekday = "Sunday"
)

// Weekdays lists every day, Monday first.
func Weekdays() []Weekday {
	return []Weekday{Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday}
}

// ParseWeekday accepts any casing of a canonical day name.
func ParseWeekday(s string) (Weekday, bool) {
	s = strings.TrimSpace(s)
	for _, d := range Weekdays() {
		if strings.EqualFold(s, string(d)) {
			return d, true
		}
	}
	return "", false
}

// ScheduleSession 课表中的一节课（每周重复）。
type ScheduleSession struct {
	ID         string  `gorm:"type:uuid;primaryKey" json:"id"`
	HolderID   string  `gorm:"type:uuid;index:idx_schedule_holder_day,priority:1;not null" json:"holderId"`
	HolderName string  `gorm:"size:255;not null" json:"holderName"`
	Course     string  `gorm:"size:200;not null" json:"course"`
	Location   string  `gorm:"size:120" json:"location,omitempty"`
	Day        Weekday `gorm:"size:10;index:idx_schedule_holder_day,priority:2;not null" json:"day"`
	StartTime  string  `gorm:"size:5;not null" json:"startTime"` // HH:MM
	EndTime    string  `gorm:"size:5;not null" json:"endTime"`   // HH:MM

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (ScheduleSession) TableName() string { return ScheduleTable }
