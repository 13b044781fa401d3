package db

import (
	"context"
	"fmt"
	"strings"

	"Gin_postgres_redis_device_tracker/models"
	"Gin_postgres_redis_device_tracker/tracker"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	_ tracker.ScheduleLookup  = (*Repo)(nil)
	_ tracker.HolderDirectory = (*Repo)(nil)
)

// SessionsForHolderOnDay 按开始时间排序；无课返回空切片。
func (r *Repo) SessionsForHolderOnDay(ctx context.Context, holderID string, day models.Weekday) ([]models.ScheduleSession, error) {
	ss := []models.ScheduleSession{}
	err := r.DB.WithContext(ctx).
		Where("holder_id = ? AND day = ?", holderID, day).
		Order("start_time ASC").
		Find(&ss).Error
	return ss, err
}

type ScheduleQuery struct {
	HolderID string
	Day      models.Weekday // 空 = 全部
}

func (r *Repo) ListSessions(ctx context.Context, q ScheduleQuery) ([]models.ScheduleSession, error) {
	ss := []models.ScheduleSession{}
	tx := r.DB.WithContext(ctx).Model(&models.ScheduleSession{})
	if q.HolderID != "" {
		tx = tx.Where("holder_id = ?", q.HolderID)
	}
	if q.Day != "" {
		tx = tx.Where("day = ?", q.Day)
	}
	err := tx.Order("holder_name ASC, day ASC, start_time ASC").Find(&ss).Error
	return ss, err
}

func (r *Repo) FindSession(ctx context.Context, id string) (*models.ScheduleSession, error) {
	var s models.ScheduleSession
	if err := r.DB.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// CreateSession 校验后写入；HolderName 取自用户显示名。
func (r *Repo) CreateSession(ctx context.Context, s *models.ScheduleSession) error {
	if err := validateSession(s); err != nil {
		return err
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u models.User
		if err := tx.First(&u, "id = ?", s.HolderID).Error; err != nil {
			return translate(err)
		}
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		s.HolderName = u.DisplayName
		return tx.Create(s).Error
	})
}

// UpdateSession 只改课程字段，不允许换持有人。返回旧记录便于失效缓存。
func (r *Repo) UpdateSession(ctx context.Context, s *models.ScheduleSession) (*models.ScheduleSession, error) {
	if err := validateSession(s); err != nil {
		return nil, err
	}
	var prev models.ScheduleSession
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&prev, "id = ?", s.ID).Error; err != nil {
			return translate(err)
		}
		if err := tx.Model(&models.ScheduleSession{}).
			Where("id = ?", s.ID).
			Updates(map[string]any{
				"course":     s.Course,
				"location":   s.Location,
				"day":        s.Day,
				"start_time": s.StartTime,
				"end_time":   s.EndTime,
			}).Error; err != nil {
			return err
		}
		return tx.First(s, "id = ?", s.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &prev, nil
}

func (r *Repo) DeleteSession(ctx context.Context, id string) (*models.ScheduleSession, error) {
	var s models.ScheduleSession
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&s, "id = ?", id).Error; err != nil {
			return translate(err)
		}
		return tx.Delete(&s).Error
	})
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func validateSession(s *models.ScheduleSession) error {
	s.Course = strings.TrimSpace(s.Course)
	s.Location = strings.TrimSpace(s.Location)
	if s.HolderID == "" || s.Course == "" {
		return fmt.Errorf("%w: holderId and course are required", tracker.ErrInvalidArgument)
	}
	day, ok := models.ParseWeekday(string(s.Day))
	if !ok {
		return fmt.Errorf("%w: unknown day %q", tracker.ErrInvalidArgument, s.Day)
	}
	s.Day = day
	if _, err := tracker.Windows([]models.ScheduleSession{*s}); err != nil {
		return fmt.Errorf("%w: %v", tracker.ErrInvalidArgument, err)
	}
	return nil
}
