package repository

import (
	"context"
	"quizcert/internal/model"

	"gorm.io/gorm"
)

type AttemptRepository struct {
	DB *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{DB: db}
}

func (r *AttemptRepository) Create(ctx context.Context, a *model.Attempt) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

// FindForTest 作答记录必须属于该测试
func (r *AttemptRepository) FindForTest(ctx context.Context, id, testID uint) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.WithContext(ctx).
		Where("id = ? AND test_id = ?", id, testID).
		First(&a).Error
	return &a, err
}

// LatestPassing 学生在该测试下最近一次通过的记录
func (r *AttemptRepository) LatestPassing(ctx context.Context, testID uint, studentName string) (*model.Attempt, error) {
	var a model.Attempt
	err := r.DB.WithContext(ctx).
		Where("test_id = ? AND student_name = ? AND passed = ?", testID, studentName, true).
		Order("id desc").
		First(&a).Error
	return &a, err
}

// ListRecent 最新的若干条记录，附带测试信息
func (r *AttemptRepository) ListRecent(ctx context.Context, limit int) ([]model.Attempt, error) {
	var attempts []model.Attempt
	err := r.DB.WithContext(ctx).
		Preload("Test").
		Order("id desc").
		Limit(limit).
		Find(&attempts).Error
	return attempts, err
}
