package repository

import (
	"context"
	"quizcert/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

// Create 追加到测试末尾
func (r *QuestionRepository) Create(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		if err := tx.Model(&model.Question{}).
			Where("test_id = ?", q.TestID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error; err != nil {
			return err
		}
		q.Position = maxPos + 1
		return tx.Create(q).Error
	})
}

func (r *QuestionRepository) FindByID(ctx context.Context, id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.WithContext(ctx).First(&q, id).Error
	return &q, err
}

// Update 只更新内容字段，保留 test_id 与 position
func (r *QuestionRepository) Update(ctx context.Context, q *model.Question) error {
	return r.DB.WithContext(ctx).Model(&model.Question{}).
		Where("id = ?", q.ID).
		Select("qtype", "prompt", "a", "b", "c", "d", "correct").
		Updates(map[string]interface{}{
			"qtype":   q.Type,
			"prompt":  q.Prompt,
			"a":       q.A,
			"b":       q.B,
			"c":       q.C,
			"d":       q.D,
			"correct": q.Correct,
		}).Error
}

func (r *QuestionRepository) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&model.Question{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListByTest 按录入顺序
func (r *QuestionRepository) ListByTest(ctx context.Context, testID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("position asc, id asc").
		Find(&questions).Error
	return questions, err
}
