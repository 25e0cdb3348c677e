package repository

import (
	"context"
	"quizcert/internal/model"
	"quizcert/internal/util"

	"gorm.io/gorm"
)

// 并发创建同名测试时唯一索引冲突的最大重试次数
const slugConflictRetries = 5

type TestRepository struct {
	DB *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{DB: db}
}

func (r *TestRepository) FindByID(ctx context.Context, id uint) (*model.Test, error) {
	var test model.Test
	err := r.DB.WithContext(ctx).First(&test, id).Error
	return &test, err
}

func (r *TestRepository) FindBySlug(ctx context.Context, slug string) (*model.Test, error) {
	var test model.Test
	err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&test).Error
	return &test, err
}

func (r *TestRepository) List(ctx context.Context) ([]model.Test, error) {
	var tests []model.Test
	err := r.DB.WithContext(ctx).Order("id desc").Find(&tests).Error
	return tests, err
}

// TestListRow 管理端列表附带题目数量
type TestListRow struct {
	model.Test
	QuestionCount int64
}

func (r *TestRepository) ListWithCounts(ctx context.Context) ([]TestListRow, error) {
	var rows []TestListRow
	err := r.DB.WithContext(ctx).Table("tests t").
		Select("t.*, (SELECT COUNT(*) FROM questions q WHERE q.test_id = t.id) AS question_count").
		Order("t.id desc").
		Scan(&rows).Error
	return rows, err
}

func slugTaken(tx *gorm.DB, slug string, excludeID uint) (bool, error) {
	var count int64
	q := tx.Model(&model.Test{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveWithUniqueSlug 在同一事务内选取 base, base-2 ... 中第一个空闲 slug 并保存。
// 唯一索引冲突（并发写入）时整体重试。
func (r *TestRepository) SaveWithUniqueSlug(ctx context.Context, test *model.Test, base string) error {
	var err error
	for i := 0; i < slugConflictRetries; i++ {
		err = r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			slug, err := util.UniqueSlug(base, func(candidate string) (bool, error) {
				return slugTaken(tx, candidate, test.ID)
			})
			if err != nil {
				return err
			}
			test.Slug = slug
			if test.ID == 0 {
				return tx.Create(test).Error
			}
			return tx.Save(test).Error
		})
		if !IsUniqueViolation(err) {
			return err
		}
	}
	return err
}

func (r *TestRepository) Update(ctx context.Context, test *model.Test) error {
	return r.DB.WithContext(ctx).Save(test).Error
}

// Delete 删除测试及其题目、作答记录
func (r *TestRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("test_id = ?", id).Delete(&model.Attempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("test_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Test{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
