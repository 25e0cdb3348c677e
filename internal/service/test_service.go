package service

import (
	"context"
	"quizcert/internal/model"
	"quizcert/internal/repository"
	"quizcert/internal/util"
	"strings"
)

type TestService struct {
	Repo *repository.TestRepository
}

func NewTestService(repo *repository.TestRepository) *TestService {
	return &TestService{Repo: repo}
}

type TestRequest struct {
	Title     string `form:"title" json:"title"`
	PassScore int    `form:"pass_score,default=70" json:"passScore"`
}

func validateTest(title string, passScore int) error {
	if strings.TrimSpace(title) == "" {
		return util.NewValidationError("title", "Title is required")
	}
	if passScore < 0 || passScore > 100 {
		return util.NewValidationError("pass_score", "Pass score must be between 0 and 100")
	}
	return nil
}

// CreateTest 根据标题生成唯一 slug 后保存
func (s *TestService) CreateTest(ctx context.Context, title string, passScore int) (*model.Test, error) {
	if err := validateTest(title, passScore); err != nil {
		return nil, err
	}

	test := &model.Test{
		Title:     strings.TrimSpace(title),
		PassScore: passScore,
	}
	if err := s.Repo.SaveWithUniqueSlug(ctx, test, util.Slugify(test.Title)); err != nil {
		return nil, util.StorageError("create test", err)
	}
	return test, nil
}

// RenameTest 标题变化时才重新生成 slug，旧链接在标题不变时保持有效
func (s *TestService) RenameTest(ctx context.Context, id uint, title string, passScore int) (*model.Test, error) {
	if err := validateTest(title, passScore); err != nil {
		return nil, err
	}

	test, err := s.GetTest(ctx, id)
	if err != nil {
		return nil, err
	}

	title = strings.TrimSpace(title)
	titleChanged := title != test.Title
	test.Title = title
	test.PassScore = passScore

	if titleChanged {
		err = s.Repo.SaveWithUniqueSlug(ctx, test, util.Slugify(title))
	} else {
		err = s.Repo.Update(ctx, test)
	}
	if err != nil {
		return nil, util.StorageError("update test", err)
	}
	return test, nil
}

func (s *TestService) GetTest(ctx context.Context, id uint) (*model.Test, error) {
	test, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrTestNotFound
		}
		return nil, util.StorageError("find test", err)
	}
	return test, nil
}

func (s *TestService) LookupBySlug(ctx context.Context, slug string) (*model.Test, error) {
	test, err := s.Repo.FindBySlug(ctx, slug)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrTestNotFound
		}
		return nil, util.StorageError("find test", err)
	}
	return test, nil
}

// ResolveLegacy 兼容旧的数字 ID 链接：slug 查不到且参数是数字时按 ID 查找。
// redirect 为 true 表示调用方应跳转到 slug 地址。
func (s *TestService) ResolveLegacy(ctx context.Context, param string) (test *model.Test, redirect bool, err error) {
	test, err = s.LookupBySlug(ctx, param)
	if err == nil || !util.IsNotFoundErr(err) {
		return test, false, err
	}

	id, ok := util.ParseID(param)
	if !ok {
		return nil, false, err
	}
	test, err = s.GetTest(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return test, true, nil
}

func (s *TestService) ListTests(ctx context.Context) ([]model.Test, error) {
	tests, err := s.Repo.List(ctx)
	if err != nil {
		return nil, util.StorageError("list tests", err)
	}
	return tests, nil
}

func (s *TestService) ListTestsWithCounts(ctx context.Context) ([]repository.TestListRow, error) {
	rows, err := s.Repo.ListWithCounts(ctx)
	if err != nil {
		return nil, util.StorageError("list tests", err)
	}
	return rows, nil
}

// DeleteTest 级联删除题目与作答记录
func (s *TestService) DeleteTest(ctx context.Context, id uint) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return util.ErrTestNotFound
		}
		return util.StorageError("delete test", err)
	}
	return nil
}
