package service

import (
	"context"
	"math/rand/v2"
	"quizcert/internal/model"
	"quizcert/internal/repository"
	"quizcert/internal/util"
	"strings"

	"github.com/go-playground/validator/v10"
)

type QuestionService struct {
	Repo     *repository.QuestionRepository
	TestRepo *repository.TestRepository
	validate *validator.Validate
}

func NewQuestionService(repo *repository.QuestionRepository, testRepo *repository.TestRepository) *QuestionService {
	return &QuestionService{
		Repo:     repo,
		TestRepo: testRepo,
		validate: validator.New(),
	}
}

// QuestionRequest 题目表单。判断题的选项由服务端固定
type QuestionRequest struct {
	Type    model.QuestionType `form:"qtype" json:"type" validate:"required"`
	Prompt  string             `form:"prompt" json:"prompt" validate:"required"`
	A       string             `form:"a" json:"a" validate:"required_if=Type MCQ"`
	B       string             `form:"b" json:"b" validate:"required_if=Type MCQ"`
	C       string             `form:"c" json:"c" validate:"required_if=Type MCQ"`
	D       string             `form:"d" json:"d" validate:"required_if=Type MCQ"`
	Correct string             `form:"correct" json:"correct" validate:"required,oneof=A B C D"`
}

// Normalize 去除空白、统一大小写，判断题强制 True/False 选项
func (r *QuestionRequest) Normalize() {
	r.Type = model.QuestionType(strings.ToUpper(strings.TrimSpace(string(r.Type))))
	if r.Type == "" {
		r.Type = model.QuestionMultipleChoice
	}
	r.Prompt = strings.TrimSpace(r.Prompt)
	r.A = strings.TrimSpace(r.A)
	r.B = strings.TrimSpace(r.B)
	r.C = strings.TrimSpace(r.C)
	r.D = strings.TrimSpace(r.D)
	r.Correct = strings.ToUpper(strings.TrimSpace(r.Correct))

	if r.Type == model.QuestionTrueFalse {
		r.A, r.B, r.C, r.D = model.TrueText, model.FalseText, "", ""
	}
}

// Validate 先 Normalize 再校验
func (s *QuestionService) Validate(r *QuestionRequest) error {
	r.Normalize()
	if !r.Type.Valid() {
		return util.NewValidationError("type", "Question type must be MCQ or TF")
	}
	if err := s.validate.Struct(r); err != nil {
		return util.FromValidator(err)
	}
	if r.Type == model.QuestionTrueFalse && r.Correct != string(model.OptionA) && r.Correct != string(model.OptionB) {
		return util.NewValidationError("correct", "True/False questions must use A (True) or B (False)")
	}
	return nil
}

func (r *QuestionRequest) apply(q *model.Question) {
	q.Type = r.Type
	q.Prompt = r.Prompt
	q.A, q.B, q.C, q.D = r.A, r.B, r.C, r.D
	q.Correct = model.OptionLetter(r.Correct)
}

func (s *QuestionService) AddQuestion(ctx context.Context, testID uint, req QuestionRequest) (*model.Question, error) {
	if err := s.Validate(&req); err != nil {
		return nil, err
	}
	if _, err := s.TestRepo.FindByID(ctx, testID); err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrTestNotFound
		}
		return nil, util.StorageError("find test", err)
	}

	q := &model.Question{TestID: testID}
	req.apply(q)
	if err := s.Repo.Create(ctx, q); err != nil {
		return nil, util.StorageError("create question", err)
	}
	return q, nil
}

// UpdateQuestion 保留 ID、所属测试与排序位置
func (s *QuestionService) UpdateQuestion(ctx context.Context, id uint, req QuestionRequest) (*model.Question, error) {
	if err := s.Validate(&req); err != nil {
		return nil, err
	}
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return nil, err
	}

	req.apply(q)
	if err := s.Repo.Update(ctx, q); err != nil {
		return nil, util.StorageError("update question", err)
	}
	return q, nil
}

func (s *QuestionService) GetQuestion(ctx context.Context, id uint) (*model.Question, error) {
	q, err := s.Repo.FindByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrQuestionNotFound
		}
		return nil, util.StorageError("find question", err)
	}
	return q, nil
}

// DeleteQuestion 返回所属测试 ID，便于跳转回编辑页
func (s *QuestionService) DeleteQuestion(ctx context.Context, id uint) (uint, error) {
	q, err := s.GetQuestion(ctx, id)
	if err != nil {
		return 0, err
	}
	if err := s.Repo.Delete(ctx, id); err != nil {
		if repository.IsNotFound(err) {
			return 0, util.ErrQuestionNotFound
		}
		return 0, util.StorageError("delete question", err)
	}
	return q.TestID, nil
}

// ListQuestions 管理端使用，按录入顺序
func (s *QuestionService) ListQuestions(ctx context.Context, testID uint) ([]model.Question, error) {
	questions, err := s.Repo.ListByTest(ctx, testID)
	if err != nil {
		return nil, util.StorageError("list questions", err)
	}
	return questions, nil
}

// ListForStudent 每次返回新的随机顺序
func (s *QuestionService) ListForStudent(ctx context.Context, testID uint) ([]model.Question, error) {
	questions, err := s.ListQuestions(ctx, testID)
	if err != nil {
		return nil, err
	}
	rand.Shuffle(len(questions), func(i, j int) {
		questions[i], questions[j] = questions[j], questions[i]
	})
	return questions, nil
}
