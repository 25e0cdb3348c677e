package service

import (
	"context"
	"embed"
	"fmt"
	"io"
	"quizcert/internal/model"
	"quizcert/internal/util"
	"quizcert/pkg/logger"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

//go:embed fixtures/*.yaml
var fixtures embed.FS

// TestDefinition YAML 格式的测试定义，用于种子数据和导入脚本
type TestDefinition struct {
	Title     string               `yaml:"title"`
	Slug      string               `yaml:"slug"`
	PassScore int                  `yaml:"pass_score"`
	Questions []QuestionDefinition `yaml:"questions"`
}

type QuestionDefinition struct {
	Type    string `yaml:"type"`
	Prompt  string `yaml:"prompt"`
	A       string `yaml:"a"`
	B       string `yaml:"b"`
	C       string `yaml:"c"`
	D       string `yaml:"d"`
	Correct string `yaml:"correct"`
}

func (d QuestionDefinition) request() QuestionRequest {
	return QuestionRequest{
		Type:    model.QuestionType(d.Type),
		Prompt:  d.Prompt,
		A:       d.A,
		B:       d.B,
		C:       d.C,
		D:       d.D,
		Correct: d.Correct,
	}
}

func ParseTestDefinition(r io.Reader) (*TestDefinition, error) {
	var def TestDefinition
	if err := yaml.NewDecoder(r).Decode(&def); err != nil {
		return nil, util.NewValidationError("definition", err.Error())
	}
	return &def, nil
}

type SeedService struct {
	Tests     *TestService
	Questions *QuestionService
}

func NewSeedService(tests *TestService, questions *QuestionService) *SeedService {
	return &SeedService{Tests: tests, Questions: questions}
}

// SeedDefaults 写入内置测试，slug 已存在时跳过
func (s *SeedService) SeedDefaults(ctx context.Context) error {
	f, err := fixtures.Open("fixtures/line_breaking_final_exam.yaml")
	if err != nil {
		return err
	}
	defer f.Close()

	def, err := ParseTestDefinition(f)
	if err != nil {
		return err
	}

	if def.Slug != "" {
		if _, err := s.Tests.LookupBySlug(ctx, def.Slug); err == nil {
			return nil
		} else if !util.IsNotFoundErr(err) {
			return err
		}
	}

	test, err := s.Import(ctx, def)
	if err != nil {
		return err
	}
	logger.Log.Info("seeded default test", zap.String("slug", test.Slug), zap.Int("questions", len(def.Questions)))
	return nil
}

// Import 先校验全部题目，再创建测试和题目
func (s *SeedService) Import(ctx context.Context, def *TestDefinition) (*model.Test, error) {
	reqs := make([]QuestionRequest, len(def.Questions))
	for i, qd := range def.Questions {
		reqs[i] = qd.request()
		if err := s.Questions.Validate(&reqs[i]); err != nil {
			return nil, fmt.Errorf("question %d: %w", i+1, err)
		}
	}

	test, err := s.Tests.CreateTest(ctx, def.Title, def.PassScore)
	if err != nil {
		return nil, err
	}
	for _, req := range reqs {
		if _, err := s.Questions.AddQuestion(ctx, test.ID, req); err != nil {
			return test, err
		}
	}
	return test, nil
}
