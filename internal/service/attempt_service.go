package service

import (
	"context"
	"encoding/csv"
	"io"
	"quizcert/internal/model"
	"quizcert/internal/repository"
	"quizcert/internal/util"
	"quizcert/pkg/logger"
	"quizcert/pkg/monitoring"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// CertificateIssuer 通过后同步签发证书
type CertificateIssuer interface {
	Issue(ctx context.Context, req IssueRequest) (*IssuedCertificate, error)
}

type AttemptService struct {
	Tests     *repository.TestRepository
	Questions *repository.QuestionRepository
	Attempts  *repository.AttemptRepository
	Issuer    CertificateIssuer
	Now       func() time.Time
}

func NewAttemptService(tests *repository.TestRepository, questions *repository.QuestionRepository,
	attempts *repository.AttemptRepository, issuer CertificateIssuer) *AttemptService {
	return &AttemptService{
		Tests:     tests,
		Questions: questions,
		Attempts:  attempts,
		Issuer:    issuer,
		Now:       time.Now,
	}
}

// ReviewEntry 结果页的逐题对照
type ReviewEntry struct {
	Prompt      string
	Chosen      string
	ChosenText  string
	Correct     model.OptionLetter
	CorrectText string
	IsCorrect   bool
}

type SubmissionResult struct {
	Test        *model.Test
	Attempt     *model.Attempt
	StudentName string
	Score       int
	Passed      bool
	Review      []ReviewEntry
	Certificate *IssuedCertificate
	// CertificateErr 签发失败不影响已保存的作答记录
	CertificateErr error
}

// ComputeScore round(100*correct/total)，.5 远离零取整，整数运算避免浮点误差
func ComputeScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}

// Grade 逐题比对答案。无效或缺失的答案记为未作答，不会判为正确
func Grade(questions []model.Question, answers map[uint]string) (int, []ReviewEntry) {
	correct := 0
	review := make([]ReviewEntry, 0, len(questions))
	for i := range questions {
		q := &questions[i]
		entry := ReviewEntry{
			Prompt:      q.Prompt,
			Chosen:      util.NoAnswer,
			Correct:     q.Correct,
			CorrectText: q.Option(q.Correct),
		}

		if letter, ok := model.ParseOptionLetter(answers[q.ID]); ok && q.HasOption(letter) {
			entry.Chosen = string(letter)
			entry.ChosenText = q.Option(letter)
			entry.IsCorrect = letter == q.Correct
		}
		if entry.IsCorrect {
			correct++
		}
		review = append(review, entry)
	}
	return correct, review
}

// ScoreSubmission 计分并保存作答记录，通过时签发证书
func (s *AttemptService) ScoreSubmission(ctx context.Context, test *model.Test, questions []model.Question,
	studentName string, answers map[uint]string) (*SubmissionResult, error) {
	studentName = strings.TrimSpace(studentName)
	if studentName == "" {
		return nil, util.NewValidationError("student_name", "Please enter your name")
	}
	if len(questions) == 0 {
		return nil, util.NewValidationError("questions", "This test has no questions yet")
	}

	correct, review := Grade(questions, answers)
	score := ComputeScore(correct, len(questions))

	snapshot := make(map[string]interface{}, len(questions))
	for _, r := range questions {
		if letter, ok := model.ParseOptionLetter(answers[r.ID]); ok && r.HasOption(letter) {
			snapshot[strconv.FormatUint(uint64(r.ID), 10)] = string(letter)
		}
	}

	attempt := &model.Attempt{
		TestID:      test.ID,
		StudentName: studentName,
		TestTitle:   test.Title,
		TestSlug:    test.Slug,
		Score:       score,
		Passed:      score >= test.PassScore,
		Answers:     snapshot,
		CreatedAt:   s.Now().UTC(),
	}
	if err := s.Attempts.Create(ctx, attempt); err != nil {
		return nil, util.StorageError("create attempt", err)
	}
	monitoring.AttemptsTotal.WithLabelValues(attempt.Status()).Inc()

	result := &SubmissionResult{
		Test:        test,
		Attempt:     attempt,
		StudentName: studentName,
		Score:       score,
		Passed:      attempt.Passed,
		Review:      review,
	}

	if attempt.Passed && s.Issuer != nil {
		cert, err := s.Issuer.Issue(ctx, IssueRequest{
			StudentName: studentName,
			TestTitle:   test.Title,
			TestSlug:    test.Slug,
			Score:       score,
			AttemptID:   attempt.ID,
			PassDate:    attempt.CreatedAt,
		})
		if err != nil {
			logger.Log.Error("certificate issuance failed",
				zap.Uint("attempt_id", attempt.ID),
				zap.String("test", test.Slug),
				zap.Error(err),
			)
			result.CertificateErr = err
		}
		result.Certificate = cert
	}

	return result, nil
}

// Submit 加载题目后计分
func (s *AttemptService) Submit(ctx context.Context, test *model.Test, studentName string, answers map[uint]string) (*SubmissionResult, error) {
	questions, err := s.Questions.ListByTest(ctx, test.ID)
	if err != nil {
		return nil, util.StorageError("list questions", err)
	}
	return s.ScoreSubmission(ctx, test, questions, studentName, answers)
}

// AuthorizeCertificate 学生只能下载本人在该测试最近一次通过的证书，管理员不受限
func (s *AttemptService) AuthorizeCertificate(ctx context.Context, test *model.Test, attemptID uint,
	sessionName string, isAdmin bool) (*model.Attempt, error) {
	attempt, err := s.Attempts.FindForTest(ctx, attemptID, test.ID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrAttemptNotFound
		}
		return nil, util.StorageError("find attempt", err)
	}
	if !attempt.Passed {
		return nil, util.ErrForbidden
	}
	if isAdmin {
		return attempt, nil
	}

	if sessionName == "" || sessionName != attempt.StudentName {
		return nil, util.ErrForbidden
	}
	latest, err := s.Attempts.LatestPassing(ctx, test.ID, sessionName)
	if err != nil {
		return nil, util.StorageError("find latest attempt", err)
	}
	if latest.ID != attempt.ID {
		return nil, util.ErrForbidden
	}
	return attempt, nil
}

func (s *AttemptService) ListRecent(ctx context.Context, limit int) ([]model.Attempt, error) {
	attempts, err := s.Attempts.ListRecent(ctx, limit)
	if err != nil {
		return nil, util.StorageError("list attempts", err)
	}
	return attempts, nil
}

var exportHeader = []string{"created_at", "test_title", "student_name", "score", "status", "attempt_id", "certificate_url"}

// ExportCSV 导出最近的作答记录。certURL 为通过的记录生成证书地址
func (s *AttemptService) ExportCSV(ctx context.Context, w io.Writer, limit int, certURL func(*model.Attempt) string) error {
	attempts, err := s.ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(exportHeader); err != nil {
		return err
	}
	for i := range attempts {
		a := &attempts[i]
		title, url := "", ""
		if a.Test != nil {
			title = a.Test.Title
		}
		if a.Passed && certURL != nil {
			url = certURL(a)
		}
		row := []string{
			a.CreatedAt.UTC().Format(time.RFC3339),
			title,
			a.StudentName,
			strconv.Itoa(a.Score),
			a.Status(),
			strconv.FormatUint(uint64(a.ID), 10),
			url,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
