package service

import (
	"context"
	"path/filepath"
	"quizcert/internal/config"
	"quizcert/internal/model"
	"quizcert/internal/repository"
	"quizcert/pkg/database"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "quiz.db"),
	}, "test")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

type fixture struct {
	db        *gorm.DB
	tests     *TestService
	questions *QuestionService
	attempts  *AttemptService
	attemptRp *repository.AttemptRepository
}

func newFixture(t *testing.T, issuer CertificateIssuer) *fixture {
	t.Helper()
	db := newTestDB(t)
	testRepo := repository.NewTestRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	attemptRepo := repository.NewAttemptRepository(db)
	return &fixture{
		db:        db,
		tests:     NewTestService(testRepo),
		questions: NewQuestionService(questionRepo, testRepo),
		attempts:  NewAttemptService(testRepo, questionRepo, attemptRepo, issuer),
		attemptRp: attemptRepo,
	}
}

func (f *fixture) countAttempts(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.Attempt{}).Count(&n).Error)
	return n
}

func mcq(prompt string, correct string) QuestionRequest {
	return QuestionRequest{
		Type:    model.QuestionMultipleChoice,
		Prompt:  prompt,
		A:       "Option A",
		B:       "Option B",
		C:       "Option C",
		D:       "Option D",
		Correct: correct,
	}
}

// recordingIssuer 记录签发请求，不生成文件
type recordingIssuer struct {
	calls []IssueRequest
	err   error
}

func (r *recordingIssuer) Issue(ctx context.Context, req IssueRequest) (*IssuedCertificate, error) {
	r.calls = append(r.calls, req)
	if r.err != nil {
		return nil, r.err
	}
	return &IssuedCertificate{FileName: "cert.pdf"}, nil
}
