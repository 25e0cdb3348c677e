package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"quizcert/internal/config"
	"quizcert/internal/model"
	"quizcert/internal/util"
	"quizcert/pkg/logger"
	"quizcert/pkg/monitoring"
	"quizcert/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

type IssueRequest struct {
	StudentName string
	TestTitle   string
	TestSlug    string
	Score       int
	AttemptID   uint
	PassDate    time.Time
}

type IssuedCertificate struct {
	FileName string
	Location string
	Stored   bool
	PDF      []byte
}

type CertificateService struct {
	Renderer *CertificateRenderer
	Storage  *StorageService
	Log      *CertificateLog
	Store    bool
	Now      func() time.Time
}

func NewCertificateService(cfg config.CertificateConfig, storage *StorageService) *CertificateService {
	return &CertificateService{
		Renderer: &CertificateRenderer{
			LogoPath:       cfg.LogoPath,
			SignaturePath:  cfg.SignaturePath,
			Signatory:      cfg.Signatory,
			SignatoryTitle: cfg.SignatoryTitle,
		},
		Storage: storage,
		Log:     NewCertificateLog(cfg.LogPath),
		Store:   cfg.Store,
		Now:     time.Now,
	}
}

func (s *CertificateService) Render(req IssueRequest) ([]byte, error) {
	return s.Renderer.Render(req.StudentName, req.TestTitle, req.PassDate)
}

// Issue 生成证书；开启存储时保存文件，并在日志中追加一行
func (s *CertificateService) Issue(ctx context.Context, req IssueRequest) (cert *IssuedCertificate, err error) {
	ctx, span := tracing.StartSpan(ctx, "certificate.issue",
		attribute.Int64("attempt.id", int64(req.AttemptID)),
		attribute.String("test.slug", req.TestSlug),
	)
	defer func() { tracing.EndSpan(span, err) }()

	pdf, err := s.Render(req)
	if err != nil {
		return nil, err
	}

	cert = &IssuedCertificate{
		FileName: util.CertificateFileName(req.StudentName, req.TestSlug, req.AttemptID, req.PassDate),
		PDF:      pdf,
	}

	if s.Store && s.Storage != nil {
		location, err := s.Storage.Upload(ctx, cert.FileName, bytes.NewReader(pdf), int64(len(pdf)), util.MimePDF)
		if err != nil {
			return cert, util.StorageError("store certificate", err)
		}
		cert.Location = location
		cert.Stored = true
	}

	if s.Log != nil && s.Log.Path != "" {
		ref := cert.Location
		if ref == "" {
			ref = cert.FileName
		}
		if err := s.Log.Append(LogEntry{
			Timestamp:   s.Now(),
			TestTitle:   req.TestTitle,
			StudentName: req.StudentName,
			Score:       req.Score,
			PDFFile:     ref,
		}); err != nil {
			return cert, err
		}
	}

	monitoring.CertificatesIssued.Inc()
	logger.Log.Info("certificate issued",
		zap.Uint("attempt_id", req.AttemptID),
		zap.String("test", req.TestSlug),
		zap.Bool("stored", cert.Stored),
	)
	return cert, nil
}

// ForAttempt 优先返回已保存的文件，没有则重新生成
func (s *CertificateService) ForAttempt(ctx context.Context, test *model.Test, attempt *model.Attempt) ([]byte, error) {
	// 文件名和证书内容以提交时的测验快照为准，测验改名后仍能找到原文件
	title, slug := test.Title, test.Slug
	if attempt.TestSlug != "" {
		title, slug = attempt.TestTitle, attempt.TestSlug
	}

	if s.Store && s.Storage != nil {
		name := util.CertificateFileName(attempt.StudentName, slug, attempt.ID, attempt.CreatedAt)
		data, err := s.ReadStored(ctx, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, util.ErrNotFound) {
			logger.Log.Warn("read stored certificate failed, rendering again", zap.String("file", name), zap.Error(err))
		}
	}

	return s.Render(IssueRequest{
		StudentName: attempt.StudentName,
		TestTitle:   title,
		TestSlug:    slug,
		Score:       attempt.Score,
		AttemptID:   attempt.ID,
		PassDate:    attempt.CreatedAt,
	})
}

// ReadStored 读取已保存的证书文件
func (s *CertificateService) ReadStored(ctx context.Context, name string) ([]byte, error) {
	rc, err := s.Storage.Open(ctx, name)
	if err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return nil, err
		}
		return nil, util.StorageError("open certificate", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, util.StorageError("read certificate", err)
	}
	return data, nil
}

func (s *CertificateService) ListStored(ctx context.Context) ([]StoredObject, error) {
	objects, err := s.Storage.List(ctx)
	if err != nil {
		return nil, util.StorageError("list certificates", err)
	}
	return objects, nil
}

// DeleteStored 只删除文件，签发日志中的记录保留
func (s *CertificateService) DeleteStored(ctx context.Context, name string) error {
	if err := s.Storage.Delete(ctx, name); err != nil {
		if errors.Is(err, util.ErrNotFound) {
			return err
		}
		return util.StorageError("delete certificate", err)
	}
	logger.Log.Info("stored certificate deleted", zap.String("file", name))
	return nil
}

func (s *CertificateService) LogEntries() ([]LogEntry, error) {
	return s.Log.Entries()
}

func (s *CertificateService) LogBytes() ([]byte, error) {
	return s.Log.Bytes()
}
