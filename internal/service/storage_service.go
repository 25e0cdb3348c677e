package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"quizcert/internal/config"
	"quizcert/internal/util"
	"quizcert/pkg/logger"
	"sort"
	"strings"
	"time"

	"github.com/aliyun/aliyun-oss-go-sdk/oss"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
)

// 对象存储中证书文件的前缀
const certificatePrefix = "certificates/"

// StoredObject 已保存的证书文件
type StoredObject struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// StorageProvider 定义通用存储接口。Open 在文件不存在时返回 util.ErrFileNotFound
type StorageProvider interface {
	Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error)
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
	List(ctx context.Context) ([]StoredObject, error)
	Delete(ctx context.Context, filename string) error
	GetURL(filename string) string
}

// LocalStorageProvider 本地目录存储
type LocalStorageProvider struct {
	Dir string
}

func (p *LocalStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	if err := os.MkdirAll(p.Dir, 0755); err != nil {
		return "", err
	}

	// 先写临时文件再重命名，下载方不会读到半个文件
	tmp, err := os.CreateTemp(p.Dir, ".upload-*")
	if err != nil {
		return "", err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, reader); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), filepath.Join(p.Dir, filename)); err != nil {
		return "", err
	}

	return p.GetURL(filename), nil
}

func (p *LocalStorageProvider) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(p.Dir, filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, util.ErrFileNotFound
		}
		return nil, err
	}
	return f, nil
}

func (p *LocalStorageProvider) List(ctx context.Context) ([]StoredObject, error) {
	entries, err := os.ReadDir(p.Dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var objects []StoredObject
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		objects = append(objects, StoredObject{Name: e.Name(), Size: info.Size(), LastModified: info.ModTime()})
	}
	return objects, nil
}

func (p *LocalStorageProvider) Delete(ctx context.Context, filename string) error {
	err := os.Remove(filepath.Join(p.Dir, filename))
	if errors.Is(err, os.ErrNotExist) {
		return util.ErrFileNotFound
	}
	return err
}

func (p *LocalStorageProvider) GetURL(filename string) string {
	return filepath.ToSlash(filepath.Join(p.Dir, filename))
}

// MinioStorageProvider MinIO存储实现
type MinioStorageProvider struct {
	Config *config.StorageConfig
	Client *minio.Client
}

func NewMinioStorageProvider(cfg *config.StorageConfig) (*MinioStorageProvider, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessID, cfg.MinioSecret, ""),
		Secure: cfg.MinioSecure,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorageProvider{Config: cfg, Client: client}, nil
}

func (p *MinioStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	_, err := p.Client.PutObject(ctx, p.Config.MinioBucket, certificatePrefix+filename, reader, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *MinioStorageProvider) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	obj, err := p.Client.GetObject(ctx, p.Config.MinioBucket, certificatePrefix+filename, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	// GetObject 是惰性的，Stat 才会真正访问服务端
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, util.ErrFileNotFound
		}
		return nil, err
	}
	return obj, nil
}

func (p *MinioStorageProvider) List(ctx context.Context) ([]StoredObject, error) {
	var objects []StoredObject
	for info := range p.Client.ListObjects(ctx, p.Config.MinioBucket, minio.ListObjectsOptions{
		Prefix:    certificatePrefix,
		Recursive: true,
	}) {
		if info.Err != nil {
			return nil, info.Err
		}
		objects = append(objects, StoredObject{
			Name:         path.Base(info.Key),
			Size:         info.Size,
			LastModified: info.LastModified,
		})
	}
	return objects, nil
}

func (p *MinioStorageProvider) Delete(ctx context.Context, filename string) error {
	return p.Client.RemoveObject(ctx, p.Config.MinioBucket, certificatePrefix+filename, minio.RemoveObjectOptions{})
}

func (p *MinioStorageProvider) GetURL(filename string) string {
	return "/" + p.Config.MinioBucket + "/" + certificatePrefix + filename
}

// OSSStorageProvider 阿里云OSS存储实现
type OSSStorageProvider struct {
	Config *config.StorageConfig
	Client *oss.Client
}

func NewOSSStorageProvider(cfg *config.StorageConfig) (*OSSStorageProvider, error) {
	client, err := oss.New(cfg.OSSEndpoint, cfg.OSSAccessKey, cfg.OSSSecretKey)
	if err != nil {
		return nil, err
	}
	return &OSSStorageProvider{Config: cfg, Client: client}, nil
}

func (p *OSSStorageProvider) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return "", err
	}

	err = bucket.PutObject(certificatePrefix+filename, reader, oss.ContentType(contentType))
	if err != nil {
		return "", err
	}
	return p.GetURL(filename), nil
}

func (p *OSSStorageProvider) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return nil, err
	}
	body, err := bucket.GetObject(certificatePrefix + filename)
	if err != nil {
		var serr oss.ServiceError
		if errors.As(err, &serr) && serr.StatusCode == http.StatusNotFound {
			return nil, util.ErrFileNotFound
		}
		return nil, err
	}
	return body, nil
}

func (p *OSSStorageProvider) List(ctx context.Context) ([]StoredObject, error) {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return nil, err
	}

	var objects []StoredObject
	token := ""
	for {
		res, err := bucket.ListObjectsV2(oss.Prefix(certificatePrefix), oss.ContinuationToken(token))
		if err != nil {
			return nil, err
		}
		for _, obj := range res.Objects {
			objects = append(objects, StoredObject{
				Name:         path.Base(obj.Key),
				Size:         obj.Size,
				LastModified: obj.LastModified,
			})
		}
		if !res.IsTruncated {
			break
		}
		token = res.NextContinuationToken
	}
	return objects, nil
}

func (p *OSSStorageProvider) Delete(ctx context.Context, filename string) error {
	bucket, err := p.Client.Bucket(p.Config.OSSBucket)
	if err != nil {
		return err
	}
	return bucket.DeleteObject(certificatePrefix + filename)
}

func (p *OSSStorageProvider) GetURL(filename string) string {
	return fmt.Sprintf("https://%s.%s/%s%s", p.Config.OSSBucket, p.Config.OSSEndpoint, certificatePrefix, filename)
}

// StorageService 证书文件存储
type StorageService struct {
	Provider StorageProvider
}

func NewStorageService(cfg *config.Config) *StorageService {
	var provider StorageProvider
	switch cfg.Storage.Type {
	case util.StorageLocal, "":
	case util.StorageMinio:
		p, err := NewMinioStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("minio unavailable, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	case util.StorageOSS:
		p, err := NewOSSStorageProvider(&cfg.Storage)
		if err != nil {
			logger.Log.Warn("oss unavailable, falling back to local storage", zap.Error(err))
		} else {
			provider = p
		}
	default:
		logger.Log.Warn("unknown storage type, using local storage", zap.String("type", cfg.Storage.Type))
	}

	if provider == nil {
		provider = &LocalStorageProvider{Dir: cfg.Certificate.Dir}
	}

	return &StorageService{Provider: provider}
}

func (s *StorageService) Upload(ctx context.Context, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	return s.Provider.Upload(ctx, filename, reader, size, contentType)
}

func (s *StorageService) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	return s.Provider.Open(ctx, filename)
}

// List 按修改时间倒序
func (s *StorageService) List(ctx context.Context) ([]StoredObject, error) {
	objects, err := s.Provider.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].LastModified.After(objects[j].LastModified)
	})
	return objects, nil
}

func (s *StorageService) Delete(ctx context.Context, filename string) error {
	return s.Provider.Delete(ctx, filename)
}

func (s *StorageService) GetURL(filename string) string {
	return s.Provider.GetURL(filename)
}
