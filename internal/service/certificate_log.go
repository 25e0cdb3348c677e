package service

import (
	"errors"
	"os"
	"path/filepath"
	"quizcert/internal/util"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/xuri/excelize/v2"
)

const certificateLogSheet = "Certificates"

var certificateLogHeader = []interface{}{"timestamp", "test_title", "student_name", "score", "pdf_file"}

// LogEntry 证书日志中的一行
type LogEntry struct {
	Timestamp   time.Time
	TestTitle   string
	StudentName string
	Score       int
	PDFFile     string
}

// CertificateLog 只追加的 xlsx 证书日志。
// 进程内用互斥锁，跨进程用文件锁，整个读-改-写过程串行执行
type CertificateLog struct {
	Path string
	mu   sync.Mutex
}

func NewCertificateLog(path string) *CertificateLog {
	return &CertificateLog{Path: path}
}

func (l *CertificateLog) lock() (func(), error) {
	l.mu.Lock()
	if err := os.MkdirAll(filepath.Dir(l.Path), 0755); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	fl := flock.New(l.Path + ".lock")
	if err := fl.Lock(); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	return func() {
		fl.Unlock()
		l.mu.Unlock()
	}, nil
}

// Append 追加一行，文件不存在时先写表头
func (l *CertificateLog) Append(e LogEntry) error {
	unlock, err := l.lock()
	if err != nil {
		return util.StorageError("lock certificate log", err)
	}
	defer unlock()

	f, created, err := l.openOrCreate()
	if err != nil {
		return util.StorageError("open certificate log", err)
	}
	defer f.Close()

	rows, err := f.GetRows(certificateLogSheet)
	if err != nil {
		return util.StorageError("read certificate log", err)
	}
	cell, err := excelize.CoordinatesToCellName(1, len(rows)+1)
	if err != nil {
		return err
	}
	row := []interface{}{
		e.Timestamp.UTC().Format(time.RFC3339),
		e.TestTitle,
		e.StudentName,
		e.Score,
		e.PDFFile,
	}
	if err := f.SetSheetRow(certificateLogSheet, cell, &row); err != nil {
		return util.StorageError("write certificate log", err)
	}

	if created {
		err = f.SaveAs(l.Path)
	} else {
		err = f.Save()
	}
	if err != nil {
		return util.StorageError("save certificate log", err)
	}
	return nil
}

func (l *CertificateLog) openOrCreate() (*excelize.File, bool, error) {
	f, err := excelize.OpenFile(l.Path)
	if err == nil {
		idx, err := f.GetSheetIndex(certificateLogSheet)
		if err != nil {
			f.Close()
			return nil, false, err
		}
		if idx < 0 {
			if err := addLogSheet(f); err != nil {
				f.Close()
				return nil, false, err
			}
		}
		return f, false, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return nil, false, err
	}

	f = excelize.NewFile()
	if err := f.SetSheetName("Sheet1", certificateLogSheet); err != nil {
		f.Close()
		return nil, false, err
	}
	if err := f.SetSheetRow(certificateLogSheet, "A1", &certificateLogHeader); err != nil {
		f.Close()
		return nil, false, err
	}
	return f, true, nil
}

func addLogSheet(f *excelize.File) error {
	if _, err := f.NewSheet(certificateLogSheet); err != nil {
		return err
	}
	return f.SetSheetRow(certificateLogSheet, "A1", &certificateLogHeader)
}

// Entries 读取全部数据行（不含表头），日志不存在时返回空
func (l *CertificateLog) Entries() ([]LogEntry, error) {
	unlock, err := l.lock()
	if err != nil {
		return nil, util.StorageError("lock certificate log", err)
	}
	defer unlock()

	f, err := excelize.OpenFile(l.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, util.StorageError("open certificate log", err)
	}
	defer f.Close()

	rows, err := f.GetRows(certificateLogSheet)
	if err != nil {
		return nil, util.StorageError("read certificate log", err)
	}

	entries := make([]LogEntry, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue
		}
		for len(row) < len(certificateLogHeader) {
			row = append(row, "")
		}
		ts, _ := time.Parse(time.RFC3339, row[0])
		score, _ := strconv.Atoi(row[3])
		entries = append(entries, LogEntry{
			Timestamp:   ts,
			TestTitle:   row[1],
			StudentName: row[2],
			Score:       score,
			PDFFile:     row[4],
		})
	}
	return entries, nil
}

// Bytes 在锁内读取整个日志文件，供管理员下载
func (l *CertificateLog) Bytes() ([]byte, error) {
	unlock, err := l.lock()
	if err != nil {
		return nil, util.StorageError("lock certificate log", err)
	}
	defer unlock()

	data, err := os.ReadFile(l.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, util.ErrFileNotFound
		}
		return nil, util.StorageError("read certificate log", err)
	}
	return data, nil
}
