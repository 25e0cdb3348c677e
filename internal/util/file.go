package util

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// SafeName 文件名中使用的学生姓名
func SafeName(name string) string {
	s := strings.Trim(unsafeNameChars.ReplaceAllString(name, "_"), "_")
	if s == "" {
		return DefaultSafeName
	}
	return s
}

// CertificateDownloadName 浏览器下载时的文件名
func CertificateDownloadName(studentName, slug string) string {
	return "Certificate_" + SafeName(studentName) + "_" + slug + ".pdf"
}

// CertificateFileName 存储用文件名，由作答记录唯一确定
func CertificateFileName(studentName, slug string, attemptID uint, at time.Time) string {
	return "Certificate_" + SafeName(studentName) + "_" + slug + "_" +
		at.UTC().Format(FileTimestamp) + "_" + strconv.FormatUint(uint64(attemptID), 10) + ".pdf"
}

// CleanFileName 拒绝目录穿越，只保留最后一段
func CleanFileName(name string) (string, bool) {
	if name == "" || strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return "", false
	}
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) {
		return "", false
	}
	return base, true
}
