package util

const (
	DateFormat        = "2006-01-02"
	TimeFormat        = "2006-01-02 15:04:05"
	CertificateDate   = "01/02/2006"
	FileTimestamp     = "20060102T150405Z"
	NoAnswer          = "(no answer)"
	DefaultSlug       = "test"
	DefaultSafeName   = "student"
	AnswerFieldPrefix = "q_"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

const (
	MimePDF  = "application/pdf"
	MimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeCSV  = "text/csv; charset=utf-8"
)

// session 键
const (
	SessionName      = "quizcert_session"
	SessionAdminKey  = "is_admin"
	SessionStudent   = "saved_name"
	ContextAdminFlag = "isAdmin"
)

const (
	ResultsLimit = 500
	ExportLimit  = 5000
)
