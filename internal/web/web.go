package web

import (
	"embed"
	"html/template"
	"quizcert/internal/util"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"datetime": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.UTC().Format(util.TimeFormat)
	},
	"kb": func(size int64) int64 {
		return (size + 1023) / 1024
	},
	"inc": func(i int) int {
		return i + 1
	},
}

// Templates 解析内嵌的页面模板
func Templates() (*template.Template, error) {
	return template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
}
