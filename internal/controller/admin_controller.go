package controller

import (
	"bytes"
	"errors"
	"net/http"
	"quizcert/internal/middleware"
	"quizcert/internal/model"
	"quizcert/internal/service"
	"quizcert/internal/util"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

type AdminController struct {
	Auth     service.AdminAuthenticator
	Attempts *service.AttemptService
	Certs    *service.CertificateService
	BasePath string
}

func NewAdminController(auth service.AdminAuthenticator, attempts *service.AttemptService,
	certificates *service.CertificateService, basePath string) *AdminController {
	return &AdminController{
		Auth:     auth,
		Attempts: attempts,
		Certs:    certificates,
		BasePath: basePath,
	}
}

func (c *AdminController) path(p string) string {
	return c.BasePath + p
}

// adminData 管理页面公共的模板数据
func adminData(ctx *gin.Context, base string, data gin.H) gin.H {
	data["Base"] = base
	data["CSRF"] = middleware.CSRFToken(ctx)
	return data
}

// LoginPage 已登录直接进入结果页
func (c *AdminController) LoginPage(ctx *gin.Context) {
	if c.Auth.IsAuthorized(sessions.Default(ctx)) {
		ctx.Redirect(http.StatusFound, c.path("/results"))
		return
	}
	ctx.HTML(http.StatusOK, "admin_login.html", gin.H{"Base": c.BasePath})
}

func (c *AdminController) Login(ctx *gin.Context) {
	err := c.Auth.Login(sessions.Default(ctx), ctx.PostForm("password"))
	if err != nil {
		if errors.Is(err, util.ErrValidation) {
			ctx.HTML(http.StatusUnauthorized, "admin_login.html", gin.H{
				"Base":  c.BasePath,
				"Error": util.PublicMessage(err),
			})
			return
		}
		util.RenderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, c.path("/results"))
}

func (c *AdminController) Logout(ctx *gin.Context) {
	if err := c.Auth.Logout(sessions.Default(ctx)); err != nil {
		util.RenderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, c.BasePath)
}

type resultRow struct {
	Attempt         model.Attempt
	TestTitle       string
	CertificatePath string
}

// Results 最近的作答记录
func (c *AdminController) Results(ctx *gin.Context) {
	attempts, err := c.Attempts.ListRecent(ctx.Request.Context(), util.ResultsLimit)
	if err != nil {
		util.RenderError(ctx, err)
		return
	}

	rows := make([]resultRow, 0, len(attempts))
	for _, a := range attempts {
		row := resultRow{Attempt: a}
		if a.Test != nil {
			row.TestTitle = a.Test.Title
			if a.Passed {
				row.CertificatePath = certificatePath(a.Test.Slug, a.ID)
			}
		}
		rows = append(rows, row)
	}

	ctx.HTML(http.StatusOK, "admin_results.html", adminData(ctx, c.BasePath, gin.H{
		"Rows": rows,
	}))
}

// ExportCSV 导出最近 5000 条记录
func (c *AdminController) ExportCSV(ctx *gin.Context) {
	origin := requestOrigin(ctx)
	var buf bytes.Buffer
	err := c.Attempts.ExportCSV(ctx.Request.Context(), &buf, util.ExportLimit, func(a *model.Attempt) string {
		if a.Test == nil {
			return ""
		}
		return origin + certificatePath(a.Test.Slug, a.ID)
	})
	if err != nil {
		util.RenderError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", `attachment; filename="results.csv"`)
	ctx.Data(http.StatusOK, util.MimeCSV, buf.Bytes())
}

func requestOrigin(ctx *gin.Context) string {
	scheme := "http"
	if ctx.Request.TLS != nil || ctx.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + ctx.Request.Host
}

// Certificates 证书面板：已保存的文件与日志
func (c *AdminController) Certificates(ctx *gin.Context) {
	files, err := c.Certs.ListStored(ctx.Request.Context())
	if err != nil {
		util.RenderError(ctx, err)
		return
	}
	entries, err := c.Certs.LogEntries()
	if err != nil {
		util.RenderError(ctx, err)
		return
	}

	ctx.HTML(http.StatusOK, "admin_certificates.html", adminData(ctx, c.BasePath, gin.H{
		"Files":   files,
		"Entries": entries,
	}))
}

func (c *AdminController) DownloadLog(ctx *gin.Context) {
	data, err := c.Certs.LogBytes()
	if err != nil {
		util.AbortWithError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="certificates_log_`+time.Now().UTC().Format(util.DateFormat)+`.xlsx"`)
	ctx.Data(http.StatusOK, util.MimeXLSX, data)
}

func (c *AdminController) DownloadCertificate(ctx *gin.Context) {
	name, ok := util.CleanFileName(ctx.Param("name"))
	if !ok {
		util.AbortWithError(ctx, util.ErrFileNotFound)
		return
	}

	data, err := c.Certs.ReadStored(ctx.Request.Context(), name)
	if err != nil {
		util.AbortWithError(ctx, err)
		return
	}
	ctx.Header("Content-Disposition", `attachment; filename="`+name+`"`)
	ctx.Data(http.StatusOK, util.MimePDF, data)
}

// DeleteCertificate 删除已保存的证书文件，日志保持不变
func (c *AdminController) DeleteCertificate(ctx *gin.Context) {
	name, ok := util.CleanFileName(ctx.Param("name"))
	if !ok {
		util.RenderError(ctx, util.ErrFileNotFound)
		return
	}
	if err := c.Certs.DeleteStored(ctx.Request.Context(), name); err != nil {
		util.RenderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, c.path("/certificates"))
}
