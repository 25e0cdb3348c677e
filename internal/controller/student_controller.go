package controller

import (
	"fmt"
	"net/http"
	"quizcert/internal/middleware"
	"quizcert/internal/service"
	"quizcert/internal/util"
	"quizcert/pkg/logger"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StudentController struct {
	Tests        *service.TestService
	Questions    *service.QuestionService
	Attempts     *service.AttemptService
	Certificates *service.CertificateService
}

func NewStudentController(tests *service.TestService, questions *service.QuestionService,
	attempts *service.AttemptService, certificates *service.CertificateService) *StudentController {
	return &StudentController{
		Tests:        tests,
		Questions:    questions,
		Attempts:     attempts,
		Certificates: certificates,
	}
}

// Home 测试列表
func (c *StudentController) Home(ctx *gin.Context) {
	tests, err := c.Tests.ListTests(ctx.Request.Context())
	if err != nil {
		util.RenderError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "home.html", gin.H{"Tests": tests})
}

// TakeTest 每次打开都重新打乱题目顺序
func (c *StudentController) TakeTest(ctx *gin.Context) {
	test, legacy, err := c.Tests.ResolveLegacy(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		util.RenderError(ctx, err)
		return
	}
	if legacy {
		ctx.Redirect(http.StatusMovedPermanently, testPath(test.Slug, "take"))
		return
	}

	questions, err := c.Questions.ListForStudent(ctx.Request.Context(), test.ID)
	if err != nil {
		util.RenderError(ctx, err)
		return
	}

	ctx.HTML(http.StatusOK, "take.html", gin.H{
		"Test":       test,
		"Questions":  questions,
		"SavedName":  middleware.StudentName(ctx),
		"SubmitPath": testPath(test.Slug, "submit"),
	})
}

// SubmitTest 表单字段 student_name 与 q_{questionId}
func (c *StudentController) SubmitTest(ctx *gin.Context) {
	test, legacy, err := c.Tests.ResolveLegacy(ctx.Request.Context(), ctx.Param("slug"))
	if err != nil {
		util.RenderError(ctx, err)
		return
	}
	if legacy {
		// 307 保留请求方法与表单
		ctx.Redirect(http.StatusTemporaryRedirect, testPath(test.Slug, "submit"))
		return
	}

	answers := parseAnswers(ctx)
	result, err := c.Attempts.Submit(ctx.Request.Context(), test, ctx.PostForm("student_name"), answers)
	if err != nil {
		util.RenderError(ctx, err)
		return
	}

	session := sessions.Default(ctx)
	session.Set(util.SessionStudent, result.StudentName)
	if err := session.Save(); err != nil {
		logger.Log.Warn("save session failed", zap.Error(err))
	}

	data := gin.H{
		"Test":     test,
		"Result":   result,
		"TakePath": testPath(test.Slug, "take"),
	}
	if result.Passed {
		data["CertificatePath"] = certificatePath(test.Slug, result.Attempt.ID)
	}
	if result.CertificateErr != nil {
		data["CertificateNotice"] = "Your result was saved, but the certificate could not be filed. You can still download it below."
	}
	ctx.HTML(http.StatusOK, "result.html", data)
}

func parseAnswers(ctx *gin.Context) map[uint]string {
	answers := make(map[uint]string)
	if err := ctx.Request.ParseForm(); err != nil {
		return answers
	}
	for key, values := range ctx.Request.PostForm {
		if !strings.HasPrefix(key, util.AnswerFieldPrefix) || len(values) == 0 {
			continue
		}
		if id, ok := util.ParseID(strings.TrimPrefix(key, util.AnswerFieldPrefix)); ok {
			answers[id] = values[0]
		}
	}
	return answers
}

// Certificate 学生下载本人证书，管理员可下载任意通过记录的证书
func (c *StudentController) Certificate(ctx *gin.Context) {
	reqCtx := ctx.Request.Context()
	test, err := c.Tests.LookupBySlug(reqCtx, ctx.Param("slug"))
	if err != nil {
		util.RenderError(ctx, err)
		return
	}

	attemptID, ok := util.ParseID(ctx.Param("attemptId"))
	if !ok {
		util.RenderError(ctx, util.ErrAttemptNotFound)
		return
	}

	attempt, err := c.Attempts.AuthorizeCertificate(reqCtx, test, attemptID,
		middleware.StudentName(ctx), middleware.IsAdmin(ctx))
	if err != nil {
		util.RenderError(ctx, err)
		return
	}

	pdf, err := c.Certificates.ForAttempt(reqCtx, test, attempt)
	if err != nil {
		util.RenderError(ctx, err)
		return
	}

	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`,
		util.CertificateDownloadName(attempt.StudentName, test.Slug)))
	ctx.Data(http.StatusOK, util.MimePDF, pdf)
}
