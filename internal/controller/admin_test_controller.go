package controller

import (
	"fmt"
	"net/http"
	"quizcert/internal/service"
	"quizcert/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminTestController 测试与题目管理
type AdminTestController struct {
	Tests     *service.TestService
	Questions *service.QuestionService
	BasePath  string
}

func NewAdminTestController(tests *service.TestService, questions *service.QuestionService, basePath string) *AdminTestController {
	return &AdminTestController{Tests: tests, Questions: questions, BasePath: basePath}
}

func (c *AdminTestController) testURL(id uint) string {
	return fmt.Sprintf("%s/tests/%d", c.BasePath, id)
}

func idParam(ctx *gin.Context, name string, notFound error) (uint, bool) {
	id, ok := util.ParseID(ctx.Param(name))
	if !ok {
		util.RenderError(ctx, notFound)
	}
	return id, ok
}

func (c *AdminTestController) ListTests(ctx *gin.Context) {
	rows, err := c.Tests.ListTestsWithCounts(ctx.Request.Context())
	if err != nil {
		util.RenderError(ctx, err)
		return
	}
	ctx.HTML(http.StatusOK, "admin_tests.html", adminData(ctx, c.BasePath, gin.H{
		"Tests": rows,
	}))
}

func (c *AdminTestController) CreateTest(ctx *gin.Context) {
	var req service.TestRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.RenderError(ctx, util.NewValidationError("pass_score", "Pass score must be a whole number"))
		return
	}

	test, err := c.Tests.CreateTest(ctx.Request.Context(), req.Title, req.PassScore)
	if err != nil {
		util.RenderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, c.testURL(test.ID))
}

// EditTest 编辑页按录入顺序展示题目
func (c *AdminTestController) EditTest(ctx *gin.Context) {
	id, ok := idParam(ctx, "id", util.ErrTestNotFound)
	if !ok {
		return
	}
	test, err := c.Tests.GetTest(ctx.Request.Context(), id)
	if err != nil {
		util.RenderError(ctx, err)
		return
	}
	questions, err := c.Questions.ListQuestions(ctx.Request.Context(), id)
	if err != nil {
		util.RenderError(ctx, err)
		return
	}

	ctx.HTML(http.StatusOK, "admin_test_edit.html", adminData(ctx, c.BasePath, gin.H{
		"Test":      test,
		"Questions": questions,
		"TakePath":  testPath(test.Slug, "take"),
	}))
}

func (c *AdminTestController) UpdateTest(ctx *gin.Context) {
	id, ok := idParam(ctx, "id", util.ErrTestNotFound)
	if !ok {
		return
	}
	var req service.TestRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.RenderError(ctx, util.NewValidationError("pass_score", "Pass score must be a whole number"))
		return
	}

	if _, err := c.Tests.RenameTest(ctx.Request.Context(), id, req.Title, req.PassScore); err != nil {
		util.RenderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, c.testURL(id))
}

func (c *AdminTestController) DeleteTest(ctx *gin.Context) {
	id, ok := idParam(ctx, "id", util.ErrTestNotFound)
	if !ok {
		return
	}
	if err := c.Tests.DeleteTest(ctx.Request.Context(), id); err != nil {
		util.RenderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, c.BasePath+"/tests")
}

func (c *AdminTestController) AddQuestion(ctx *gin.Context) {
	id, ok := idParam(ctx, "id", util.ErrTestNotFound)
	if !ok {
		return
	}
	var req service.QuestionRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.RenderError(ctx, util.NewValidationError("", err.Error()))
		return
	}

	if _, err := c.Questions.AddQuestion(ctx.Request.Context(), id, req); err != nil {
		util.RenderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, c.testURL(id))
}

func (c *AdminTestController) UpdateQuestion(ctx *gin.Context) {
	qid, ok := idParam(ctx, "qid", util.ErrQuestionNotFound)
	if !ok {
		return
	}
	var req service.QuestionRequest
	if err := ctx.ShouldBind(&req); err != nil {
		util.RenderError(ctx, util.NewValidationError("", err.Error()))
		return
	}

	q, err := c.Questions.UpdateQuestion(ctx.Request.Context(), qid, req)
	if err != nil {
		util.RenderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, c.testURL(q.TestID))
}

func (c *AdminTestController) DeleteQuestion(ctx *gin.Context) {
	qid, ok := idParam(ctx, "qid", util.ErrQuestionNotFound)
	if !ok {
		return
	}
	testID, err := c.Questions.DeleteQuestion(ctx.Request.Context(), qid)
	if err != nil {
		util.RenderError(ctx, err)
		return
	}
	ctx.Redirect(http.StatusFound, c.testURL(testID))
}
