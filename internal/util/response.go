package util

import (
	"net/http"
	"quizcert/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Response 统一响应结构
type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    http.StatusOK,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(code, Response{
		Code:    code,
		Message: message,
	})
}

func logIfInternal(c *gin.Context, status int, err error) {
	if status >= http.StatusInternalServerError {
		logger.Log.Error("Internal server error",
			zap.String("path", c.Request.URL.Path),
			zap.Error(err),
		)
	}
}

// RespondError JSON 接口按错误分类返回
func RespondError(c *gin.Context, err error) {
	status := StatusOf(err)
	logIfInternal(c, status, err)
	Error(c, status, PublicMessage(err))
}

// RenderError 页面接口渲染纯文本错误页
func RenderError(c *gin.Context, err error) {
	status := StatusOf(err)
	logIfInternal(c, status, err)
	c.HTML(status, "error.html", gin.H{
		"Status":  status,
		"Message": PublicMessage(err),
	})
}

// AbortWithError 用于中间件与文件下载，返回纯文本并终止后续处理
func AbortWithError(c *gin.Context, err error) {
	status := StatusOf(err)
	logIfInternal(c, status, err)
	c.String(status, PublicMessage(err))
	c.Abort()
}
