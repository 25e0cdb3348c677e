package middleware

import (
	"net/http"
	"quizcert/internal/service"
	"quizcert/internal/util"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// Identity 把会话中的管理员标记和学生姓名放入请求上下文
func Identity(auth service.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		c.Set(util.ContextAdminFlag, auth.IsAuthorized(session))
		if name, ok := session.Get(util.SessionStudent).(string); ok {
			c.Set(util.SessionStudent, name)
		}
		c.Next()
	}
}

// AdminRequired 管理页面未登录时跳转到登录页
func AdminRequired(auth service.Authorizer, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.IsAuthorized(sessions.Default(c)) {
			c.Redirect(http.StatusFound, loginPath)
			c.Abort()
			return
		}
		c.Set(util.ContextAdminFlag, true)
		c.Next()
	}
}

// AdminFileAccess 证书与日志文件直链，未授权直接 403，不跳转
func AdminFileAccess(auth service.Authorizer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !auth.IsAuthorized(sessions.Default(c)) {
			util.AbortWithError(c, util.ErrForbidden)
			return
		}
		c.Set(util.ContextAdminFlag, true)
		c.Next()
	}
}

func IsAdmin(c *gin.Context) bool {
	return c.GetBool(util.ContextAdminFlag)
}

func StudentName(c *gin.Context) string {
	return c.GetString(util.SessionStudent)
}
