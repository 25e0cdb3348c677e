package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"io"
	"net/http"
	"quizcert/internal/util"
	"quizcert/pkg/logger"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	CSRFFormField  = "_csrf"
	CSRFHeader     = "X-CSRF-Token"
	csrfSessionKey = "csrf_token"
	csrfContextKey = "csrfToken"
	csrfTokenBytes = 32
)

func newCSRFToken() (string, error) {
	b := make([]byte, csrfTokenBytes)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// CSRF 会话内保存一个随机 token，非 GET 请求必须通过表单字段或请求头带回
func CSRF() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		token, _ := session.Get(csrfSessionKey).(string)

		switch c.Request.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			if token == "" {
				var err error
				if token, err = newCSRFToken(); err != nil {
					util.AbortWithError(c, err)
					return
				}
				session.Set(csrfSessionKey, token)
				if err := session.Save(); err != nil {
					util.AbortWithError(c, util.StorageError("save session", err))
					return
				}
			}
		default:
			submitted := c.PostForm(CSRFFormField)
			if submitted == "" {
				submitted = c.GetHeader(CSRFHeader)
			}
			if token == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
				logger.Log.Warn("csrf token mismatch",
					zap.String("path", c.Request.URL.Path),
					zap.String("client_ip", c.ClientIP()),
				)
				util.AbortWithError(c, util.ErrForbidden)
				return
			}
		}

		c.Set(csrfContextKey, token)
		c.Next()
	}
}

// CSRFToken 供模板渲染隐藏字段
func CSRFToken(c *gin.Context) string {
	return c.GetString(csrfContextKey)
}
