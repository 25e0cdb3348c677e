package app

import (
	"net/http"
	"quizcert/internal/config"
	"quizcert/internal/middleware"
	"quizcert/internal/util"
	"quizcert/pkg/monitoring"
	"quizcert/pkg/security"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	store := cookie.NewStore([]byte(cfg.Server.SecretKey))
	store.Options(sessions.Options{
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Server.Mode == "release",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   86400 * 7,
	})
	router.Use(sessions.Sessions(util.SessionName, store))
	router.Use(middleware.RequestLogger())
	router.Use(middleware.Identity(s.auth))

	router.GET("/health", c.health.HealthCheck)
	router.GET("/metrics", monitoring.PrometheusHandler())

	a.registerStudentRoutes(router, c)
	a.registerAdminRoutes(router, c, s, cfg)
}

func (a *App) registerStudentRoutes(router *gin.Engine, c *controllers) {
	router.GET("/", c.student.Home)

	tests := router.Group("/tests")
	{
		// :slug 同时兼容旧的数字 ID 链接
		tests.GET("/:slug/take", c.student.TakeTest)
		tests.POST("/:slug/submit", c.student.SubmitTest)
		tests.GET("/:slug/certificate/:attemptId", security.NoStore(), c.student.Certificate)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	base := cfg.Server.AdminBase
	loginLimiter := security.LoginLimiter(cfg.Admin)

	router.GET(base, c.admin.LoginPage)
	router.POST(base+"/login", loginLimiter, c.admin.Login)

	// 所有管理端写操作都需要表单中的 CSRF token
	admin := router.Group(base)
	admin.Use(security.NoStore(), middleware.AdminRequired(s.auth, base), middleware.CSRF())
	{
		admin.POST("/logout", c.admin.Logout)
		admin.GET("/results", c.admin.Results)
		admin.GET("/export.csv", c.admin.ExportCSV)
		admin.GET("/certificates", c.admin.Certificates)
		admin.POST("/certificates/files/:name/delete", c.admin.DeleteCertificate)

		admin.GET("/tests", c.adminTest.ListTests)
		admin.POST("/tests", c.adminTest.CreateTest)
		admin.GET("/tests/:id", c.adminTest.EditTest)
		admin.POST("/tests/:id", c.adminTest.UpdateTest)
		admin.POST("/tests/:id/delete", c.adminTest.DeleteTest)
		admin.POST("/tests/:id/questions", c.adminTest.AddQuestion)
		admin.POST("/questions/:qid", c.adminTest.UpdateQuestion)
		admin.POST("/questions/:qid/delete", c.adminTest.DeleteQuestion)
	}

	// 文件直链不跳转登录页
	files := router.Group(base + "/certificates")
	files.Use(security.NoStore(), middleware.AdminFileAccess(s.auth))
	{
		files.GET("/log", c.admin.DownloadLog)
		files.GET("/files/:name", c.admin.DownloadCertificate)
	}
}
