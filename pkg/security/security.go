package security

import (
	"net/http"
	"quizcert/internal/config"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// 页面只加载本站资源，模板里有内联样式
const contentSecurityPolicy = "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'"

// CORS 仅白名单 Origin 可跨域读取，未配置时不输出任何 CORS 头
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	originSet := make(map[string]bool, len(cfg.AllowedOrigins))
	for _, o := range cfg.AllowedOrigins {
		originSet[strings.TrimRight(o, "/")] = true
	}

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin == "" || !originSet[origin] {
			c.Next()
			return
		}

		c.Header("Access-Control-Allow-Origin", origin)
		c.Header("Access-Control-Allow-Credentials", "true")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		c.Header("Vary", "Origin")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// Secure 通用安全响应头
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "same-origin")
		c.Header("Content-Security-Policy", contentSecurityPolicy)
		if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
			c.Header("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		c.Next()
	}
}

// NoStore 证书、日志和管理页面不允许缓存
func NoStore() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Cache-Control", "no-store")
		c.Next()
	}
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Limiter 按客户端 IP 的令牌桶，窗口内最多 burst 次
type Limiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	every    rate.Limit
	burst    int
	expiry   time.Duration
	message  string
}

// NewLimiter maxRequests 或 window 非正数时返回 nil，表示不限流
func NewLimiter(maxRequests int, window time.Duration, message string) *Limiter {
	if maxRequests <= 0 || window <= 0 {
		return nil
	}
	expiry := window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	return &Limiter{
		visitors: make(map[string]*visitor),
		every:    rate.Every(window / time.Duration(maxRequests)),
		burst:    maxRequests,
		expiry:   expiry,
		message:  message,
	}
}

// Allow 是否放行 key 的本次请求
func (l *Limiter) Allow(key string) bool {
	now := time.Now()

	l.mu.Lock()
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.every, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	l.mu.Unlock()

	return v.limiter.AllowN(now, 1)
}

// Sweep 清理长时间未出现的 IP
func (l *Limiter) Sweep(now time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for key, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.expiry {
			delete(l.visitors, key)
		}
	}
}

func (l *Limiter) sweepLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for now := range ticker.C {
		l.Sweep(now)
	}
}

func (l *Limiter) Middleware() gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	go l.sweepLoop()

	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.String(http.StatusTooManyRequests, l.message)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RateLimiter 全站限流
func RateLimiter(cfg config.RateLimitConfig) gin.HandlerFunc {
	return NewLimiter(cfg.MaxRequests, time.Duration(cfg.WindowMinutes)*time.Minute,
		"Too many requests, please try again later").Middleware()
}

// LoginLimiter 管理员登录尝试限流
func LoginLimiter(cfg config.AdminConfig) gin.HandlerFunc {
	return NewLimiter(cfg.LoginAttempts, time.Duration(cfg.LoginWindowMinutes)*time.Minute,
		"Too many login attempts, please wait a few minutes").Middleware()
}
