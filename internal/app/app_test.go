package app

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"quizcert/internal/config"
	"quizcert/internal/middleware"
	"quizcert/internal/model"
	"quizcert/internal/service"
	"quizcert/pkg/database"
	"regexp"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminPassword = "correct-horse"

type testEnv struct {
	app    *App
	server *httptest.Server
	dir    string
	test   *model.Test
	q1, q2 *model.Question
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Mode:      "test",
			SecretKey: "test-secret-key-test-secret-key!",
			AdminBase: "/controlpanel",
		},
		Database: config.DatabaseConfig{Driver: "sqlite", Path: filepath.Join(dir, "app.db")},
		Admin:    config.AdminConfig{Password: adminPassword, LoginAttempts: 100, LoginWindowMinutes: 1},
		Certificate: config.CertificateConfig{
			Store:     true,
			Dir:       filepath.Join(dir, "certificates"),
			LogPath:   filepath.Join(dir, "certificates_log.xlsx"),
			Signatory: "Chad Riley",
		},
		Storage: config.StorageConfig{Type: "local"},
	}

	db, err := database.Open(&cfg.Database, cfg.Server.Mode)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	app, err := New(cfg, db)
	require.NoError(t, err)

	ctx := context.Background()
	test, err := app.services.test.CreateTest(ctx, "Safety Quiz", 70)
	require.NoError(t, err)
	q1, err := app.services.question.AddQuestion(ctx, test.ID, service.QuestionRequest{
		Type: model.QuestionMultipleChoice, Prompt: "Q1", A: "a", B: "b", C: "c", D: "d", Correct: "A",
	})
	require.NoError(t, err)
	q2, err := app.services.question.AddQuestion(ctx, test.ID, service.QuestionRequest{
		Type: model.QuestionMultipleChoice, Prompt: "Q2", A: "a", B: "b", C: "c", D: "d", Correct: "B",
	})
	require.NoError(t, err)

	server := httptest.NewServer(app.Router)
	t.Cleanup(func() {
		server.Close()
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	return &testEnv{app: app, server: server, dir: dir, test: test, q1: q1, q2: q2}
}

// client 每个 client 模拟一个浏览器，不自动跟随跳转
func (e *testEnv) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (e *testEnv) get(t *testing.T, c *http.Client, path string) (*http.Response, string) {
	t.Helper()
	resp, err := c.Get(e.server.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) post(t *testing.T, c *http.Client, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := c.PostForm(e.server.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func (e *testEnv) submit(t *testing.T, c *http.Client, name, a1, a2 string) (*http.Response, string) {
	t.Helper()
	form := url.Values{"student_name": {name}}
	if a1 != "" {
		form.Set(fmt.Sprintf("q_%d", e.q1.ID), a1)
	}
	if a2 != "" {
		form.Set(fmt.Sprintf("q_%d", e.q2.ID), a2)
	}
	return e.post(t, c, "/tests/safety-quiz/submit", form)
}

func (e *testEnv) latestAttempt(t *testing.T) model.Attempt {
	t.Helper()
	var a model.Attempt
	require.NoError(t, e.app.DB.Order("id desc").First(&a).Error)
	return a
}

func (e *testEnv) loginAdmin(t *testing.T) *http.Client {
	t.Helper()
	c := e.client(t)
	resp, _ := e.post(t, c, "/controlpanel/login", url.Values{"password": {adminPassword}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	return c
}

var csrfField = regexp.MustCompile(`name="` + middleware.CSRFFormField + `" value="([^"]+)"`)

// csrfToken 从管理页面的表单中取出 token
func (e *testEnv) csrfToken(t *testing.T, c *http.Client) string {
	t.Helper()
	resp, body := e.get(t, c, "/controlpanel/tests")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	m := csrfField.FindStringSubmatch(body)
	require.Len(t, m, 2)
	return m[1]
}

func TestStudentPages(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	resp, body := env.get(t, c, "/")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Safety Quiz")
	assert.Contains(t, body, "/tests/safety-quiz/take")

	resp, body = env.get(t, c, "/tests/safety-quiz/take")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, fmt.Sprintf("q_%d", env.q1.ID))
	assert.Contains(t, body, `name="student_name"`)

	resp, _ = env.get(t, c, "/tests/unknown/take")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = env.get(t, c, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestLegacyIDRedirects(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	id := fmt.Sprint(env.test.ID)

	resp, _ := env.get(t, c, "/tests/"+id+"/take")
	assert.Equal(t, http.StatusMovedPermanently, resp.StatusCode)
	assert.Equal(t, "/tests/safety-quiz/take", resp.Header.Get("Location"))

	resp, _ = env.post(t, c, "/tests/"+id+"/submit", url.Values{"student_name": {"Ana"}})
	assert.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	assert.Equal(t, "/tests/safety-quiz/submit", resp.Header.Get("Location"))

	resp, _ = env.get(t, c, "/tests/999/take")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSubmitRequiresName(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)

	resp, _ := env.submit(t, c, "  ", "A", "B")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var n int64
	require.NoError(t, env.app.DB.Model(&model.Attempt{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestPassAndDownloadCertificate(t *testing.T) {
	env := newTestEnv(t)
	ana := env.client(t)

	resp, body := env.submit(t, ana, "Ana", "A", "C")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "50")
	failed := env.latestAttempt(t)
	assert.False(t, failed.Passed)

	resp, body = env.submit(t, ana, "Ana", "A", "B")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "100")
	passed := env.latestAttempt(t)
	require.True(t, passed.Passed)

	certPath := fmt.Sprintf("/tests/safety-quiz/certificate/%d", passed.ID)
	assert.Contains(t, body, certPath)

	resp, body = env.get(t, ana, certPath)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "Certificate_Ana_safety-quiz.pdf")
	assert.True(t, strings.HasPrefix(body, "%PDF"))

	// 通过后证书已保存并记入日志
	entries, err := os.ReadDir(filepath.Join(env.dir, "certificates"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.FileExists(t, filepath.Join(env.dir, "certificates_log.xlsx"))

	t.Run("failed attempt", func(t *testing.T) {
		resp, _ := env.get(t, ana, fmt.Sprintf("/tests/safety-quiz/certificate/%d", failed.ID))
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("no session", func(t *testing.T) {
		resp, _ := env.get(t, env.client(t), certPath)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("other student", func(t *testing.T) {
		bob := env.client(t)
		resp, _ := env.submit(t, bob, "Bob", "A", "")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		resp, _ = env.get(t, bob, certPath)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("unknown attempt", func(t *testing.T) {
		resp, _ := env.get(t, ana, "/tests/safety-quiz/certificate/9999")
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("admin", func(t *testing.T) {
		admin := env.loginAdmin(t)
		resp, body := env.get(t, admin, certPath)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.True(t, strings.HasPrefix(body, "%PDF"))
	})
}

func TestAdminAccess(t *testing.T) {
	env := newTestEnv(t)
	anon := env.client(t)

	resp, _ := env.get(t, anon, "/controlpanel/results")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/controlpanel", resp.Header.Get("Location"))

	resp, body := env.get(t, anon, "/controlpanel/certificates/log")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.NotContains(t, body, "<html")

	resp, _ = env.get(t, anon, "/controlpanel/certificates/files/x.pdf")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = env.get(t, anon, "/controlpanel")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = env.post(t, anon, "/controlpanel/login", url.Values{"password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, _ = env.post(t, anon, "/controlpanel/login", url.Values{"password": {adminPassword}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/controlpanel/results", resp.Header.Get("Location"))

	resp, _ = env.get(t, anon, "/controlpanel/results")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// 退出只接受带 token 的 POST
	resp, _ = env.get(t, anon, "/controlpanel/logout")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = env.post(t, anon, "/controlpanel/logout", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp, _ = env.get(t, anon, "/controlpanel/results")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	token := env.csrfToken(t, anon)
	resp, _ = env.post(t, anon, "/controlpanel/logout", url.Values{"_csrf": {token}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/controlpanel", resp.Header.Get("Location"))
	resp, _ = env.get(t, anon, "/controlpanel/results")
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestAdminMutationsRequireCSRF(t *testing.T) {
	env := newTestEnv(t)
	admin := env.loginAdmin(t)
	token := env.csrfToken(t, admin)
	testPath := fmt.Sprintf("/controlpanel/tests/%d", env.test.ID)

	cases := []struct {
		name string
		form url.Values
	}{
		{"missing", url.Values{}},
		{"wrong", url.Values{"_csrf": {token + "x"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp, _ := env.post(t, admin, testPath+"/delete", tc.form)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
			resp, _ = env.post(t, admin, "/controlpanel/tests", url.Values{"title": {"Sneaky"}, "_csrf": tc.form["_csrf"]})
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}

	// 另一个会话的 token 无效
	other := env.loginAdmin(t)
	otherToken := env.csrfToken(t, other)
	require.NotEqual(t, token, otherToken)
	resp, _ := env.post(t, admin, testPath+"/delete", url.Values{"_csrf": {otherToken}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, body := env.get(t, env.client(t), "/tests/safety-quiz/take")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Q1")

	// 请求头同样可以携带 token
	req, err := http.NewRequest(http.MethodPost, env.server.URL+testPath+"/delete", nil)
	require.NoError(t, err)
	req.Header.Set(middleware.CSRFHeader, token)
	resp, err = admin.Do(req)
	require.NoError(t, err)
	readBody(t, resp)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestAdminResultsAndFiles(t *testing.T) {
	env := newTestEnv(t)
	student := env.client(t)
	resp, _ := env.submit(t, student, "Ana", "A", "B")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	passed := env.latestAttempt(t)

	admin := env.loginAdmin(t)

	resp, body := env.get(t, admin, "/controlpanel/results")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Ana")

	resp, body = env.get(t, admin, "/controlpanel/export.csv")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/csv")
	lines := strings.Split(strings.TrimSpace(body), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "created_at,test_title,student_name"))
	assert.Contains(t, lines[1], fmt.Sprintf("/tests/safety-quiz/certificate/%d", passed.ID))

	resp, body = env.get(t, admin, "/controlpanel/certificates")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Certificate_Ana_safety-quiz_")

	resp, _ = env.get(t, admin, "/controlpanel/certificates/log")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	entries, err := os.ReadDir(filepath.Join(env.dir, "certificates"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	resp, body = env.get(t, admin, "/controlpanel/certificates/files/"+entries[0].Name())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "%PDF"))

	resp, _ = env.get(t, admin, "/controlpanel/certificates/files/missing.pdf")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAdminDeletesStoredCertificate(t *testing.T) {
	env := newTestEnv(t)
	student := env.client(t)
	resp, _ := env.submit(t, student, "Ana", "A", "B")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	passed := env.latestAttempt(t)

	entries, err := os.ReadDir(filepath.Join(env.dir, "certificates"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	name := entries[0].Name()
	deletePath := "/controlpanel/certificates/files/" + name + "/delete"

	resp, _ = env.post(t, env.client(t), deletePath, nil)
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/controlpanel", resp.Header.Get("Location"))
	assert.FileExists(t, filepath.Join(env.dir, "certificates", name))

	admin := env.loginAdmin(t)
	token := env.csrfToken(t, admin)

	resp, body := env.get(t, admin, "/controlpanel/certificates")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, deletePath)

	resp, _ = env.post(t, admin, deletePath, url.Values{"_csrf": {token}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/controlpanel/certificates", resp.Header.Get("Location"))
	assert.NoFileExists(t, filepath.Join(env.dir, "certificates", name))

	resp, _ = env.post(t, admin, deletePath, url.Values{"_csrf": {token}})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// 文件删除后学生仍可重新生成下载
	resp, body = env.get(t, student, fmt.Sprintf("/tests/safety-quiz/certificate/%d", passed.ID))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(body, "%PDF"))
}

func TestCertificateSurvivesTestRename(t *testing.T) {
	env := newTestEnv(t)
	student := env.client(t)
	resp, _ := env.submit(t, student, "Ana", "A", "B")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	passed := env.latestAttempt(t)
	assert.Equal(t, "safety-quiz", passed.TestSlug)

	entries, err := os.ReadDir(filepath.Join(env.dir, "certificates"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	stored, err := os.ReadFile(filepath.Join(env.dir, "certificates", entries[0].Name()))
	require.NoError(t, err)

	admin := env.loginAdmin(t)
	token := env.csrfToken(t, admin)
	resp, _ = env.post(t, admin, fmt.Sprintf("/controlpanel/tests/%d", env.test.ID), url.Values{
		"title": {"Workplace Safety"}, "pass_score": {"70"}, "_csrf": {token},
	})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp, body := env.get(t, student, fmt.Sprintf("/tests/workplace-safety/certificate/%d", passed.ID))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, string(stored), body)
}

func TestAdminManagesTests(t *testing.T) {
	env := newTestEnv(t)
	admin := env.loginAdmin(t)
	token := env.csrfToken(t, admin)

	resp, _ := env.post(t, admin, "/controlpanel/tests", url.Values{"title": {"Forklift Basics"}, "pass_score": {"80"}, "_csrf": {token}})
	require.Equal(t, http.StatusFound, resp.StatusCode)
	location := resp.Header.Get("Location")

	resp, body := env.get(t, admin, location)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Forklift Basics")

	resp, _ = env.post(t, admin, location+"/questions", url.Values{
		"qtype": {"TF"}, "prompt": {"Forks down when parked"}, "correct": {"A"}, "_csrf": {token},
	})
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, _ = env.post(t, admin, location+"/questions", url.Values{
		"qtype": {"MCQ"}, "prompt": {"Incomplete"}, "a": {"x"}, "correct": {"A"}, "_csrf": {token},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = env.get(t, env.client(t), "/tests/forklift-basics/take")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "Forks down when parked")

	resp, _ = env.post(t, admin, location+"/delete", url.Values{"_csrf": {token}})
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	resp, _ = env.get(t, env.client(t), "/tests/forklift-basics/take")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)
	c := env.client(t)
	resp, _ := env.submit(t, c, "Ana", "A", "B")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := env.get(t, c, "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "quiz_attempts_total")
	assert.Contains(t, body, "certificates_issued_total")
}
