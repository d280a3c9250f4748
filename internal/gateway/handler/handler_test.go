package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KingRain/Parsec/internal/describe"
	"github.com/KingRain/Parsec/internal/diagram"
	"github.com/KingRain/Parsec/internal/enrich"
	"github.com/KingRain/Parsec/internal/gateway/handler"
	"github.com/KingRain/Parsec/internal/gateway/middleware"
	"github.com/KingRain/Parsec/internal/gateway/server"
	"github.com/KingRain/Parsec/internal/github"
	"github.com/KingRain/Parsec/internal/llm"
	"github.com/KingRain/Parsec/internal/mermaid"
)

type fakeGitHub struct {
	contents    map[string]*github.Contents
	manifest    []byte
	manifestErr error
	files       []github.FileItem
	repos       []github.Repo
	reposErr    error
	exchanges   int
	exchange    func(code string) (string, error)
}

func (f *fakeGitHub) Contents(_ context.Context, owner, repo, path string) (*github.Contents, error) {
	if err := github.ValidateRepo(owner, repo); err != nil {
		return nil, err
	}
	if path == "big.bin" {
		return nil, github.ErrFileTooLarge
	}
	if c, ok := f.contents[path]; ok {
		return c, nil
	}
	return nil, &github.StatusError{Path: path, Code: http.StatusNotFound, Status: "404 Not Found"}
}

func (f *fakeGitHub) FetchManifest(context.Context, string, string) ([]byte, error) {
	return f.manifest, f.manifestErr
}

func (f *fakeGitHub) ListFiles(context.Context, string, string, int) ([]github.FileItem, error) {
	return f.files, nil
}

func (f *fakeGitHub) ListRepos(ctx context.Context) ([]github.Repo, error) {
	if github.TokenFrom(ctx) == "" {
		return nil, github.ErrUnauthorized
	}
	return f.repos, f.reposErr
}

func (f *fakeGitHub) User(ctx context.Context) (*github.User, error) {
	if github.TokenFrom(ctx) == "" {
		return nil, github.ErrUnauthorized
	}
	return &github.User{Login: "octocat"}, nil
}

func (f *fakeGitHub) Languages(context.Context, string, string) ([]github.LanguageShare, error) {
	return github.Shares(map[string]int64{"Go": 3, "Shell": 1}), nil
}

func (f *fakeGitHub) AuthorizeURL(string) string {
	return "https://github.example/login/oauth/authorize?client_id=id"
}

func (f *fakeGitHub) ExchangeCode(_ context.Context, code string) (string, error) {
	f.exchanges++
	return f.exchange(code)
}

type env struct {
	gh     *fakeGitHub
	model  *llm.FakeClient
	router http.Handler
}

func newEnv(t *testing.T) *env {
	t.Helper()
	logger, _ := test.NewNullLogger()
	gh := &fakeGitHub{
		contents: map[string]*github.Contents{
			"": {Items: []github.FileItem{{Name: "src", Path: "src", Type: "dir"}}},
			"README.md": {File: &github.File{Name: "README.md", Path: "README.md", Size: 6, Content: "# demo"}},
		},
		manifest: []byte(`{"dependencies":{"react":"^18.2.0","left-pad":"1.3.0"},"devDependencies":{"eslint":"^9"}}`),
		exchange: func(code string) (string, error) { return "tok-" + code, nil },
	}
	model := llm.NewFakeClient("```mermaid\ngraph TD\nA[Web] --> B[API]\n```")
	h := handler.New(handler.Options{
		GitHub:    gh,
		Pipeline:  enrich.New(enrich.Options{Describer: describe.New(nil, logger), Logger: logger}),
		Describer: describe.New(nil, logger),
		Diagrams:  diagram.New(model, logger),
		Logger:    logger,
	})
	return &env{gh: gh, model: model, router: server.NewRouter(h, logger)}
}

func (e *env) do(method, target string, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func session(tok string) *http.Cookie {
	return &http.Cookie{Name: middleware.SessionCookie, Value: tok}
}

func TestHealth(t *testing.T) {
	rec := newEnv(t).do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestContents(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/api/contents?owner=acme&repo=site", "")
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[[]github.FileItem](t, rec)
	require.Len(t, items, 1)
	assert.Equal(t, "src", items[0].Path)

	rec = e.do(http.MethodGet, "/api/contents?owner=acme&repo=site&path=/README.md", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"path":"README.md","content":"# demo","size":6}`, rec.Body.String())

	rec = e.do(http.MethodGet, "/api/contents?owner=acme&repo=site&path=big.bin", "")
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, "File is too large to display (>1MB)", decode[map[string]string](t, rec)["error"])

	rec = e.do(http.MethodGet, "/api/contents?owner=acme&repo=site&path=nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(http.MethodGet, "/api/contents?repo=site", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLanguages(t *testing.T) {
	e := newEnv(t)
	rec := e.do(http.MethodGet, "/api/languages?owner=acme&repo=site", "")
	require.Equal(t, http.StatusOK, rec.Code)
	langs := decode[[]github.LanguageShare](t, rec)
	require.Len(t, langs, 2)
	assert.Equal(t, 75.0, langs[0].Percentage)

	rec = e.do(http.MethodGet, "/api/languages?owner=acme", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Missing owner or repo parameter", decode[map[string]string](t, rec)["error"])
}

func TestRepos(t *testing.T) {
	e := newEnv(t)
	e.gh.repos = []github.Repo{{Name: "site", FullName: "acme/site"}}

	rec := e.do(http.MethodGet, "/api/repos", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?error=unauthorized", rec.Header().Get("Location"))

	rec = e.do(http.MethodGet, "/api/repos", "", session("good"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "acme/site", decode[[]github.Repo](t, rec)[0].FullName)

	e.gh.reposErr = &github.StatusError{Path: "/user/repos", Code: http.StatusUnauthorized, Status: "401 Unauthorized"}
	rec = e.do(http.MethodGet, "/api/repos", "", session("stale"))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/?error=token_expired", rec.Header().Get("Location"))
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Equal(t, middleware.SessionCookie, cleared[0].Name)
	assert.Less(t, cleared[0].MaxAge, 0)

	e.gh.reposErr = errors.New("boom")
	rec = e.do(http.MethodGet, "/api/repos", "", session("good"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to fetch repositories", decode[map[string]string](t, rec)["error"])
}

func TestUser(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/api/user", "").Code)

	rec := e.do(http.MethodGet, "/api/user", "", session("good"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "octocat", decode[github.User](t, rec).Login)
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/api/auth/login", "")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/login/oauth/authorize")

	rec = e.do(http.MethodGet, "/api/auth/callback", "")
	assert.Equal(t, "/?error=no_code", rec.Header().Get("Location"))

	rec = e.do(http.MethodGet, "/api/auth/callback?code=abc", "")
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, "tok-abc", c.Value)
	assert.True(t, c.HttpOnly)
	assert.False(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, 7*24*60*60, c.MaxAge)

	e.gh.exchange = func(string) (string, error) {
		return "", &github.OAuthError{Code: "bad_verification_code", Description: "The code passed is incorrect or expired."}
	}
	rec = e.do(http.MethodGet, "/api/auth/callback?code=old", "")
	loc, err := url.Parse(rec.Header().Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "The code passed is incorrect or expired.", loc.Query().Get("error"))

	e.gh.exchange = func(string) (string, error) { return "", github.ErrNoAccessToken }
	rec = e.do(http.MethodGet, "/api/auth/callback?code=x", "")
	assert.Equal(t, "/?error=no_token", rec.Header().Get("Location"))

	e.gh.exchange = func(string) (string, error) { return "", errors.New("network down") }
	rec = e.do(http.MethodGet, "/api/auth/callback?code=x", "")
	assert.Equal(t, "/?error=auth_failed", rec.Header().Get("Location"))

	before := e.gh.exchanges
	rec = e.do(http.MethodGet, "/api/auth/callback?code=x", "", session("already"))
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, before, e.gh.exchanges)

	rec = e.do(http.MethodPost, "/api/auth/logout", "", session("already"))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 1)
	assert.Less(t, rec.Result().Cookies()[0].MaxAge, 0)
}

type dependenciesResponse struct {
	Stage   enrich.Stage `json:"stage"`
	Records []struct {
		Name           string `json:"name"`
		Version        string `json:"version"`
		Type           string `json:"type"`
		LogoURL        string `json:"logoUrl"`
		LLMDescription string `json:"llmDescription"`
	} `json:"records"`
}

func TestDependencies(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodGet, "/api/dependencies?owner=acme&repo=site", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[dependenciesResponse](t, rec)
	assert.Equal(t, enrich.StageLogos, body.Stage)
	require.Len(t, body.Records, 3)
	assert.Equal(t, "react", body.Records[0].Name)
	assert.Equal(t, "^18.2.0", body.Records[0].Version)
	assert.Equal(t, describe.Static("react"), body.Records[0].LLMDescription)
	assert.Equal(t, "devDependencies", body.Records[2].Type)
	assert.Equal(t, enrich.Placeholder, body.Records[2].LogoURL)

	e.gh.manifestErr = github.ErrManifestNotFound
	rec = e.do(http.MethodGet, "/api/dependencies?owner=acme&repo=site", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	e.gh.manifestErr = errors.New("rate limited")
	rec = e.do(http.MethodGet, "/api/dependencies?owner=acme&repo=site", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Failed to load dependencies", decode[map[string]string](t, rec)["error"])
}

type streamFrame struct {
	Type       string       `json:"type"`
	AnalysisID string       `json:"analysisId"`
	Stage      enrich.Stage `json:"stage"`
	Records    []any        `json:"records"`
	Message    string       `json:"message"`
}

func dialStream(t *testing.T, e *env, query string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(e.router)
	t.Cleanup(srv.Close)
	u := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/dependencies/stream?" + query
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func TestDependenciesStream(t *testing.T) {
	conn := dialStream(t, newEnv(t), "owner=acme&repo=site")

	var frames []streamFrame
	for {
		var f streamFrame
		require.NoError(t, conn.ReadJSON(&f))
		frames = append(frames, f)
		if f.Type == "done" {
			break
		}
	}

	require.Len(t, frames, 5)
	stages := []enrich.Stage{enrich.StageExtracted, enrich.StageMetadata, enrich.StageDescriptions, enrich.StageLogos}
	for i, st := range stages {
		assert.Equal(t, "snapshot", frames[i].Type)
		assert.Equal(t, st, frames[i].Stage)
		assert.Len(t, frames[i].Records, 3)
	}
	id := frames[0].AnalysisID
	assert.NotEmpty(t, id)
	for _, f := range frames {
		assert.Equal(t, id, f.AnalysisID)
	}

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err)
}

func TestDependenciesStreamError(t *testing.T) {
	e := newEnv(t)
	e.gh.manifestErr = github.ErrManifestNotFound
	conn := dialStream(t, e, "owner=acme&repo=site")

	var f streamFrame
	require.NoError(t, conn.ReadJSON(&f))
	assert.Equal(t, "error", f.Type)
	assert.Equal(t, "No package.json found in this repository", f.Message)
}

func TestDependenciesStreamBadRequest(t *testing.T) {
	rec := newEnv(t).do(http.MethodGet, "/api/dependencies/stream?owner=acme", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPackageDescriptions(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/api/package-descriptions", `{"packages":"react, left-pad"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]map[string]string](t, rec)
	assert.Equal(t, describe.Static("react"), body["descriptions"]["react"])
	assert.Equal(t, "Package that provides functionality related to left-pad.", body["descriptions"]["left-pad"])

	rec = e.do(http.MethodPost, "/api/package-descriptions", `{"packages":" , "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(http.MethodPost, "/api/package-descriptions", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

type diagramResponse struct {
	Diagram  string `json:"diagram"`
	Type     string `json:"type"`
	Fallback bool   `json:"fallback"`
	Error    string `json:"error"`
}

func TestGenerateDiagramFile(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/api/generate-diagram", `{"fileContent":"const x = 1","fileName":"x.js","fileType":"js"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[diagramResponse](t, rec)
	assert.True(t, strings.HasPrefix(body.Diagram, "graph TD\n  A[\"Web\"] --> B[\"API\"]\n"), body.Diagram)
	assert.Equal(t, "flowchart", body.Type)
	assert.False(t, body.Fallback)
	assert.Contains(t, e.model.Prompts()[0], "File name: x.js")

	rec = e.do(http.MethodPost, "/api/generate-diagram", `{"fileName":"x.js"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "File content is required", decode[diagramResponse](t, rec).Error)

	e.model.Err = errors.New("quota")
	rec = e.do(http.MethodPost, "/api/generate-diagram", `{"fileContent":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[diagramResponse](t, rec)
	assert.True(t, body.Fallback)
	assert.Equal(t, mermaid.ErrorDiagram("Failed to generate diagram"), body.Diagram)
}

func TestGenerateDiagramArchitecture(t *testing.T) {
	e := newEnv(t)

	rec := e.do(http.MethodPost, "/api/generate-diagram", `{"filePaths":["src/app.ts","src/db.ts"],"detailLevel":"detailed"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[diagramResponse](t, rec).Fallback)
	assert.Contains(t, e.model.Prompts()[0], "src/app.ts\nsrc/db.ts")

	rec = e.do(http.MethodPost, "/api/generate-diagram", `{"filePaths":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid input: expected array of file paths", decode[diagramResponse](t, rec).Error)

	e.model.Err = errors.New("quota")
	rec = e.do(http.MethodPost, "/api/generate-diagram", `{"filePaths":["a.go"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[diagramResponse](t, rec)
	assert.True(t, body.Fallback)
	assert.Equal(t, mermaid.FallbackDiagram(), body.Diagram)
	assert.Equal(t, "flowchart", body.Type)
}

func TestArchitectureEndpoint(t *testing.T) {
	e := newEnv(t)
	e.gh.files = []github.FileItem{{Path: "cmd/main.go"}, {Path: "internal/store/db.go"}}

	rec := e.do(http.MethodPost, "/api/architecture?owner=acme&repo=site&detail=detailed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, e.model.Prompts()[0], "cmd/main.go\ninternal/store/db.go")
	assert.Contains(t, e.model.Prompts()[0], "A --> B & C")

	rec = e.do(http.MethodPost, "/api/architecture?owner=acme", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCORSPreflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/api/generate-diagram", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rec := httptest.NewRecorder()
	newEnv(t).router.ServeHTTP(rec, req)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}
