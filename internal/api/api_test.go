package api

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/projtree/internal/testutil"
	"github.com/starford/projtree/internal/treeservice"
)

var items = `
    <ClCompile Include="src\**\*.cpp" />
    <None Include="readme.md" />
    <ClCompile Include="` + strings.Repeat(`..\`, 11) + `deep.cpp" />`

// testEnv sets up a temp project, SQLite DB, service, and router for testing.
// A non-empty authToken enables token mode.
func testEnv(t *testing.T, authToken string) (*treeservice.Service, http.Handler) {
	t.Helper()
	svc := newService(t)
	router := NewRouter(svc, authToken != "", authToken, nil)
	return svc, router
}

func newService(t *testing.T) *treeservice.Service {
	t.Helper()
	dir := testutil.TestProject(t, map[string]string{
		"app.vcxproj":         testutil.Vcxproj(items),
		"src/main.cpp":        "int main() {}",
		"src/core/engine.cpp": "void run() {}",
		"readme.md":           "# app",
	})
	svc, err := treeservice.New(filepath.Join(dir, "app.vcxproj"),
		treeservice.WithIndex(testutil.TestDB(t)),
		treeservice.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
	)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return svc
}

func loaded(t *testing.T, svc *treeservice.Service) {
	t.Helper()
	if _, _, err := svc.Reload(context.Background(), false); err != nil {
		t.Fatalf("Reload: %v", err)
	}
}

func do(t *testing.T, router http.Handler, method, target string, v any) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if v != nil && w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
			t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
	return w
}

func TestNotLoaded(t *testing.T) {
	_, router := testEnv(t, "")
	for _, target := range []string{"/entries", "/diagnostics", "/search?q=x", "/included?path=a.cpp"} {
		if w := do(t, router, http.MethodGet, target, nil); w.Code != http.StatusServiceUnavailable {
			t.Errorf("%s = %d, want 503", target, w.Code)
		}
	}
}

func TestReloadEndpoint(t *testing.T) {
	_, router := testEnv(t, "")

	var first ReloadResponse
	w := do(t, router, http.MethodPost, "/reload", &first)
	if w.Code != http.StatusOK {
		t.Fatalf("reload = %d, body = %s", w.Code, w.Body.String())
	}
	if !first.Changed || first.Entries != 5 || first.Diagnostics != 1 {
		t.Errorf("first reload = %+v", first)
	}

	var second ReloadResponse
	do(t, router, http.MethodPost, "/reload", &second)
	if second.Changed || second.ReloadID != first.ReloadID {
		t.Errorf("unchanged reload = %+v", second)
	}

	var forced ReloadResponse
	do(t, router, http.MethodPost, "/reload?force=true", &forced)
	if !forced.Changed || forced.ReloadID == first.ReloadID {
		t.Errorf("forced reload = %+v", forced)
	}
}

func TestListEntries(t *testing.T) {
	svc, router := testEnv(t, "")
	loaded(t, svc)

	var all EntryListResponse
	if w := do(t, router, http.MethodGet, "/entries", &all); w.Code != http.StatusOK {
		t.Fatalf("entries = %d", w.Code)
	}
	if len(all.Entries) != 5 || all.Parent != nil {
		t.Errorf("all entries = %+v", all)
	}

	var root EntryListResponse
	do(t, router, http.MethodGet, "/entries?parent=", &root)
	if len(root.Entries) != 2 || root.Entries[0].RelativePath != "src" || root.Entries[1].RelativePath != "readme.md" {
		t.Errorf("root = %+v", root.Entries)
	}

	var core EntryListResponse
	do(t, router, http.MethodGet, "/entries?parent=src/core", &core)
	if len(core.Entries) != 1 || core.Entries[0].Name != "engine.cpp" || core.Entries[0].ItemType != "ClCompile" {
		t.Errorf("src/core = %+v", core.Entries)
	}
}

func TestListEntries_UnknownParent(t *testing.T) {
	svc, router := testEnv(t, "")
	loaded(t, svc)
	if w := do(t, router, http.MethodGet, "/entries?parent=nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown parent = %d, want 404", w.Code)
	}
}

func TestSearchEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")
	loaded(t, svc)

	var resp SearchResponse
	if w := do(t, router, http.MethodGet, "/search?q=engine", &resp); w.Code != http.StatusOK {
		t.Fatalf("search = %d, body = %s", w.Code, w.Body.String())
	}
	if len(resp.Results) != 1 || resp.Results[0].RelativePath != "src/core/engine.cpp" {
		t.Errorf("search results = %+v", resp.Results)
	}

	do(t, router, http.MethodGet, "/search?q=zzz", &resp)
	if resp.Results == nil || len(resp.Results) != 0 {
		t.Errorf("empty search = %+v", resp.Results)
	}
}

func TestSearchMissingQuery(t *testing.T) {
	_, router := testEnv(t, "")
	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("search no query = %d, want 400", w.Code)
	}
}

func TestIncludedEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")
	loaded(t, svc)

	var resp IncludedResponse
	do(t, router, http.MethodGet, "/included?path=src/new/x.cpp", &resp)
	if !resp.Included || len(resp.ItemTypes) != 1 || resp.ItemTypes[0] != "ClCompile" {
		t.Errorf("src/new/x.cpp = %+v", resp)
	}

	resp = IncludedResponse{}
	do(t, router, http.MethodGet, "/included?path=docs/x.txt", &resp)
	if resp.Included || resp.ItemTypes == nil {
		t.Errorf("docs/x.txt = %+v", resp)
	}

	if w := do(t, router, http.MethodGet, "/included", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing path = %d, want 400", w.Code)
	}
}

func TestDiagnosticsEndpoint(t *testing.T) {
	svc, router := testEnv(t, "")
	loaded(t, svc)

	var resp DiagnosticsResponse
	do(t, router, http.MethodGet, "/diagnostics", &resp)
	if len(resp.Diagnostics) != 1 || resp.Diagnostics[0].Kind != "pattern_traversal_overflow" {
		t.Errorf("diagnostics = %+v", resp)
	}
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodPost, "/reload", nil)
	req.Header.Set("Authorization", "Bearer secret123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("authed reload = %d, want 200", w.Code)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	_, router := testEnv(t, "secret123")
	if w := do(t, router, http.MethodGet, "/entries", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("unauthed = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_WrongToken(t *testing.T) {
	_, router := testEnv(t, "secret123")

	req := httptest.NewRequest(http.MethodGet, "/entries", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", w.Code)
	}
}

func TestAuthMiddleware_Disabled(t *testing.T) {
	svc, router := testEnv(t, "")
	loaded(t, svc)
	if w := do(t, router, http.MethodGet, "/entries", nil); w.Code != http.StatusOK {
		t.Errorf("no auth = %d, want 200", w.Code)
	}
}

func TestReload_InvalidProject(t *testing.T) {
	svc, router := testEnv(t, "")
	testutil.WriteFile(t, svc.BasePath(), "app.vcxproj", "<Project>")
	if w := do(t, router, http.MethodPost, "/reload", nil); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid project = %d, want 422", w.Code)
	}
}

// SSE endpoint auth tests.

func TestSSEEvents_AuthProtected(t *testing.T) {
	router := testEnvWithSSE(t, true, "secret")

	// No token → 401.
	req := httptest.NewRequest(http.MethodGet, "/events", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("SSE no auth = %d, want 401", w.Code)
	}
}

func TestSSEEvents_AuthDisabled(t *testing.T) {
	router := testEnvWithSSE(t, false, "")

	// The handler blocks until the request context ends.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE should not require auth when disabled")
	}
}

func TestSSEEvents_ValidToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer tok")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with valid token should not 401")
	}
}

// testEnvWithSSE creates a router with a dummy SSE handler to test auth on /events.
func testEnvWithSSE(t *testing.T, authEnabled bool, token string) http.Handler {
	t.Helper()
	svc := newService(t)

	// Minimal SSE handler stub: writes headers and blocks until context done.
	sseHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
		<-r.Context().Done()
	})

	return NewRouter(svc, authEnabled, token, sseHandler)
}

func TestSSEEvents_QueryToken(t *testing.T) {
	router := testEnvWithSSE(t, true, "tok")

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req := httptest.NewRequest(http.MethodGet, "/events?access_token=tok", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code == http.StatusUnauthorized {
		t.Error("SSE with access_token should not 401")
	}
}

func TestQueryTokenRejectedForPost(t *testing.T) {
	_, router := testEnv(t, "tok")
	if w := do(t, router, http.MethodPost, "/reload?access_token=tok", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("POST with query token = %d, want 401", w.Code)
	}
}

func TestBadQueryParams(t *testing.T) {
	svc, router := testEnv(t, "")
	loaded(t, svc)
	for _, tc := range []struct{ method, target string }{
		{http.MethodGet, "/search?q=x&limit=abc"},
		{http.MethodGet, "/search?q=x&limit=-1"},
		{http.MethodPost, "/reload?force=maybe"},
	} {
		if w := do(t, router, tc.method, tc.target, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s %s = %d, want 400", tc.method, tc.target, w.Code)
		}
	}
}
