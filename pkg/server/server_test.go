package server

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/supplyviz/pkg/config"
	"github.com/vanderheijden86/supplyviz/pkg/elements"
	"github.com/vanderheijden86/supplyviz/pkg/interact"
	"github.com/vanderheijden86/supplyviz/pkg/model"
	"github.com/vanderheijden86/supplyviz/pkg/testutil"
)

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(testutil.MustBuild(t, testutil.Chair()), Options{Config: config.DefaultConfig(), Title: "Chair"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return s, ts
}

func do(t *testing.T, method, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	return resp, body
}

func TestPage(t *testing.T) {
	_, ts := newTestServer(t)
	resp, body := do(t, http.MethodGet, ts.URL+"/")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/html") {
		t.Errorf("content type %q", resp.Header.Get("Content-Type"))
	}
	if !strings.Contains(string(body), "maker-Shop-chair") {
		t.Error("page should embed the elements")
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/nope")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown path status %d", resp.StatusCode)
	}
}

func TestClickFlow(t *testing.T) {
	s, ts := newTestServer(t)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/click/maker-Shop-chair")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("click status %d: %s", resp.StatusCode, body)
	}
	var cr clickResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		t.Fatal(err)
	}
	if cr.Result.Panel == nil || cr.Result.Panel.MakerID != "maker-Shop-chair" {
		t.Errorf("expected a panel for the maker, got %+v", cr.Result)
	}
	if len(cr.State.Hidden) == 0 || cr.State.Panel == nil {
		t.Errorf("state after click: %+v", cr.State)
	}
	if !s.Session().Highlighted("maker-Shop-chair") {
		t.Error("server session not updated")
	}

	_, body = do(t, http.MethodGet, ts.URL+"/api/elements?visible=1")
	var visible elements.Elements
	if err := json.Unmarshal(body, &visible); err != nil {
		t.Fatal(err)
	}
	if _, ok := visible.Node("chair"); ok {
		t.Error("toggled product should not be visible")
	}

	_, body = do(t, http.MethodPost, ts.URL+"/api/reset")
	var st interact.State
	if err := json.Unmarshal(body, &st); err != nil {
		t.Fatal(err)
	}
	if len(st.Hidden) != 0 || st.Panel != nil {
		t.Errorf("reset state: %+v", st)
	}
}

func TestClickErrors(t *testing.T) {
	_, ts := newTestServer(t)

	resp, body := do(t, http.MethodPost, ts.URL+"/api/click/ghost")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown id status %d", resp.StatusCode)
	}
	if resp.Header.Get("Content-Type") != "application/problem+json" || !strings.Contains(string(body), "ghost") {
		t.Errorf("problem body: %s", body)
	}

	resp, _ = do(t, http.MethodGet, ts.URL+"/api/click/chair")
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET click status %d", resp.StatusCode)
	}
}

func TestTooltip(t *testing.T) {
	_, ts := newTestServer(t)
	tests := []struct {
		id     string
		status int
		want   string
	}{
		{"maker-Shop-chair", http.StatusOK, `"tooltip":"Shop"`},
		{"supplier-Mill-leg", http.StatusOK, `"tooltip":"Mill"`},
		{"chair", http.StatusNoContent, ""},
		{"ghost", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		resp, body := do(t, http.MethodGet, ts.URL+"/api/tooltip/"+tt.id)
		if resp.StatusCode != tt.status {
			t.Errorf("%s: status %d, want %d", tt.id, resp.StatusCode, tt.status)
		}
		if tt.want != "" && !strings.Contains(string(body), tt.want) {
			t.Errorf("%s: body %s", tt.id, body)
		}
	}
}

func TestReloadKeepsState(t *testing.T) {
	s, ts := newTestServer(t)
	do(t, http.MethodPost, ts.URL+"/api/click/maker-Shop-chair")

	smaller := model.Made(model.Product{ID: "chair", Desc: "Chair"}, "Shop", "c1",
		model.Supplied(model.Product{ID: "leg", Desc: "Leg"}, "Mill"))
	if err := s.Reload(testutil.MustBuild(t, smaller)); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if _, open := s.Session().Panel(); !open {
		t.Error("panel should survive reload")
	}
	_, body := do(t, http.MethodGet, ts.URL+"/api/elements")
	if strings.Contains(string(body), "missing-seat") {
		t.Error("elements endpoint should serve the reloaded graph")
	}
}

func TestServeShutsDown(t *testing.T) {
	s, err := New(testutil.MustBuild(t, testutil.Single()), Options{Config: config.DefaultConfig()})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	addrCh := make(chan net.Addr, 1)
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, "127.0.0.1:0", func(a net.Addr) { addrCh <- a }) }()

	addr := <-addrCh
	resp, body := do(t, http.MethodGet, "http://"+addr.String()+"/healthz")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Fatalf("healthz: %d %s", resp.StatusCode, body)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(ShutdownTimeout + time.Second):
		t.Fatal("server did not shut down")
	}
}
