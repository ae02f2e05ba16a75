package api

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/duke-git/lancet/v2/slice"
	"github.com/krau/tgkw/engine"
	"github.com/krau/tgkw/service"
	"github.com/krau/tgkw/types"
	"github.com/krau/tgkw/userclient"
)

type fakeSearcher struct {
	search func(ctx context.Context, req types.SearchRequest) ([]types.SearchResult, error)

	mu    sync.Mutex
	calls []types.SearchRequest
}

func (f *fakeSearcher) Search(ctx context.Context, req types.SearchRequest) ([]types.SearchResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	f.mu.Unlock()
	if f.search == nil {
		return nil, nil
	}
	return f.search(ctx, req)
}

func (f *fakeSearcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func saleResults(_ context.Context, _ types.SearchRequest) ([]types.SearchResult, error) {
	return []types.SearchResult{
		{MessageID: 10, Date: "2024-01-01 00:00:10", Sender: "Test Channel", Content: "Big SALE today"},
		{MessageID: 7, Date: "2024-01-01 00:00:07", Sender: "Test Channel", Content: "wholesale prices"},
		{MessageID: 4, Date: "2024-01-01 00:00:04", Sender: "Test Channel", Content: "Sale ends soon"},
	}, nil
}

func newTestServer(t *testing.T, searcher *fakeSearcher, apiKey string) (*Server, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "downloads")
	s := New(context.Background(), Options{
		Searcher:     searcher,
		Builder:      service.NewReportBuilder(dir, "telegram_search_"),
		Store:        service.NewReportStore(dir),
		DefaultLimit: 1000,
		MaxLimit:     10000,
		ApiKey:       apiKey,
	})
	return s, dir
}

func doJSON(t *testing.T, s *Server, body string, headers map[string]string) (*http.Response, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/search", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return do(t, s, req)
}

func do(t *testing.T, s *Server, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp, data
}

func detail(t *testing.T, body []byte) string {
	t.Helper()
	var e ErrorResponse
	if err := json.Unmarshal(body, &e); err != nil {
		t.Fatalf("error body %q is not JSON: %v", body, err)
	}
	return e.Detail
}

func TestSearchRejectsInvalidInput(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{name: "not a link", body: `{"telegram_link":"not-a-link","keyword":"x","limit":10}`, wantDetail: "Invalid Telegram link format"},
		{name: "missing keyword", body: `{"telegram_link":"t.me/testchan"}`, wantDetail: "Validation failed"},
		{name: "missing link", body: `{"keyword":"sale"}`, wantDetail: "Validation failed"},
		{name: "negative limit", body: `{"telegram_link":"t.me/testchan","keyword":"sale","limit":-1}`, wantDetail: "Validation failed"},
		{name: "limit above max", body: `{"telegram_link":"t.me/testchan","keyword":"sale","limit":10001}`, wantDetail: "limit must be between 1 and 10000"},
		{name: "malformed json", body: `{"telegram_link":`, wantDetail: "Invalid request body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{search: saleResults}
			s, _ := newTestServer(t, searcher, "")
			resp, body := doJSON(t, s, tt.body, nil)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", resp.StatusCode, body)
			}
			if got := detail(t, body); !strings.HasPrefix(got, tt.wantDetail) {
				t.Errorf("detail = %q, want prefix %q", got, tt.wantDetail)
			}
			if n := searcher.callCount(); n != 0 {
				t.Errorf("searcher called %d times before input was valid", n)
			}
		})
	}
}

func TestSearchNoResults(t *testing.T) {
	searcher := &fakeSearcher{}
	s, dir := newTestServer(t, searcher, "")
	resp, body := doJSON(t, s, `{"telegram_link":"https://t.me/testchan","keyword":"zzz","limit":10}`, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	if got := detail(t, body); got != "No messages found with the specified keyword" {
		t.Errorf("detail = %q", got)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("%d files written for an empty search", len(entries))
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "telegram failure",
			err:        fmt.Errorf("%w: %w", engine.ErrSearchFailed, fmt.Errorf("CHANNEL_INVALID")),
			wantStatus: http.StatusBadRequest,
			wantDetail: "Error accessing Telegram: CHANNEL_INVALID",
		},
		{
			name:       "session unavailable",
			err:        fmt.Errorf("%w: %w", userclient.ErrSessionUnavailable, fmt.Errorf("dial failed")),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "telegram session unavailable: dial failed",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			searcher := &fakeSearcher{search: func(context.Context, types.SearchRequest) ([]types.SearchResult, error) {
				return nil, tt.err
			}}
			s, _ := newTestServer(t, searcher, "")
			resp, body := doJSON(t, s, `{"telegram_link":"@testchan","keyword":"sale"}`, nil)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if got := detail(t, body); got != tt.wantDetail {
				t.Errorf("detail = %q, want %q", got, tt.wantDetail)
			}
		})
	}
}

func TestSearchAndDownload(t *testing.T) {
	searcher := &fakeSearcher{search: saleResults}
	s, _ := newTestServer(t, searcher, "")

	resp, body := doJSON(t, s, `{"telegram_link":"https://t.me/testchan","keyword":"sale","limit":10}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, body)
	}
	var out SearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatal(err)
	}
	if !out.Success || out.MessageCount != 3 || out.Channel != "testchan" || out.Keyword != "sale" {
		t.Fatalf("unexpected response %+v", out)
	}
	if got := searcher.calls[0]; got.Channel != "testchan" || got.Keyword != "sale" || got.Limit != 10 {
		t.Errorf("searcher got %+v", got)
	}

	resp, data := do(t, s, httptest.NewRequest(http.MethodGet, "/download/"+out.Filename, nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("download status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != service.DocxMediaType {
		t.Errorf("Content-Type = %q", ct)
	}
	if cd := resp.Header.Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment") || !strings.Contains(cd, out.Filename) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatal("downloaded body is not a zip container")
	}

	paras := reportParagraphs(t, data)
	for _, want := range []string{
		"Channel: " + out.Channel,
		`Keyword: "` + out.Keyword + `"`,
		fmt.Sprintf("Results found: %d", out.MessageCount),
	} {
		if !slice.Contain(paras, want) {
			t.Errorf("downloaded report lacks %q", want)
		}
	}
	blocks := 0
	for _, p := range paras {
		if strings.HasPrefix(p, "Message ") && !strings.HasPrefix(p, "Message ID:") {
			blocks++
		}
	}
	if blocks != out.MessageCount {
		t.Errorf("report has %d message blocks, message_count = %d", blocks, out.MessageCount)
	}
	for _, r := range mustResults(t) {
		if !slice.Contain(paras, r.Content) || !slice.Contain(paras, fmt.Sprintf("Message ID: %d", r.MessageID)) {
			t.Errorf("report lacks message %d", r.MessageID)
		}
	}
}

func mustResults(t *testing.T) []types.SearchResult {
	t.Helper()
	results, err := saleResults(context.Background(), types.SearchRequest{})
	if err != nil {
		t.Fatal(err)
	}
	return results
}

// reportParagraphs returns the paragraph texts of a .docx held in memory.
func reportParagraphs(t *testing.T, data []byte) []string {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("open docx: %v", err)
	}
	f, err := zr.Open("word/document.xml")
	if err != nil {
		t.Fatalf("open document.xml: %v", err)
	}
	defer f.Close()

	var (
		paras  []string
		cur    strings.Builder
		inText bool
	)
	dec := xml.NewDecoder(f)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return paras
		}
		if err != nil {
			t.Fatalf("parse document.xml: %v", err)
		}
		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "p":
				cur.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch el.Name.Local {
			case "p":
				paras = append(paras, cur.String())
			case "t":
				inText = false
			}
		case xml.CharData:
			if inText {
				cur.Write(el)
			}
		}
	}
}

func TestSearchDefaultLimitAndDistinctFiles(t *testing.T) {
	searcher := &fakeSearcher{search: saleResults}
	s, dir := newTestServer(t, searcher, "")

	names := map[string]bool{}
	for i := 0; i < 2; i++ {
		resp, body := doJSON(t, s, `{"telegram_link":"@testchan","keyword":"sale"}`, nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, body %s", resp.StatusCode, body)
		}
		var out SearchResponse
		if err := json.Unmarshal(body, &out); err != nil {
			t.Fatal(err)
		}
		if out.MessageCount != 3 {
			t.Errorf("message_count = %d", out.MessageCount)
		}
		names[out.Filename] = true
	}
	if len(names) != 2 {
		t.Errorf("repeated searches reused a file name: %v", names)
	}
	for _, call := range searcher.calls {
		if call.Limit != 1000 {
			t.Errorf("limit = %d, want default 1000", call.Limit)
		}
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 2 {
		t.Errorf("%d files in output dir, want 2", len(entries))
	}
}

func TestDownloadNotFound(t *testing.T) {
	s, dir := newTestServer(t, &fakeSearcher{}, "")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(filepath.Dir(dir), "secret.docx"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{
		"/download/nonexistent.docx",
		"/download/..%2Fsecret.docx",
	} {
		resp, body := do(t, s, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, resp.StatusCode)
			continue
		}
		if got := detail(t, body); got != "File not found" {
			t.Errorf("GET %s detail = %q", path, got)
		}
	}
}

func TestApiKey(t *testing.T) {
	searcher := &fakeSearcher{search: saleResults}
	s, _ := newTestServer(t, searcher, "s3cret")
	body := `{"telegram_link":"@testchan","keyword":"sale"}`

	tests := []struct {
		name       string
		headers    map[string]string
		wantStatus int
	}{
		{name: "no key", wantStatus: http.StatusUnauthorized},
		{name: "wrong key", headers: map[string]string{"Authorization": "Bearer nope"}, wantStatus: http.StatusUnauthorized},
		{name: "wrong scheme", headers: map[string]string{"Authorization": "s3cret"}, wantStatus: http.StatusUnauthorized},
		{name: "valid key", headers: map[string]string{"Authorization": "Bearer s3cret"}, wantStatus: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := doJSON(t, s, body, tt.headers)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", resp.StatusCode, tt.wantStatus, data)
			}
			if tt.wantStatus == http.StatusUnauthorized && detail(t, data) == "" {
				t.Error("empty detail on 401")
			}
		})
	}

	resp, _ := do(t, s, httptest.NewRequest(http.MethodGet, "/download/nonexistent.docx", nil))
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("download without key status = %d, want 401", resp.StatusCode)
	}
	resp, _ = do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.StatusCode != http.StatusOK {
		t.Errorf("index without key status = %d, want 200", resp.StatusCode)
	}
}

func TestIndexPage(t *testing.T) {
	s, _ := newTestServer(t, &fakeSearcher{}, "")
	resp, body := do(t, s, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
	for _, want := range []string{"Telegram Keyword Search", `id="telegram_link"`, `max="10000"`, "/search"} {
		if !strings.Contains(string(body), want) {
			t.Errorf("page lacks %q", want)
		}
	}
}
