package files_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"s3drive-backend/internal/bootstrap"
	"s3drive-backend/internal/shared/config"
)

type fileJSON struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	ContentType  string    `json:"contentType"`
	Size         int64     `json:"size"`
	CreatedAt    time.Time `json:"createdAt"`
	AccessURL    string    `json:"accessUrl"`
	Kind         string    `json:"kind"`
}

type errorJSON struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestApp(t *testing.T, maxUpload int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		Env:             "dev",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		ObjectStoreType: config.StoreLocal,
		LocalStoreDir:   t.TempDir(),
		LocalSigningKey: "test-signing-key",
		MetadataStore:   config.MetadataMemory,
		PresignTTL:      time.Hour,
		MaxUploadBytes:  maxUpload,
	}

	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app.Router
}

func multipartBody(t *testing.T, field, name, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+name+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := writer.CreatePart(h)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func doUpload(t *testing.T, router *gin.Engine, name, contentType string, content []byte) *httptest.ResponseRecorder {
	t.Helper()
	body, ct := multipartBody(t, "file", name, contentType, content)
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func listFiles(t *testing.T, router *gin.Engine) []fileJSON {
	t.Helper()
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/files", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	var out []fileJSON
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	return out
}

func TestUploadReturnsCreatedRecord(t *testing.T) {
	router := newTestApp(t, 0)

	resp := doUpload(t, router, "a.txt", "text/plain", []byte("hello"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var raw map[string]any
	if err := json.Unmarshal(resp.Body.Bytes(), &raw); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, key := range []string{"id", "originalName", "contentType", "size", "createdAt"} {
		if _, ok := raw[key]; !ok {
			t.Fatalf("response missing %q: %v", key, raw)
		}
	}
	for _, key := range []string{"storageKey", "StorageKey", "accessUrl"} {
		if _, ok := raw[key]; ok {
			t.Fatalf("response must not carry %q: %v", key, raw)
		}
	}
	if raw["originalName"] != "a.txt" || raw["contentType"] != "text/plain" || raw["size"] != float64(5) {
		t.Fatalf("unexpected record: %v", raw)
	}
}

func TestUploadLongNameIsStoredAndServed(t *testing.T) {
	router := newTestApp(t, 0)
	name := strings.Repeat("a", 240) + ".txt"

	resp := doUpload(t, router, name, "text/plain", []byte("long name"))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.Code, resp.Body.String())
	}

	files := listFiles(t, router)
	if len(files) != 1 || files[0].OriginalName != name {
		t.Fatalf("unexpected listing %+v", files)
	}

	blobResp := httptest.NewRecorder()
	router.ServeHTTP(blobResp, httptest.NewRequest(http.MethodGet, files[0].AccessURL, nil))
	if blobResp.Code != http.StatusOK {
		t.Fatalf("fetch blob: expected 200, got %d", blobResp.Code)
	}
	if body, _ := io.ReadAll(blobResp.Body); string(body) != "long name" {
		t.Fatalf("unexpected blob body %q", body)
	}
}

func TestUploadWithoutFileIs400(t *testing.T) {
	router := newTestApp(t, 0)

	body, ct := multipartBody(t, "other", "a.txt", "text/plain", []byte("x"))
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", ct)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	var payload errorJSON
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != "validation_error" || payload.Error.Message != "No file uploaded" {
		t.Fatalf("unexpected error body %+v", payload)
	}

	emptyResp := doUpload(t, router, "empty.txt", "text/plain", nil)
	if emptyResp.Code != http.StatusBadRequest {
		t.Fatalf("empty file: expected 400, got %d", emptyResp.Code)
	}

	if files := listFiles(t, router); len(files) != 0 {
		t.Fatalf("expected no records, got %d", len(files))
	}
}

func TestUploadTooLargeIs413(t *testing.T) {
	router := newTestApp(t, 1024)

	resp := doUpload(t, router, "big.bin", "application/octet-stream", bytes.Repeat([]byte("x"), 4096))
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d: %s", resp.Code, resp.Body.String())
	}
	if files := listFiles(t, router); len(files) != 0 {
		t.Fatalf("expected no records, got %d", len(files))
	}
}

func TestListNewestFirstWithWorkingLinks(t *testing.T) {
	router := newTestApp(t, 0)

	if resp := doUpload(t, router, "A.txt", "text/plain", []byte("first")); resp.Code != http.StatusCreated {
		t.Fatalf("upload A: %d", resp.Code)
	}
	if resp := doUpload(t, router, "B.png", "image/png", []byte("second")); resp.Code != http.StatusCreated {
		t.Fatalf("upload B: %d", resp.Code)
	}

	before := time.Now()
	files := listFiles(t, router)
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].OriginalName != "B.png" || files[1].OriginalName != "A.txt" {
		t.Fatalf("expected B before A, got %s, %s", files[0].OriginalName, files[1].OriginalName)
	}
	if files[0].Kind != "image" || files[1].Kind != "text" {
		t.Fatalf("unexpected kinds %s, %s", files[0].Kind, files[1].Kind)
	}

	for _, f := range files {
		u, err := url.Parse(f.AccessURL)
		if err != nil || f.AccessURL == "" {
			t.Fatalf("bad access url %q: %v", f.AccessURL, err)
		}
		expires, err := strconv.ParseInt(u.Query().Get("expires"), 10, 64)
		if err != nil {
			t.Fatalf("parse expires: %v", err)
		}
		ttl := time.Unix(expires, 0).Sub(before)
		if ttl < time.Hour-5*time.Second || ttl > time.Hour+5*time.Second {
			t.Fatalf("expected ~1h expiry, got %s", ttl)
		}
	}

	blobResp := httptest.NewRecorder()
	router.ServeHTTP(blobResp, httptest.NewRequest(http.MethodGet, files[1].AccessURL, nil))
	if blobResp.Code != http.StatusOK {
		t.Fatalf("fetch blob: expected 200, got %d", blobResp.Code)
	}
	if body, _ := io.ReadAll(blobResp.Body); string(body) != "first" {
		t.Fatalf("unexpected blob body %q", body)
	}
	if ct := blobResp.Header().Get("Content-Type"); ct != "text/plain" {
		t.Fatalf("unexpected blob content type %q", ct)
	}
}

func TestDeleteRemovesFile(t *testing.T) {
	router := newTestApp(t, 0)

	up := doUpload(t, router, "gone.txt", "text/plain", []byte("bye"))
	var created fileJSON
	if err := json.NewDecoder(up.Body).Decode(&created); err != nil {
		t.Fatalf("decode upload: %v", err)
	}
	link := listFiles(t, router)[0].AccessURL

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/files/"+created.ID, nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var msg struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Message != "File deleted successfully" {
		t.Fatalf("unexpected message %q", msg.Message)
	}

	if files := listFiles(t, router); len(files) != 0 {
		t.Fatalf("expected empty list, got %d", len(files))
	}

	blobResp := httptest.NewRecorder()
	router.ServeHTTP(blobResp, httptest.NewRequest(http.MethodGet, link, nil))
	if blobResp.Code != http.StatusNotFound {
		t.Fatalf("expected blob 404 after delete, got %d", blobResp.Code)
	}
}

func TestDeleteUnknownIs404(t *testing.T) {
	router := newTestApp(t, 0)
	if resp := doUpload(t, router, "keep.txt", "text/plain", []byte("keep")); resp.Code != http.StatusCreated {
		t.Fatalf("upload: %d", resp.Code)
	}

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodDelete, "/api/files/does-not-exist", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	var payload errorJSON
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Error.Code != "not_found" || payload.Error.Message != "File not found" {
		t.Fatalf("unexpected error body %+v", payload)
	}

	if files := listFiles(t, router); len(files) != 1 {
		t.Fatalf("expected 1 file retained, got %d", len(files))
	}
}

func TestUploadThenListRoundTrip(t *testing.T) {
	router := newTestApp(t, 0)

	up := doUpload(t, router, "report final.pdf", "application/pdf", []byte("%PDF-1.4"))
	var created fileJSON
	if err := json.NewDecoder(up.Body).Decode(&created); err != nil {
		t.Fatalf("decode upload: %v", err)
	}

	files := listFiles(t, router)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	got := files[0]
	if got.ID != created.ID || got.OriginalName != created.OriginalName || got.Size != created.Size ||
		got.ContentType != created.ContentType || !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatalf("list item %+v does not match upload %+v", got, created)
	}
	if got.Kind != "pdf" || got.AccessURL == "" {
		t.Fatalf("unexpected derived fields %+v", got)
	}
}
