package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"pdf-workbench/internal/domain"
	apperrors "pdf-workbench/pkg/errors"
)

type mockHandlerConfig struct{}

func (c *mockHandlerConfig) GetServerPort() string       { return "8080" }
func (c *mockHandlerConfig) GetUploadPath() string       { return "./uploads" }
func (c *mockHandlerConfig) GetOutputPath() string       { return "./outputs" }
func (c *mockHandlerConfig) GetMaxFileSize() int64       { return 1 << 20 }
func (c *mockHandlerConfig) GetMaxConcurrentJobs() int64 { return 2 }
func (c *mockHandlerConfig) GetOperationTimeout() int    { return 5 }
func (c *mockHandlerConfig) GetAdapterTimeout() int      { return 5 }
func (c *mockHandlerConfig) GetArtifactTTLMinutes() int  { return 60 }
func (c *mockHandlerConfig) GetLogLevel() string         { return "info" }

// mockOrchestrator records the last request and returns a canned outcome.
type mockOrchestrator struct {
	lastReq *domain.OperationRequest
	result  *domain.OperationResult
	err     error
}

func (m *mockOrchestrator) Execute(ctx context.Context, req *domain.OperationRequest) (*domain.OperationResult, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.result, nil
}

// mockArtifactStore stores artifacts in memory under predictable names.
type mockArtifactStore struct {
	saved   map[string][]byte
	uploads map[string][]byte
	zipErr  error
	removed int
}

func newMockArtifactStore() *mockArtifactStore {
	return &mockArtifactStore{saved: map[string][]byte{}, uploads: map[string][]byte{}}
}

func (m *mockArtifactStore) SaveArtifacts(artifacts []domain.Artifact) ([]string, error) {
	names := make([]string, 0, len(artifacts))
	for i, a := range artifacts {
		name := fmt.Sprintf("stored_%d_%s", i+1, a.Name)
		m.saved[name] = a.Data
		names = append(names, name)
	}
	return names, nil
}

func (m *mockArtifactStore) SaveUpload(name string, data []byte) (string, error) {
	m.uploads[name] = data
	return "upload_" + name, nil
}

func (m *mockArtifactStore) Open(name string) ([]byte, string, error) {
	data, ok := m.saved[name]
	if !ok {
		return nil, "", apperrors.NewNotFound("artifact " + name + " not found")
	}
	return data, "application/pdf", nil
}

func (m *mockArtifactStore) Zip(names []string) (string, error) {
	if m.zipErr != nil {
		return "", m.zipErr
	}
	return "bundle_download.zip", nil
}

func (m *mockArtifactStore) Cleanup() (int, error) {
	return m.removed, nil
}

func newTestOperationHandler(orch *mockOrchestrator, store *mockArtifactStore) *OperationHandler {
	return NewOperationHandler(orch, store, &mockHandlerConfig{}, NewMockHandlerLogger())
}

// multipartBody builds a multipart form with the given files and fields.
func multipartBody(t *testing.T, files map[string][]byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for name, data := range files {
		fw, err := mw.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("failed to write form file: %v", err)
		}
	}
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

var fakePDF = []byte("%PDF-1.7\n1 0 obj\n<< >>\nendobj\n%%EOF")

func TestOperationHandler_Handle_Success(t *testing.T) {
	orch := &mockOrchestrator{result: &domain.OperationResult{
		Kind:      domain.OpRotate,
		Artifacts: []domain.Artifact{{Name: "rotated.pdf", ContentType: "application/pdf", Data: []byte("out")}},
	}}
	store := newMockArtifactStore()
	handler := newTestOperationHandler(orch, store)

	body, contentType := multipartBody(t, map[string][]byte{"in.pdf": fakePDF}, map[string]string{"angle": "90"})
	req := httptest.NewRequest("POST", "/api/rotate", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	handler.Handle(domain.OpRotate)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if resp["output_file"] != "stored_1_rotated.pdf" {
		t.Fatalf("unexpected output_file %q", resp["output_file"])
	}
	if orch.lastReq.Options["angle"] != "90" {
		t.Fatalf("expected the angle option to be forwarded, got %v", orch.lastReq.Options)
	}
	if len(orch.lastReq.Inputs) != 1 || orch.lastReq.Inputs[0].Name != "in.pdf" {
		t.Fatalf("expected one input named in.pdf, got %v", orch.lastReq.Inputs)
	}
	if _, ok := store.uploads["in.pdf"]; !ok {
		t.Fatal("expected the upload to be kept in the store")
	}
}

func TestOperationHandler_Handle_MultiResult(t *testing.T) {
	orch := &mockOrchestrator{result: &domain.OperationResult{
		Kind: domain.OpSplit,
		Artifacts: []domain.Artifact{
			{Name: "split_part_1.pdf", Data: []byte("a")},
			{Name: "split_part_2.pdf", Data: []byte("b")},
		},
	}}
	handler := newTestOperationHandler(orch, newMockArtifactStore())

	body, contentType := multipartBody(t, map[string][]byte{"in.pdf": fakePDF}, nil)
	req := httptest.NewRequest("POST", "/api/split", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	handler.Handle(domain.OpSplit)(rr, req)

	var resp map[string][]string
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not JSON: %v", err)
	}
	if len(resp["output_files"]) != 2 {
		t.Fatalf("expected 2 output files, got %v", resp)
	}
}

func TestOperationHandler_Handle_RejectsNonPDF(t *testing.T) {
	orch := &mockOrchestrator{}
	handler := newTestOperationHandler(orch, newMockArtifactStore())

	body, contentType := multipartBody(t, map[string][]byte{"notes.txt": []byte("just text")}, nil)
	req := httptest.NewRequest("POST", "/api/compress", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	handler.Handle(domain.OpCompress)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if orch.lastReq != nil {
		t.Fatal("expected the orchestrator not to be called")
	}
}

func TestOperationHandler_Handle_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{apperrors.NewWrongPassword("password does not match"), http.StatusForbidden},
		{apperrors.NewNotFound("gone"), http.StatusNotFound},
		{apperrors.NewUnsupportedOperation("nope"), http.StatusBadRequest},
		{apperrors.NewInternal("boom", nil), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		orch := &mockOrchestrator{err: tc.err}
		handler := newTestOperationHandler(orch, newMockArtifactStore())

		body, contentType := multipartBody(t, map[string][]byte{"in.pdf": fakePDF}, nil)
		req := httptest.NewRequest("POST", "/api/compress", body)
		req.Header.Set("Content-Type", contentType)
		rr := httptest.NewRecorder()

		handler.Handle(domain.OpCompress)(rr, req)

		if rr.Code != tc.status {
			t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
		}
		var resp map[string]string
		if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
			t.Fatalf("error response is not JSON: %v", err)
		}
		if resp["detail"] == "" {
			t.Fatal("expected a detail message in the error body")
		}
	}
}

func TestOperationHandler_Handle_CompareFields(t *testing.T) {
	orch := &mockOrchestrator{result: &domain.OperationResult{
		Kind:      domain.OpCompare,
		Artifacts: []domain.Artifact{{Name: "comparison_report.pdf", Data: []byte("r")}},
	}}
	handler := newTestOperationHandler(orch, newMockArtifactStore())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, field := range []string{"file1", "file2"} {
		fw, err := mw.CreateFormFile(field, field+".pdf")
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		fw.Write(fakePDF)
	}
	mw.Close()

	req := httptest.NewRequest("POST", "/api/compare", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	handler.Handle(domain.OpCompare)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(orch.lastReq.Inputs) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(orch.lastReq.Inputs))
	}
}

func TestOperationHandler_Handle_CompareMissingField(t *testing.T) {
	handler := newTestOperationHandler(&mockOrchestrator{}, newMockArtifactStore())

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file1", "only.pdf")
	fw.Write(fakePDF)
	mw.Close()

	req := httptest.NewRequest("POST", "/api/compare", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rr := httptest.NewRecorder()

	handler.Handle(domain.OpCompare)(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestOperationHandler_Handle_HTMLToPDFPlainForm(t *testing.T) {
	orch := &mockOrchestrator{result: &domain.OperationResult{
		Kind:      domain.OpHTMLToPDF,
		Artifacts: []domain.Artifact{{Name: "converted.pdf", Data: []byte("c")}},
	}}
	handler := newTestOperationHandler(orch, newMockArtifactStore())

	form := bytes.NewBufferString("html_content=%3Cp%3Ehello%3C%2Fp%3E")
	req := httptest.NewRequest("POST", "/api/html-to-pdf", form)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	handler.Handle(domain.OpHTMLToPDF)(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if orch.lastReq.Options["html_content"] != "<p>hello</p>" {
		t.Fatalf("expected decoded html_content, got %q", orch.lastReq.Options["html_content"])
	}
}
