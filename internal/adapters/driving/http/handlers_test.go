package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	_ "github.com/custodia-labs/sercha-notes/docs"
	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driving"
)

// Mock services for testing

type mockAuthService struct {
	validateTokenFn func(ctx context.Context, token string) (*domain.AuthContext, error)
}

func (m *mockAuthService) ValidateToken(ctx context.Context, token string) (*domain.AuthContext, error) {
	if m.validateTokenFn != nil {
		return m.validateTokenFn(ctx, token)
	}
	if token == "alice-token" {
		return &domain.AuthContext{OwnerID: "alice"}, nil
	}
	return nil, domain.ErrTokenInvalid
}

func (m *mockAuthService) IssueToken(ctx context.Context, ownerID, subject string) (string, error) {
	return ownerID + "-token", nil
}

type mockDocumentService struct {
	saveFn          func(ctx context.Context, ownerID string, req driving.SaveDocumentRequest) (*domain.Document, error)
	getFn           func(ctx context.Context, ownerID, id string) (*domain.Document, error)
	getWithChunksFn func(ctx context.Context, ownerID, id string) (*domain.DocumentWithChunks, error)
	listFn          func(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error)
	deleteFn        func(ctx context.Context, ownerID, id string) error
}

func (m *mockDocumentService) Save(ctx context.Context, ownerID string, req driving.SaveDocumentRequest) (*domain.Document, error) {
	if m.saveFn != nil {
		return m.saveFn(ctx, ownerID, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockDocumentService) Get(ctx context.Context, ownerID, id string) (*domain.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, ownerID, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) GetWithChunks(ctx context.Context, ownerID, id string) (*domain.DocumentWithChunks, error) {
	if m.getWithChunksFn != nil {
		return m.getWithChunksFn(ctx, ownerID, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentService) List(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Document, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID, limit, offset)
	}
	return []*domain.Document{}, nil
}

func (m *mockDocumentService) Count(ctx context.Context, ownerID string) (int, error) {
	return 0, nil
}

func (m *mockDocumentService) Delete(ctx context.Context, ownerID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, id)
	}
	return nil
}

type mockIndexingService struct {
	indexFn   func(ctx context.Context, documentID string, mode domain.ChunkMode) (*domain.IndexResult, error)
	previewFn func(ctx context.Context, content, mimeType string, mode domain.ChunkMode) (*domain.ChunkPreview, error)
}

func (m *mockIndexingService) IndexDocument(ctx context.Context, documentID string, mode domain.ChunkMode) (*domain.IndexResult, error) {
	if m.indexFn != nil {
		return m.indexFn(ctx, documentID, mode)
	}
	return nil, errors.New("not implemented")
}

func (m *mockIndexingService) Preview(ctx context.Context, content, mimeType string, mode domain.ChunkMode) (*domain.ChunkPreview, error) {
	if m.previewFn != nil {
		return m.previewFn(ctx, content, mimeType, mode)
	}
	return nil, errors.New("not implemented")
}

type mockTagService struct {
	createFn  func(ctx context.Context, ownerID string, req driving.CreateTagRequest) (*domain.Tag, error)
	updateFn  func(ctx context.Context, ownerID, id string, req driving.UpdateTagRequest) (*domain.Tag, error)
	listFn    func(ctx context.Context, ownerID string) ([]*domain.Tag, error)
	deleteFn  func(ctx context.Context, ownerID, id string) error
	refreshFn func(ctx context.Context, ownerID string) (int, error)
}

func (m *mockTagService) Create(ctx context.Context, ownerID string, req driving.CreateTagRequest) (*domain.Tag, error) {
	if m.createFn != nil {
		return m.createFn(ctx, ownerID, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTagService) Update(ctx context.Context, ownerID, id string, req driving.UpdateTagRequest) (*domain.Tag, error) {
	if m.updateFn != nil {
		return m.updateFn(ctx, ownerID, id, req)
	}
	return nil, errors.New("not implemented")
}

func (m *mockTagService) Get(ctx context.Context, ownerID, id string) (*domain.Tag, error) {
	return nil, domain.ErrNotFound
}

func (m *mockTagService) List(ctx context.Context, ownerID string) ([]*domain.Tag, error) {
	if m.listFn != nil {
		return m.listFn(ctx, ownerID)
	}
	return nil, nil
}

func (m *mockTagService) Delete(ctx context.Context, ownerID, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, ownerID, id)
	}
	return nil
}

func (m *mockTagService) RefreshEmbeddings(ctx context.Context, ownerID string) (int, error) {
	if m.refreshFn != nil {
		return m.refreshFn(ctx, ownerID)
	}
	return 0, nil
}

type mockAutoTagService struct {
	autoTagFn func(ctx context.Context, ownerID, documentID string) (*domain.TagAssignment, error)
	matchFn   func(ctx context.Context, ownerID string, req driving.MatchRequest) (*driving.MatchResponse, error)
}

func (m *mockAutoTagService) AutoTag(ctx context.Context, ownerID, documentID string) (*domain.TagAssignment, error) {
	if m.autoTagFn != nil {
		return m.autoTagFn(ctx, ownerID, documentID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockAutoTagService) Match(ctx context.Context, ownerID string, req driving.MatchRequest) (*driving.MatchResponse, error) {
	if m.matchFn != nil {
		return m.matchFn(ctx, ownerID, req)
	}
	return nil, errors.New("not implemented")
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

// testDeps holds the mocks for newTestServer; nil fields get empty mocks.
type testDeps struct {
	docs     *mockDocumentService
	indexing *mockIndexingService
	tags     *mockTagService
	autotag  *mockAutoTagService
	db       Pinger
}

func newTestServer(deps testDeps) *Server {
	if deps.docs == nil {
		deps.docs = &mockDocumentService{}
	}
	if deps.indexing == nil {
		deps.indexing = &mockIndexingService{}
	}
	if deps.tags == nil {
		deps.tags = &mockTagService{}
	}
	if deps.autotag == nil {
		deps.autotag = &mockAutoTagService{}
	}
	return NewServer(DefaultConfig(), &mockAuthService{}, deps.docs, deps.indexing, deps.tags, deps.autotag, nil, deps.db, nil)
}

// do sends a request as alice through the full middleware chain
func do(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Authorization", "Bearer alice-token")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	return rr
}

func TestHealthHandler(t *testing.T) {
	server := &Server{}

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()

	server.handleHealth(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rr.Code)
	}

	var response StatusResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", response.Status)
	}
}

func TestReadyHandler(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		server := &Server{db: &mockPinger{}}

		rr := httptest.NewRecorder()
		server.handleReady(rr, httptest.NewRequest("GET", "/ready", nil))

		if rr.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rr.Code)
		}
	})

	t.Run("database down", func(t *testing.T) {
		server := &Server{db: &mockPinger{err: errors.New("connection refused")}}

		rr := httptest.NewRecorder()
		server.handleReady(rr, httptest.NewRequest("GET", "/ready", nil))

		if rr.Code != http.StatusServiceUnavailable {
			t.Errorf("expected status 503, got %d", rr.Code)
		}
		var response ReadyResponse
		json.NewDecoder(rr.Body).Decode(&response)
		if response.Checks["database"] != "connection refused" {
			t.Errorf("expected database check to report the error, got %v", response.Checks)
		}
	})
}

func TestVersionHandler(t *testing.T) {
	server := &Server{version: "1.2.3"}

	rr := httptest.NewRecorder()
	server.handleVersion(rr, httptest.NewRequest("GET", "/version", nil))

	var response VersionResponse
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Version != "1.2.3" {
		t.Errorf("expected version '1.2.3', got %s", response.Version)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	server := newTestServer(testDeps{})

	req := httptest.NewRequest("GET", "/metrics", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "sercha_notes_") {
		t.Error("expected sercha_notes collectors in /metrics output")
	}
}

func TestSwaggerDoc(t *testing.T) {
	server := newTestServer(testDeps{})

	req := httptest.NewRequest("GET", "/swagger/doc.json", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var doc struct {
		Paths map[string]json.RawMessage `json:"paths"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("failed to decode doc: %v", err)
	}
	for _, path := range []string{"/chunks/preview", "/documents/{id}", "/tags", "/match"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Errorf("expected path %s in api doc", path)
		}
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	server := newTestServer(testDeps{})

	req := httptest.NewRequest("GET", "/api/v1/tags", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("expected status 401, got %d", rr.Code)
	}
}

func TestWriteJSON(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusCreated, map[string]string{"key": "value"})

	if rr.Code != http.StatusCreated {
		t.Errorf("expected status 201, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}
}

func TestWriteServiceError(t *testing.T) {
	tests := []struct {
		err      error
		expected int
	}{
		{domain.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.ErrAlreadyExists, http.StatusConflict},
		{domain.ErrIndexInProgress, http.StatusConflict},
		{domain.ErrUnsupportedMimeType, http.StatusUnsupportedMediaType},
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrMalformedTree, http.StatusBadRequest},
		{domain.ErrCyclicTree, http.StatusBadRequest},
		{domain.ErrInvalidChunkConfig, http.StatusBadRequest},
		{domain.ErrEmbeddingUnavailable, http.StatusServiceUnavailable},
		{domain.ErrServiceUnavailable, http.StatusServiceUnavailable},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rr := httptest.NewRecorder()
			writeServiceError(rr, tt.err, "failed")
			if rr.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestHandlePreviewChunks(t *testing.T) {
	var gotMime string
	var gotMode domain.ChunkMode
	indexing := &mockIndexingService{
		previewFn: func(ctx context.Context, content, mimeType string, mode domain.ChunkMode) (*domain.ChunkPreview, error) {
			gotMime, gotMode = mimeType, mode
			return &domain.ChunkPreview{
				Chunks: []domain.ChunkWithNodeIDs{{Text: "Title Body", NodeIDs: []string{"md-0", "md-1"}}},
			}, nil
		},
	}
	server := newTestServer(testDeps{indexing: indexing})

	rr := do(t, server, "POST", "/api/v1/chunks/preview", PreviewRequest{Content: "# Title\n\nBody", MimeType: "text/markdown", Mode: domain.ChunkModeNode})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if gotMime != "text/markdown" || gotMode != domain.ChunkModeNode {
		t.Errorf("expected request fields to reach the service, got %s/%s", gotMime, gotMode)
	}

	var response domain.ChunkPreview
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(response.Chunks) != 1 || len(response.Chunks[0].NodeIDs) != 2 {
		t.Errorf("unexpected preview %+v", response)
	}
}

func TestHandlePreviewChunks_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		err      error
		expected int
	}{
		{"invalid json", "{not json", nil, http.StatusBadRequest},
		{"malformed tree", PreviewRequest{Content: "{}"}, domain.ErrMalformedTree, http.StatusBadRequest},
		{"unsupported type", PreviewRequest{MimeType: "image/png"}, domain.ErrUnsupportedMimeType, http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			indexing := &mockIndexingService{
				previewFn: func(ctx context.Context, content, mimeType string, mode domain.ChunkMode) (*domain.ChunkPreview, error) {
					return nil, tt.err
				},
			}
			server := newTestServer(testDeps{indexing: indexing})

			rr := do(t, server, "POST", "/api/v1/chunks/preview", tt.body)
			if rr.Code != tt.expected {
				t.Errorf("expected status %d, got %d", tt.expected, rr.Code)
			}
		})
	}
}

func TestHandleSaveDocument(t *testing.T) {
	var gotOwner string
	var gotReq driving.SaveDocumentRequest
	docs := &mockDocumentService{
		saveFn: func(ctx context.Context, ownerID string, req driving.SaveDocumentRequest) (*domain.Document, error) {
			gotOwner, gotReq = ownerID, req
			return &domain.Document{ID: req.ID, OwnerID: ownerID, Title: req.Title, Version: 1}, nil
		},
	}
	server := newTestServer(testDeps{docs: docs})

	rr := do(t, server, "PUT", "/api/v1/documents/doc-1", driving.SaveDocumentRequest{ID: "ignored", Title: "Garden", Content: "Tomatoes"})

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if gotOwner != "alice" {
		t.Errorf("expected owner from token, got %q", gotOwner)
	}
	if gotReq.ID != "doc-1" {
		t.Errorf("expected path ID to win, got %q", gotReq.ID)
	}
}

func TestHandleGetDocument(t *testing.T) {
	docs := &mockDocumentService{
		getFn: func(ctx context.Context, ownerID, id string) (*domain.Document, error) {
			if ownerID == "alice" && id == "doc-1" {
				return &domain.Document{ID: id, Title: "Test Document"}, nil
			}
			return nil, domain.ErrNotFound
		},
	}
	server := newTestServer(testDeps{docs: docs})

	rr := do(t, server, "GET", "/api/v1/documents/doc-1", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var response domain.Document
	json.NewDecoder(rr.Body).Decode(&response)
	if response.Title != "Test Document" {
		t.Errorf("expected title 'Test Document', got %s", response.Title)
	}

	rr = do(t, server, "GET", "/api/v1/documents/other", nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", rr.Code)
	}
}

func TestHandleGetDocument_MissingID(t *testing.T) {
	server := &Server{}

	rr := httptest.NewRecorder()
	server.handleGetDocument(rr, httptest.NewRequest("GET", "/api/v1/documents/", nil))

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}

func TestHandleGetDocumentChunks_FilterByNode(t *testing.T) {
	docs := &mockDocumentService{
		getWithChunksFn: func(ctx context.Context, ownerID, id string) (*domain.DocumentWithChunks, error) {
			return &domain.DocumentWithChunks{
				Document: &domain.Document{ID: id},
				Chunks: []*domain.Chunk{
					{ID: "c1", NodeIDs: []string{"h1", "p1"}},
					{ID: "c2", NodeIDs: []string{"p2"}},
				},
			}, nil
		},
	}
	server := newTestServer(testDeps{docs: docs})

	rr := do(t, server, "GET", "/api/v1/documents/doc-1/chunks?node_id=p2", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var response domain.DocumentWithChunks
	json.NewDecoder(rr.Body).Decode(&response)
	if len(response.Chunks) != 1 || response.Chunks[0].ID != "c2" {
		t.Errorf("expected only c2, got %+v", response.Chunks)
	}
}

func TestHandleIndexDocument(t *testing.T) {
	indexed := false
	docs := &mockDocumentService{
		getFn: func(ctx context.Context, ownerID, id string) (*domain.Document, error) {
			if ownerID != "alice" {
				return nil, domain.ErrNotFound
			}
			return &domain.Document{ID: id, OwnerID: ownerID}, nil
		},
	}
	indexing := &mockIndexingService{
		indexFn: func(ctx context.Context, documentID string, mode domain.ChunkMode) (*domain.IndexResult, error) {
			indexed = true
			return &domain.IndexResult{DocumentID: documentID, Mode: mode, Chunks: 3}, nil
		},
	}
	server := newTestServer(testDeps{docs: docs, indexing: indexing})

	t.Run("empty body uses default mode", func(t *testing.T) {
		rr := do(t, server, "POST", "/api/v1/documents/doc-1/index", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
		}
		if !indexed {
			t.Error("expected indexing service to be called")
		}
	})

	t.Run("mode override", func(t *testing.T) {
		rr := do(t, server, "POST", "/api/v1/documents/doc-1/index", IndexRequest{Mode: domain.ChunkModeNode})
		var response domain.IndexResult
		json.NewDecoder(rr.Body).Decode(&response)
		if response.Mode != domain.ChunkModeNode {
			t.Errorf("expected node mode, got %s", response.Mode)
		}
	})

	t.Run("in progress", func(t *testing.T) {
		indexing.indexFn = func(ctx context.Context, documentID string, mode domain.ChunkMode) (*domain.IndexResult, error) {
			return nil, domain.ErrIndexInProgress
		}
		rr := do(t, server, "POST", "/api/v1/documents/doc-1/index", nil)
		if rr.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rr.Code)
		}
	})
}

func TestHandleAutoTagDocument(t *testing.T) {
	autotag := &mockAutoTagService{
		autoTagFn: func(ctx context.Context, ownerID, documentID string) (*domain.TagAssignment, error) {
			if documentID == "no-embedder" {
				return nil, domain.ErrEmbeddingUnavailable
			}
			return &domain.TagAssignment{DocumentID: documentID, OwnerID: ownerID, TagID: "garden", Score: 0.91, Reason: domain.MatchReasonMatched}, nil
		},
	}
	server := newTestServer(testDeps{autotag: autotag})

	rr := do(t, server, "POST", "/api/v1/documents/doc-1/autotag", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var response domain.TagAssignment
	json.NewDecoder(rr.Body).Decode(&response)
	if response.TagID != "garden" || response.OwnerID != "alice" {
		t.Errorf("unexpected assignment %+v", response)
	}

	rr = do(t, server, "POST", "/api/v1/documents/no-embedder/autotag", nil)
	if rr.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rr.Code)
	}
}

func TestHandleTags(t *testing.T) {
	tags := &mockTagService{
		createFn: func(ctx context.Context, ownerID string, req driving.CreateTagRequest) (*domain.Tag, error) {
			if req.Name == "dup" {
				return nil, domain.ErrAlreadyExists
			}
			return &domain.Tag{ID: "t1", OwnerID: ownerID, Name: req.Name}, nil
		},
		updateFn: func(ctx context.Context, ownerID, id string, req driving.UpdateTagRequest) (*domain.Tag, error) {
			return &domain.Tag{ID: id, OwnerID: ownerID, Name: *req.Name}, nil
		},
		deleteFn: func(ctx context.Context, ownerID, id string) error {
			if id == "missing" {
				return domain.ErrNotFound
			}
			return nil
		},
		refreshFn: func(ctx context.Context, ownerID string) (int, error) {
			return 4, nil
		},
	}
	server := newTestServer(testDeps{tags: tags})

	t.Run("list empty is an array", func(t *testing.T) {
		rr := do(t, server, "GET", "/api/v1/tags", nil)
		if strings.TrimSpace(rr.Body.String()) != "[]" {
			t.Errorf("expected [], got %s", rr.Body.String())
		}
	})

	t.Run("create", func(t *testing.T) {
		rr := do(t, server, "POST", "/api/v1/tags", driving.CreateTagRequest{Name: "garden"})
		if rr.Code != http.StatusCreated {
			t.Errorf("expected status 201, got %d", rr.Code)
		}
	})

	t.Run("create duplicate", func(t *testing.T) {
		rr := do(t, server, "POST", "/api/v1/tags", driving.CreateTagRequest{Name: "dup"})
		if rr.Code != http.StatusConflict {
			t.Errorf("expected status 409, got %d", rr.Code)
		}
	})

	t.Run("update", func(t *testing.T) {
		name := "plants"
		rr := do(t, server, "PATCH", "/api/v1/tags/t1", driving.UpdateTagRequest{Name: &name})
		var response domain.Tag
		json.NewDecoder(rr.Body).Decode(&response)
		if rr.Code != http.StatusOK || response.Name != "plants" {
			t.Errorf("unexpected update response %d %+v", rr.Code, response)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if rr := do(t, server, "DELETE", "/api/v1/tags/t1", nil); rr.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rr.Code)
		}
		if rr := do(t, server, "DELETE", "/api/v1/tags/missing", nil); rr.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rr.Code)
		}
	})

	t.Run("refresh", func(t *testing.T) {
		rr := do(t, server, "POST", "/api/v1/tags/refresh", nil)
		var response RefreshResponse
		json.NewDecoder(rr.Body).Decode(&response)
		if response.Updated != 4 {
			t.Errorf("expected 4 updated, got %d", response.Updated)
		}
	})
}

func TestHandleMatch(t *testing.T) {
	autotag := &mockAutoTagService{
		matchFn: func(ctx context.Context, ownerID string, req driving.MatchRequest) (*driving.MatchResponse, error) {
			if len(req.Vector) == 0 {
				return nil, domain.ErrInvalidInput
			}
			return &driving.MatchResponse{Result: domain.Matched("garden", 0.99), Excluded: []string{"old"}}, nil
		},
	}
	server := newTestServer(testDeps{autotag: autotag})

	rr := do(t, server, "POST", "/api/v1/match", driving.MatchRequest{Vector: []float64{1, 0}})
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var response driving.MatchResponse
	json.NewDecoder(rr.Body).Decode(&response)
	if response.Result.ID != "garden" || len(response.Excluded) != 1 {
		t.Errorf("unexpected match response %+v", response)
	}

	rr = do(t, server, "POST", "/api/v1/match", driving.MatchRequest{})
	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", rr.Code)
	}
}
