package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/swaggo/swag"

	"github.com/custodia-labs/sercha-notes/internal/core/domain"
	"github.com/custodia-labs/sercha-notes/internal/core/ports/driving"
)

// ErrorResponse represents an API error response
// @Description API error response
type ErrorResponse struct {
	Error string `json:"error" example:"invalid request body"`
}

// StatusResponse represents a simple status response
// @Description Simple status response
type StatusResponse struct {
	Status string `json:"status" example:"ok"`
}

// ReadyResponse reports the health of each dependency
// @Description Readiness status with per-dependency checks
type ReadyResponse struct {
	Status string            `json:"status" example:"ready"`
	Checks map[string]string `json:"checks,omitempty"`
}

// VersionResponse represents the API version response
// @Description API version response
type VersionResponse struct {
	Version string `json:"version" example:"1.0.0"`
}

// PreviewRequest asks for the chunks of unsaved editor output
// @Description Chunking preview request
type PreviewRequest struct {
	Content  string           `json:"content" example:"# Title\n\nBody"`
	MimeType string           `json:"mime_type" example:"text/markdown"`
	Mode     domain.ChunkMode `json:"mode,omitempty" example:"stream"`
}

// IndexRequest optionally overrides the chunking mode
// @Description Synchronous indexing request
type IndexRequest struct {
	Mode domain.ChunkMode `json:"mode,omitempty" example:"node"`
}

// DocumentListResponse is a page of documents
// @Description Paginated document list
type DocumentListResponse struct {
	Documents []*domain.Document `json:"documents"`
	Total     int                `json:"total"`
	Limit     int                `json:"limit"`
	Offset    int                `json:"offset"`
}

// RefreshResponse reports how many tags were re-embedded
// @Description Tag embedding refresh result
type RefreshResponse struct {
	Updated int `json:"updated" example:"12"`
}

// Health endpoints

// handleHealth godoc
// @Summary      Health check
// @Description  Returns the health status of the API
// @Tags         Health
// @Produce      json
// @Success      200  {object}  StatusResponse
// @Router       /health [get]
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}

// handleReady godoc
// @Summary      Readiness check
// @Description  Pings the document store, Redis and the task queue
// @Tags         Health
// @Produce      json
// @Success      200  {object}  ReadyResponse
// @Failure      503  {object}  ReadyResponse
// @Router       /ready [get]
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}
	ready := true

	probe := func(name string, p Pinger) {
		if p == nil {
			return
		}
		if err := p.Ping(r.Context()); err != nil {
			checks[name] = err.Error()
			ready = false
			return
		}
		checks[name] = "ok"
	}
	probe("database", s.db)
	probe("redis", s.redisClient)
	if s.taskQueue != nil {
		probe("queue", s.taskQueue)
	}

	if !ready {
		writeJSON(w, http.StatusServiceUnavailable, ReadyResponse{Status: "unavailable", Checks: checks})
		return
	}
	writeJSON(w, http.StatusOK, ReadyResponse{Status: "ready", Checks: checks})
}

// handleVersion godoc
// @Summary      Get API version
// @Description  Returns the current API version
// @Tags         Health
// @Produce      json
// @Success      200  {object}  VersionResponse
// @Router       /version [get]
func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, VersionResponse{Version: s.version})
}

// handleSwaggerDoc serves the registered OpenAPI document.
func (s *Server) handleSwaggerDoc(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc()
	if err != nil {
		writeError(w, http.StatusNotFound, "api docs not registered")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, doc)
}

// Chunking endpoints

// handlePreviewChunks godoc
// @Summary      Preview chunks
// @Description  Parses and chunks editor output without saving it. Every chunk carries the IDs of the nodes it spans.
// @Tags         Chunks
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      PreviewRequest  true  "Editor output"
// @Success      200      {object}  domain.ChunkPreview
// @Failure      400      {object}  ErrorResponse  "Invalid request or malformed content"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      415      {object}  ErrorResponse  "Unsupported MIME type"
// @Router       /chunks/preview [post]
func (s *Server) handlePreviewChunks(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	preview, err := s.indexingService.Preview(r.Context(), req.Content, req.MimeType, req.Mode)
	if err != nil {
		writeServiceError(w, err, "failed to chunk content")
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

// Document endpoints

// handleListDocuments godoc
// @Summary      List documents
// @Description  Lists the caller's documents, most recently updated first
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        limit   query     int  false  "Page size (max 100)"
// @Param        offset  query     int  false  "Page offset"
// @Success      200     {object}  DocumentListResponse
// @Failure      401     {object}  ErrorResponse  "Unauthorized"
// @Failure      500     {object}  ErrorResponse  "Internal server error"
// @Router       /documents [get]
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	owner := ownerID(r)

	docs, err := s.docService.List(r.Context(), owner, limit, offset)
	if err != nil {
		writeServiceError(w, err, "failed to list documents")
		return
	}
	total, err := s.docService.Count(r.Context(), owner)
	if err != nil {
		writeServiceError(w, err, "failed to count documents")
		return
	}

	writeJSON(w, http.StatusOK, DocumentListResponse{Documents: docs, Total: total, Limit: limit, Offset: offset})
}

// handleSaveDocument godoc
// @Summary      Save document
// @Description  Creates or updates a document and schedules it for indexing
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                        true  "Document ID"
// @Param        request  body      driving.SaveDocumentRequest  true  "Document"
// @Success      200      {object}  domain.Document
// @Failure      400      {object}  ErrorResponse  "Invalid request body"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      404      {object}  ErrorResponse  "Document belongs to another owner"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /documents/{id} [put]
func (s *Server) handleSaveDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing document id")
		return
	}

	var req driving.SaveDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.ID = id

	doc, err := s.docService.Save(r.Context(), ownerID(r), req)
	if err != nil {
		writeServiceError(w, err, "failed to save document")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleGetDocument godoc
// @Summary      Get document
// @Description  Get a document by ID
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      400  {object}  ErrorResponse  "Missing document ID"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /documents/{id} [get]
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing document id")
		return
	}

	doc, err := s.docService.Get(r.Context(), ownerID(r), id)
	if err != nil {
		writeServiceError(w, err, "failed to get document")
		return
	}

	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument godoc
// @Summary      Delete document
// @Description  Deletes a document and its chunks
// @Tags         Documents
// @Security     BearerAuth
// @Param        id   path  string  true  "Document ID"
// @Success      204  "No Content"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /documents/{id} [delete]
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.docService.Delete(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "failed to delete document")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleGetDocumentChunks godoc
// @Summary      Get document chunks
// @Description  Returns a document with its stored chunks. Filter by node with ?node_id=.
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string  true   "Document ID"
// @Param        node_id  query     string  false  "Only chunks spanning this node"
// @Success      200      {object}  domain.DocumentWithChunks
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      404      {object}  ErrorResponse  "Document not found"
// @Failure      500      {object}  ErrorResponse  "Internal server error"
// @Router       /documents/{id}/chunks [get]
func (s *Server) handleGetDocumentChunks(w http.ResponseWriter, r *http.Request) {
	result, err := s.docService.GetWithChunks(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get chunks")
		return
	}

	if nodeID := r.URL.Query().Get("node_id"); nodeID != "" {
		filtered := []*domain.Chunk{}
		for _, chunk := range result.Chunks {
			for _, id := range chunk.NodeIDs {
				if id == nodeID {
					filtered = append(filtered, chunk)
					break
				}
			}
		}
		result.Chunks = filtered
	}

	writeJSON(w, http.StatusOK, result)
}

// handleIndexDocument godoc
// @Summary      Index document
// @Description  Synchronously parses, chunks and embeds the current version of a document
// @Tags         Documents
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string        true   "Document ID"
// @Param        request  body      IndexRequest  false  "Chunking mode override"
// @Success      200      {object}  domain.IndexResult
// @Failure      400      {object}  ErrorResponse  "Invalid mode or malformed content"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      404      {object}  ErrorResponse  "Document not found"
// @Failure      409      {object}  ErrorResponse  "Indexing already in progress"
// @Failure      503      {object}  ErrorResponse  "Embedding service unavailable"
// @Router       /documents/{id}/index [post]
func (s *Server) handleIndexDocument(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req IndexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// Ownership check; the indexing service itself is not owner-scoped
	if _, err := s.docService.Get(r.Context(), ownerID(r), id); err != nil {
		writeServiceError(w, err, "failed to get document")
		return
	}

	result, err := s.indexingService.IndexDocument(r.Context(), id, req.Mode)
	if err != nil {
		writeServiceError(w, err, "failed to index document")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleAutoTagDocument godoc
// @Summary      Auto-tag document
// @Description  Embeds an excerpt of the document and assigns the best-matching tag, or the fallback tag
// @Tags         Documents
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.TagAssignment
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Document not found"
// @Failure      503  {object}  ErrorResponse  "Auto-tagging or embedding unavailable"
// @Router       /documents/{id}/autotag [post]
func (s *Server) handleAutoTagDocument(w http.ResponseWriter, r *http.Request) {
	assignment, err := s.autoTagService.AutoTag(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to auto-tag document")
		return
	}

	writeJSON(w, http.StatusOK, assignment)
}

// Tag endpoints

// handleListTags godoc
// @Summary      List tags
// @Description  Lists the caller's tags ordered by name
// @Tags         Tags
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   domain.Tag
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      500  {object}  ErrorResponse  "Internal server error"
// @Router       /tags [get]
func (s *Server) handleListTags(w http.ResponseWriter, r *http.Request) {
	tags, err := s.tagService.List(r.Context(), ownerID(r))
	if err != nil {
		writeServiceError(w, err, "failed to list tags")
		return
	}
	if tags == nil {
		tags = []*domain.Tag{}
	}

	writeJSON(w, http.StatusOK, tags)
}

// handleCreateTag godoc
// @Summary      Create tag
// @Description  Creates a tag and embeds its label
// @Tags         Tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.CreateTagRequest  true  "Tag"
// @Success      201      {object}  domain.Tag
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      409      {object}  ErrorResponse  "Tag name already exists"
// @Router       /tags [post]
func (s *Server) handleCreateTag(w http.ResponseWriter, r *http.Request) {
	var req driving.CreateTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tag, err := s.tagService.Create(r.Context(), ownerID(r), req)
	if err != nil {
		writeServiceError(w, err, "failed to create tag")
		return
	}

	writeJSON(w, http.StatusCreated, tag)
}

// handleGetTag godoc
// @Summary      Get tag
// @Tags         Tags
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Tag ID"
// @Success      200  {object}  domain.Tag
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Tag not found"
// @Router       /tags/{id} [get]
func (s *Server) handleGetTag(w http.ResponseWriter, r *http.Request) {
	tag, err := s.tagService.Get(r.Context(), ownerID(r), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err, "failed to get tag")
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

// handleUpdateTag godoc
// @Summary      Update tag
// @Description  Renames or re-describes a tag; the label is re-embedded when it changes
// @Tags         Tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id       path      string                    true  "Tag ID"
// @Param        request  body      driving.UpdateTagRequest  true  "Changes"
// @Success      200      {object}  domain.Tag
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Failure      404      {object}  ErrorResponse  "Tag not found"
// @Failure      409      {object}  ErrorResponse  "Tag name already exists"
// @Router       /tags/{id} [patch]
func (s *Server) handleUpdateTag(w http.ResponseWriter, r *http.Request) {
	var req driving.UpdateTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tag, err := s.tagService.Update(r.Context(), ownerID(r), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err, "failed to update tag")
		return
	}

	writeJSON(w, http.StatusOK, tag)
}

// handleDeleteTag godoc
// @Summary      Delete tag
// @Tags         Tags
// @Security     BearerAuth
// @Param        id   path  string  true  "Tag ID"
// @Success      204  "No Content"
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      404  {object}  ErrorResponse  "Tag not found"
// @Router       /tags/{id} [delete]
func (s *Server) handleDeleteTag(w http.ResponseWriter, r *http.Request) {
	if err := s.tagService.Delete(r.Context(), ownerID(r), r.PathValue("id")); err != nil {
		writeServiceError(w, err, "failed to delete tag")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRefreshTags godoc
// @Summary      Refresh tag embeddings
// @Description  Re-embeds every tag of the caller, e.g. after switching embedding models
// @Tags         Tags
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  RefreshResponse
// @Failure      401  {object}  ErrorResponse  "Unauthorized"
// @Failure      503  {object}  ErrorResponse  "Embedding service unavailable"
// @Router       /tags/refresh [post]
func (s *Server) handleRefreshTags(w http.ResponseWriter, r *http.Request) {
	updated, err := s.tagService.RefreshEmbeddings(r.Context(), ownerID(r))
	if err != nil {
		writeServiceError(w, err, "failed to refresh tag embeddings")
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{Updated: updated})
}

// handleMatch godoc
// @Summary      Match a vector
// @Description  Scores a raw vector against the caller's tags with the same matcher used for auto-tagging
// @Tags         Tags
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      driving.MatchRequest  true  "Vector and optional threshold"
// @Success      200      {object}  driving.MatchResponse
// @Failure      400      {object}  ErrorResponse  "Invalid request"
// @Failure      401      {object}  ErrorResponse  "Unauthorized"
// @Router       /match [post]
func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var req driving.MatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := s.autoTagService.Match(r.Context(), ownerID(r), req)
	if err != nil {
		writeServiceError(w, err, "failed to match vector")
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Helper functions

// writeServiceError maps domain errors to status codes.
// Unmapped errors are reported with the generic fallback message.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrIndexInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrUnsupportedMimeType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.Is(err, domain.ErrInvalidInput),
		errors.Is(err, domain.ErrInvalidChunkConfig),
		errors.Is(err, domain.ErrMalformedTree),
		errors.Is(err, domain.ErrCyclicTree),
		errors.Is(err, domain.ErrDimensionMismatch):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrEmbeddingUnavailable),
		errors.Is(err, domain.ErrServiceUnavailable):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
