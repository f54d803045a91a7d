package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/crosstab/internal/banner"
	"github.com/hyperjump/crosstab/internal/config"
	"github.com/hyperjump/crosstab/internal/models"
	"github.com/hyperjump/crosstab/internal/survey"
	"github.com/hyperjump/crosstab/internal/tabular"
	"go.uber.org/zap"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload())
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			s.respondError(w, http.StatusRequestEntityTooLarge, "file too large")
		case errors.Is(err, http.ErrMissingFile):
			s.respondError(w, http.StatusBadRequest, "no file provided")
		default:
			s.respondError(w, http.StatusBadRequest, "invalid multipart body")
		}
		return
	}
	defer file.Close()
	if header.Filename == "" {
		s.respondError(w, http.StatusBadRequest, "no file selected")
		return
	}
	s.logger.Debug("upload request", zap.String("filename", header.Filename), zap.Int64("size", header.Size))
	sv, err := s.surveys.Ingest(r.Context(), header.Filename, file)
	if err != nil {
		s.fail(w, "upload failed", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"id":       sv.ID,
		"kind":     sv.Kind,
		"filename": sv.Filename,
	})
}

func (s *Server) handleListSurveys(w http.ResponseWriter, r *http.Request) {
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := s.surveys.List(r.Context(), max(offset, 0), limit)
	if err != nil {
		s.fail(w, "list surveys failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"surveys": list})
}

func (s *Server) handleGetSurvey(w http.ResponseWriter, r *http.Request) {
	sv, err := s.surveys.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "get survey failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, sv)
}

func (s *Server) handleDeleteSurvey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete survey request", zap.String("id", id))
	if err := s.surveys.Delete(r.Context(), id); err != nil {
		s.fail(w, "delete survey failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (s *Server) handleSurveyData(w http.ResponseWriter, r *http.Request) {
	doc, err := s.surveys.Document(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "read survey data failed", err)
		return
	}
	defer doc.Close()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, doc); err != nil {
		s.logger.Warn("stream survey data", zap.Error(err))
	}
}

func (s *Server) handleQuestionIDs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.surveys.QuestionIDs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, "list questions failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"questions": ids})
}

func (s *Server) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.surveys.Question(r.Context(),
		chi.URLParam(r, "id"),
		r.URL.Query().Get("banner"),
		chi.URLParam(r, "qid"))
	if err != nil {
		s.fail(w, "get question failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, q)
}

func (s *Server) handleSearchQuestions(w http.ResponseWriter, r *http.Request) {
	term := r.URL.Query().Get("q")
	if term == "" {
		s.respondError(w, http.StatusBadRequest, "q is required")
		return
	}
	matches, err := s.surveys.SearchQuestions(r.Context(), chi.URLParam(r, "id"), term)
	if err != nil {
		s.fail(w, "search questions failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"questions": matches})
}

type crossTabRequest struct {
	RowVar  string            `json:"row_var"`
	ColVar  string            `json:"col_var"`
	Filters map[string]string `json:"filters,omitempty"`
}

func (s *Server) handleCrossTab(w http.ResponseWriter, r *http.Request) {
	var req crossTabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.RowVar == "" || req.ColVar == "" {
		s.respondError(w, http.StatusBadRequest, "row_var and col_var are required")
		return
	}
	ct, err := s.surveys.CrossTab(r.Context(), chi.URLParam(r, "id"), req.RowVar, req.ColVar, req.Filters)
	if err != nil {
		s.fail(w, "crosstab failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, ct)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	fuzzy, _ := strconv.ParseBool(q.Get("fuzzy"))
	query := models.SearchQuery{
		Query:        q.Get("q"),
		Limit:        limit,
		SurveyID:     q.Get("survey_id"),
		FuzzyEnabled: fuzzy,
	}
	s.logger.Debug("search request", zap.String("query", query.Query), zap.Int("limit", query.Limit))
	resp, err := s.surveys.Search(r.Context(), &query)
	if err != nil {
		s.fail(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	st, err := s.surveys.Status(r.Context())
	if err != nil {
		s.fail(w, "status failed", err)
		return
	}
	resp := map[string]interface{}{
		"surveys":             st.Surveys,
		"indexed_questions":   st.IndexedQuestions,
		"disk_usage_bytes":    st.DiskUsageBytes,
		"database_size_bytes": st.DatabaseSizeBytes,
	}
	if s.cfg != nil {
		resp["config"] = map[string]interface{}{
			"database_path":      s.cfg.Storage.DatabasePath,
			"data_dir":           s.cfg.Storage.DataDir,
			"uploads_dir":        s.cfg.Storage.UploadsDir,
			"bleve_index_path":   s.cfg.Storage.BleveIndexPath,
			"parser_workers":     s.cfg.Parser.Workers,
			"allowed_extensions": s.cfg.Ingest.AllowedExtensions,
			"max_upload_bytes":   s.maxUpload(),
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleWatchList(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"directories": s.watch.Inboxes()})
}

type watchAddRequest struct {
	Path   string `json:"path"`
	Ingest *bool  `json:"ingest,omitempty"`
}

func (s *Server) handleWatchAdd(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	var req watchAddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(req.Path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			s.respondError(w, http.StatusNotFound, "directory not found")
			return
		}
		s.fail(w, "watch add directory failed", err)
		return
	}
	if !info.IsDir() {
		s.respondError(w, http.StatusBadRequest, "path is not a directory")
		return
	}
	ingest := req.Ingest == nil || *req.Ingest
	if err := s.watch.AddInbox(abs, ingest); err != nil {
		s.fail(w, "watch add directory failed", err)
		return
	}
	s.persistInboxes()
	s.respondJSON(w, http.StatusCreated, map[string]string{"path": abs, "status": "added"})
}

func (s *Server) handleWatchRemove(w http.ResponseWriter, r *http.Request) {
	if s.watch == nil {
		s.respondError(w, http.StatusNotImplemented, "watch not enabled")
		return
	}
	path := r.URL.Query().Get("path")
	if path == "" {
		s.respondError(w, http.StatusBadRequest, "path is required")
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid path")
		return
	}
	if err := s.watch.RemoveInbox(abs); err != nil {
		s.fail(w, "watch remove directory failed", err)
		return
	}
	s.persistInboxes()
	s.respondJSON(w, http.StatusOK, map[string]string{"path": abs, "status": "removed"})
}

// persistInboxes writes the current inbox list to the config file, if any.
func (s *Server) persistInboxes() {
	if s.configPath == "" || s.cfg == nil {
		return
	}
	s.cfgMu.Lock()
	defer s.cfgMu.Unlock()
	s.cfg.Watch.Directories = s.watch.Inboxes()
	if err := config.Save(s.configPath, s.cfg); err != nil {
		s.logger.Warn("failed to persist watch config", zap.Error(err))
	}
}

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var parseErr *banner.ParseError
	switch {
	case errors.Is(err, survey.ErrNotFound),
		errors.Is(err, banner.ErrBannerNotFound),
		errors.Is(err, banner.ErrQuestionNotFound):
		return http.StatusNotFound
	case errors.Is(err, survey.ErrUnsupportedFormat),
		errors.Is(err, survey.ErrWrongKind),
		errors.Is(err, tabular.ErrUnknownColumn),
		errors.Is(err, tabular.ErrUnsupportedFormat),
		errors.Is(err, models.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.As(err, &parseErr):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err))
	} else {
		s.logger.Debug(msg, zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
