// Package server exposes the tool operations over HTTP.
//
// Each tool is a POST endpoint under /v1/tools taking a JSON body and
// returning a JSON document, mirroring the CLI commands one to one.
package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/pipsight/pipsight/pkg/errors"
	"github.com/pipsight/pipsight/pkg/pkgmgr"
	"github.com/pipsight/pipsight/pkg/project"
)

// Server handles tool requests. Construct with New and mount Router.
type Server struct {
	analyzer *project.Analyzer
	manager  *pkgmgr.Manager
	logger   *log.Logger
}

// New creates a server over the given analyzer and package manager.
func New(analyzer *project.Analyzer, manager *pkgmgr.Manager, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	return &Server{analyzer: analyzer, manager: manager, logger: logger}
}

// Router builds the HTTP handler with request-ID, logging, and recovery
// middleware applied.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID, s.logRequests, s.recoverPanics)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1/tools", func(r chi.Router) {
		r.Post("/analyze_project_dependencies", s.handleAnalyze)
		r.Post("/get_package_metadata", s.handleMetadata)
		r.Post("/search_packages", s.handleSearch)
		r.Post("/check_package_compatibility", s.handleCheck)
		r.Post("/get_latest_version", s.handleLatest)
	})
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type analyzeRequest struct {
	ProjectPath string `json:"project_path"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if !s.decode(w, r, &req) {
		return
	}

	info, err := s.analyzer.Analyze(req.ProjectPath)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

type metadataRequest struct {
	PackageName string `json:"package_name"`
	VersionSpec string `json:"version_spec"`
}

type metadataResponse struct {
	*pkgmgr.PackageInfo
	InstallHint string `json:"install_hint"`
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	var req metadataRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := pkgerrors.ValidatePythonPackageName(req.PackageName); err != nil {
		s.writeError(w, r, err)
		return
	}

	info, err := s.manager.GetPackageInfo(r.Context(), req.PackageName, req.VersionSpec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metadataResponse{
		PackageInfo: info,
		InstallHint: pkgmgr.InstallHint(req.PackageName, req.VersionSpec),
	})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	// PythonVersion is an advisory hint; results are not filtered by it.
	PythonVersion string `json:"python_version"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req := searchRequest{Limit: 10}
	if !s.decode(w, r, &req) {
		return
	}

	results, err := s.manager.SearchPackages(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

type checkRequest struct {
	NewPackage  string `json:"new_package"`
	VersionSpec string `json:"version_spec"`
	ProjectPath string `json:"project_path"`
}

func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	var req checkRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := pkgerrors.ValidatePythonPackageName(req.NewPackage); err != nil {
		s.writeError(w, r, err)
		return
	}

	info, err := s.analyzer.Analyze(req.ProjectPath)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.manager.CheckCompatibility(r.Context(), info.Dependencies, req.NewPackage, req.VersionSpec)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

type latestRequest struct {
	PackageName     string `json:"package_name"`
	AllowPrerelease bool   `json:"allow_prerelease"`
}

func (s *Server) handleLatest(w http.ResponseWriter, r *http.Request) {
	var req latestRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := pkgerrors.ValidatePythonPackageName(req.PackageName); err != nil {
		s.writeError(w, r, err)
		return
	}

	latest, err := s.manager.GetLatestVersion(r.Context(), req.PackageName, req.AllowPrerelease)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// decode reads the JSON body into dst. An empty body leaves dst at its
// defaults. Reports false after writing the error response.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	s.writeError(w, r, pkgerrors.Wrap(pkgerrors.ErrCodeInvalidInput, err, "invalid request body"))
	return false
}

type errorResponse struct {
	Error string         `json:"error"`
	Code  pkgerrors.Code `json:"code,omitempty"`
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := pkgerrors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case pkgerrors.ErrCodeInvalidInput, pkgerrors.ErrCodeInvalidPackage,
		pkgerrors.ErrCodeInvalidSpec, pkgerrors.ErrCodeInvalidPath:
		status = http.StatusBadRequest
	case pkgerrors.ErrCodeNetwork, pkgerrors.ErrCodeNotFound:
		status = http.StatusBadGateway
	}

	requestLogger(r, s.logger).Error("tool request failed", "status", status, "err", err)
	writeJSON(w, status, errorResponse{Error: pkgerrors.UserMessage(err), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
