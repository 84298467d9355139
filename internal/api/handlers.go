package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kingrea/releasekit/internal/branch"
	"github.com/kingrea/releasekit/internal/model"
	"github.com/kingrea/releasekit/internal/policy"
	"github.com/kingrea/releasekit/internal/release"
	"github.com/kingrea/releasekit/internal/render"
	"github.com/kingrea/releasekit/internal/storage"
	"github.com/kingrea/releasekit/internal/version"
)

type errorBody struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Count   int      `json:"count,omitempty"`
	Samples []string `json:"samples,omitempty"`
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       int    `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type compareRequest struct {
	Target string   `json:"target"`
	Known  []string `json:"known"`
}

type compareResponse struct {
	Target         version.Version    `json:"target"`
	Comparison     *version.Version   `json:"comparison,omitempty"`
	DocsComparison *version.Version   `json:"docs_comparison,omitempty"`
	Diagnostics    policy.Diagnostics `json:"diagnostics,omitempty"`
}

type branchPlanRequest struct {
	Target   string   `json:"target"`
	Branches []string `json:"branches"`
	Known    []string `json:"known"`
}

type branchPlanResponse struct {
	branch.Plan
	CreateBranch bool   `json:"create_branch"`
	HeadRef      string `json:"head_ref"`
}

type notesRequest struct {
	Target   string         `json:"target"`
	Snapshot model.Snapshot `json:"snapshot"`
}

type releasesResponse struct {
	Releases []storage.Release `json:"releases"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:        string(s.Status()),
		Version:       ProtocolVersion,
		UptimeSeconds: s.uptimeSeconds(),
	})
}

func (s *Server) handleCompare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !s.decode(w, r, &req) {
		return
	}
	known, err := parseKnown(req.Known)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.planner.Versions(req.Target, known)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, compareResponse{
		Target:         res.Target,
		Comparison:     res.Comparison,
		DocsComparison: res.DocsComparison,
		Diagnostics:    res.Diagnostics,
	})
}

func (s *Server) handleBranchPlan(w http.ResponseWriter, r *http.Request) {
	var req branchPlanRequest
	if !s.decode(w, r, &req) {
		return
	}
	target, err := version.Parse(req.Target)
	if err != nil {
		s.writeError(w, err)
		return
	}
	known, err := parseKnown(req.Known)
	if err != nil {
		s.writeError(w, err)
		return
	}
	settings := s.planner.Settings()
	plan := branch.DetermineReleaseBranch(target, req.Branches, known, settings.Branch)
	writeJSON(w, http.StatusOK, branchPlanResponse{
		Plan:         plan,
		CreateBranch: plan.ShouldCreate && settings.CreateBranches,
		HeadRef:      plan.HeadRef(),
	})
}

func (s *Server) handleNotes(w http.ResponseWriter, r *http.Request) {
	var req notesRequest
	if !s.decode(w, r, &req) {
		return
	}
	in := release.InputFromSnapshot(req.Target, req.Snapshot, s.tagPrefix)
	if repo := strings.TrimSpace(req.Snapshot.Repository); repo != "" {
		stored, err := s.releases.List(r.Context(), repo)
		if err != nil {
			s.writeError(w, err)
			return
		}
		in.EarlierReleases = append(in.EarlierReleases, storage.Records(stored)...)
	}
	res, err := s.planner.Plan(in)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleSaveRelease(w http.ResponseWriter, r *http.Request) {
	var rel storage.Release
	if !s.decode(w, r, &rel) {
		return
	}
	if err := s.releases.Save(r.Context(), rel); err != nil {
		s.writeError(w, err)
		return
	}
	saved, err := s.releases.Get(r.Context(), rel.Repository, rel.Version)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleListReleases(w http.ResponseWriter, r *http.Request) {
	list, err := s.releases.List(r.Context(), repoParam(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if list == nil {
		list = []storage.Release{}
	}
	writeJSON(w, http.StatusOK, releasesResponse{Releases: list})
}

func (s *Server) handleGetRelease(w http.ResponseWriter, r *http.Request) {
	rel, err := s.releases.Get(r.Context(), repoParam(r), chi.URLParam(r, "version"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func repoParam(r *http.Request) string {
	return chi.URLParam(r, "owner") + "/" + chi.URLParam(r, "name")
}

func parseKnown(raw []string) ([]version.Version, error) {
	out := make([]version.Version, 0, len(raw))
	for _, text := range raw {
		v, err := version.Parse(text)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// decode reads a bounded JSON body into dst, writing the error response
// itself when it fails.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "empty body"})
		return false
	}
	reader := http.MaxBytesReader(w, r.Body, s.settings.MaxBodyBytes)
	defer reader.Close()
	body, err := io.ReadAll(reader)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "payload exceeds limit"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unable to read body"})
		return false
	}
	if err := json.Unmarshal(body, dst); err != nil {
		if errors.Is(err, version.ErrInvalidVersion) {
			s.writeError(w, err)
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON"})
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	var violation *policy.Violation
	switch {
	case errors.As(err, &violation):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{
			Error:   violation.Message,
			Code:    violation.Code,
			Count:   violation.Count,
			Samples: violation.Samples,
		})
	case errors.Is(err, version.ErrInvalidVersion),
		errors.Is(err, render.ErrTemplate),
		errors.Is(err, storage.ErrInvalidRelease):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, storage.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "release not found"})
	default:
		s.logger.Error("api: request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
