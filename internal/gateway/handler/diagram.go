package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/KingRain/Parsec/internal/diagram"
	"github.com/KingRain/Parsec/internal/mermaid"
)

type diagramRequest struct {
	FileContent string   `json:"fileContent"`
	FileName    string   `json:"fileName"`
	FileType    string   `json:"fileType"`
	FilePaths   []string `json:"filePaths"`
	DetailLevel string   `json:"detailLevel"`
}

type diagramResponse struct {
	Diagram  string       `json:"diagram"`
	Type     mermaid.Kind `json:"type"`
	Fallback bool         `json:"fallback,omitempty"`
}

// GenerateDiagram diagrams either a set of file paths (when filePaths is
// present) or one file's content. The markup is always sanitized; a failed
// generation still answers 200 with a fallback diagram.
func (h *Handler) GenerateDiagram(w http.ResponseWriter, r *http.Request) {
	var req diagramRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.FilePaths != nil {
		h.architecture(w, r.Context(), diagram.ArchitectureRequest{
			FilePaths:   req.FilePaths,
			DetailLevel: diagram.ParseDetailLevel(req.DetailLevel),
		})
		return
	}

	raw, err := h.diagrams.File(r.Context(), diagram.FileRequest{
		Content: req.FileContent,
		Name:    req.FileName,
		Type:    req.FileType,
	})
	if errors.Is(err, diagram.ErrNoContent) {
		writeError(w, http.StatusBadRequest, "File content is required")
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("file", req.FileName).Warn("file diagram generation failed")
		writeJSON(w, http.StatusOK, diagramResponse{
			Diagram:  mermaid.ErrorDiagram("Failed to generate diagram"),
			Type:     mermaid.KindFlowchart,
			Fallback: true,
		})
		return
	}
	writeJSON(w, http.StatusOK, sanitized(raw))
}

// Architecture lists the repository's files and diagrams them.
func (h *Handler) Architecture(w http.ResponseWriter, r *http.Request) {
	owner, repo, err := repoParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing owner or repo parameter")
		return
	}
	files, err := h.gh.ListFiles(r.Context(), owner, repo, h.maxFiles)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"owner": owner, "repo": repo}).Warn("list files")
		status, msg := githubStatus(err, "Failed to fetch repository contents")
		writeError(w, status, msg)
		return
	}
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	h.architecture(w, r.Context(), diagram.ArchitectureRequest{
		FilePaths:   paths,
		DetailLevel: diagram.ParseDetailLevel(r.URL.Query().Get("detail")),
	})
}

func (h *Handler) architecture(w http.ResponseWriter, ctx context.Context, req diagram.ArchitectureRequest) {
	raw, err := h.diagrams.Architecture(ctx, req)
	if errors.Is(err, diagram.ErrNoFiles) {
		writeError(w, http.StatusBadRequest, "Invalid input: expected array of file paths")
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("files", len(req.FilePaths)).Warn("architecture generation failed")
		writeJSON(w, http.StatusOK, diagramResponse{
			Diagram:  mermaid.FallbackDiagram(),
			Type:     mermaid.KindFlowchart,
			Fallback: true,
		})
		return
	}
	writeJSON(w, http.StatusOK, sanitized(raw))
}

func sanitized(raw string) diagramResponse {
	res := mermaid.Sanitize(raw)
	return diagramResponse{Diagram: res.Diagram, Type: res.Kind, Fallback: res.Fallback}
}
