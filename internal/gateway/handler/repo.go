package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/KingRain/Parsec/internal/github"
)

// Repos lists the signed-in user's repositories. Without a session, or
// with an expired one, the browser is sent back to the landing page.
func (h *Handler) Repos(w http.ResponseWriter, r *http.Request) {
	if github.TokenFrom(r.Context()) == "" {
		redirectError(w, r, "unauthorized")
		return
	}
	repos, err := h.gh.ListRepos(r.Context())
	if err != nil {
		if errors.Is(err, github.ErrUnauthorized) {
			h.clearSession(w)
			redirectError(w, r, "token_expired")
			return
		}
		h.log.WithError(err).Error("list repos")
		writeError(w, http.StatusInternalServerError, "Failed to fetch repositories")
		return
	}
	writeJSON(w, http.StatusOK, repos)
}

func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	u, err := h.gh.User(r.Context())
	if err != nil {
		status, msg := githubStatus(err, "Failed to fetch authenticated user")
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) Languages(w http.ResponseWriter, r *http.Request) {
	owner, repo, err := repoParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing owner or repo parameter")
		return
	}
	langs, err := h.gh.Languages(r.Context(), owner, repo)
	if err != nil {
		h.log.WithError(err).WithFields(logrus.Fields{"owner": owner, "repo": repo}).Warn("languages")
		status, msg := githubStatus(err, "Failed to fetch language data")
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, langs)
}

type fileBody struct {
	Path    string `json:"path"`
	Content string `json:"content"`
	Size    int64  `json:"size"`
}

// Contents returns a directory listing, or the decoded file at path.
func (h *Handler) Contents(w http.ResponseWriter, r *http.Request) {
	owner, repo, err := repoParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing owner or repo parameter")
		return
	}
	path := strings.Trim(r.URL.Query().Get("path"), "/")
	cs, err := h.gh.Contents(r.Context(), owner, repo, path)
	if err != nil {
		if !errors.Is(err, github.ErrFileTooLarge) {
			h.log.WithError(err).WithFields(logrus.Fields{"owner": owner, "repo": repo, "path": path}).Warn("contents")
		}
		status, msg := githubStatus(err, "Failed to fetch repository contents")
		writeError(w, status, msg)
		return
	}
	if cs.File != nil {
		writeJSON(w, http.StatusOK, fileBody{Path: cs.File.Path, Content: cs.File.Content, Size: cs.File.Size})
		return
	}
	items := cs.Items
	if items == nil {
		items = []github.FileItem{}
	}
	writeJSON(w, http.StatusOK, items)
}
