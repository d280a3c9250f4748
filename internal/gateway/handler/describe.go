package handler

import (
	"encoding/json"
	"net/http"

	"github.com/KingRain/Parsec/internal/describe"
)

type descriptionsRequest struct {
	Packages string `json:"packages"`
}

type descriptionsResponse struct {
	Descriptions map[string]string `json:"descriptions"`
}

// PackageDescriptions answers {packages: "a,b"} with a description per
// package name.
func (h *Handler) PackageDescriptions(w http.ResponseWriter, r *http.Request) {
	var req descriptionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	names := describe.ParseList(req.Packages)
	if len(names) == 0 {
		writeError(w, http.StatusBadRequest, "Packages list is required")
		return
	}
	descs, err := h.describer.Describe(r.Context(), names)
	if err != nil {
		h.log.WithError(err).Warn("package descriptions")
		writeError(w, http.StatusInternalServerError, "Failed to process package descriptions")
		return
	}
	writeJSON(w, http.StatusOK, descriptionsResponse{Descriptions: descs})
}
