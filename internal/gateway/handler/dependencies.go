package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/KingRain/Parsec/internal/deps"
	"github.com/KingRain/Parsec/internal/enrich"
	"github.com/KingRain/Parsec/internal/github"
)

const (
	streamWriteWait = 10 * time.Second
	streamPongWait  = 60 * time.Second
	streamPingEvery = (streamPongWait * 9) / 10
)

var streamUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type dependenciesBody struct {
	Stage   enrich.Stage  `json:"stage"`
	Records []deps.Record `json:"records"`
}

type streamMessage struct {
	Type       string        `json:"type"`
	AnalysisID string        `json:"analysisId"`
	Stage      enrich.Stage  `json:"stage,omitempty"`
	Records    []deps.Record `json:"records,omitempty"`
	Message    string        `json:"message,omitempty"`
}

// loadRecords fetches the manifest and extracts its dependency records.
func (h *Handler) loadRecords(ctx context.Context, owner, repo string) ([]deps.Record, error) {
	raw, err := h.gh.FetchManifest(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	return deps.ExtractJSON(raw), nil
}

func manifestMessage(err error) (int, string) {
	if errors.Is(err, github.ErrManifestNotFound) {
		return http.StatusNotFound, "No package.json found in this repository"
	}
	return http.StatusInternalServerError, "Failed to load dependencies"
}

// Dependencies runs the whole enrichment and answers with the last
// snapshot.
func (h *Handler) Dependencies(w http.ResponseWriter, r *http.Request) {
	owner, repo, err := repoParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing owner or repo parameter")
		return
	}
	log := h.log.WithFields(logrus.Fields{"owner": owner, "repo": repo})

	records, err := h.loadRecords(r.Context(), owner, repo)
	if err != nil {
		log.WithError(err).Warn("load manifest")
		status, msg := manifestMessage(err)
		writeError(w, status, msg)
		return
	}
	snap, err := h.pipeline.Final(r.Context(), records)
	if err != nil {
		log.WithError(err).Warn("enrichment interrupted")
		writeError(w, http.StatusInternalServerError, "Failed to load dependencies")
		return
	}
	if snap.Records == nil {
		snap.Records = []deps.Record{}
	}
	writeJSON(w, http.StatusOK, dependenciesBody{Stage: snap.Stage, Records: snap.Records})
}

// DependenciesStream pushes every pipeline snapshot over a WebSocket as it
// is produced, then a "done" message. Closing the socket cancels the
// analysis.
func (h *Handler) DependenciesStream(w http.ResponseWriter, r *http.Request) {
	owner, repo, err := repoParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing owner or repo parameter")
		return
	}

	conn, err := streamUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	id := uuid.NewString()
	log := h.log.WithFields(logrus.Fields{"owner": owner, "repo": repo, "analysis": id})

	if err := conn.SetReadDeadline(time.Now().Add(streamPongWait)); err != nil {
		log.WithError(err).Warn("stream set read deadline failed")
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	writeCh := make(chan streamMessage, 8)
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(streamPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out, ok := <-writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
					cancel()
					return
				}
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					cancel()
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
					cancel()
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					cancel()
					return
				}
			}
		}
	}()

	// The client sends nothing; reading only notices it leaving.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				cancel()
				return
			}
		}
	}()

	push := func(m streamMessage) bool {
		m.AnalysisID = id
		select {
		case writeCh <- m:
			return true
		case <-ctx.Done():
			return false
		}
	}

	records, err := h.loadRecords(ctx, owner, repo)
	if err != nil {
		log.WithError(err).Warn("load manifest")
		_, msg := manifestMessage(err)
		push(streamMessage{Type: "error", Message: msg})
	} else {
		for snap := range h.pipeline.Run(ctx, records) {
			if !push(streamMessage{Type: "snapshot", Stage: snap.Stage, Records: snap.Records}) {
				break
			}
		}
		if ctx.Err() == nil {
			push(streamMessage{Type: "done"})
		} else {
			log.Debug("stream canceled by client")
		}
	}
	close(writeCh)
	<-writerDone
}
