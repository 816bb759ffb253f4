package handlers

import (
	"net/http"
	"strconv"

	"github.com/kozaktomas/backdrop/internal/constants"
	"github.com/kozaktomas/backdrop/internal/database"
	"github.com/kozaktomas/backdrop/internal/fingerprint"
)

const maxRunsLimit = 200

// RunsHandler lists the run history.
type RunsHandler struct {
	recorder database.RunRecorder
}

// NewRunsHandler creates a new runs handler. recorder may be nil.
func NewRunsHandler(recorder database.RunRecorder) *RunsHandler {
	return &RunsHandler{recorder: recorder}
}

// List handles GET /api/v1/runs?limit=N. ?subject=<fingerprint> keeps only
// runs on a visually similar subject.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := constants.DefaultRunsLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunsLimit)
	}

	var subject uint64
	filter := r.URL.Query().Get("subject")
	if filter != "" {
		hash, err := fingerprint.ParseHex(filter)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		subject = hash
	}

	runs := []database.Run{}
	if h.recorder != nil {
		fetch := limit
		if filter != "" {
			// filter over the widest window, then cut to limit
			fetch = maxRunsLimit
		}
		recent, err := h.recorder.Recent(r.Context(), fetch)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to load run history")
			return
		}
		for _, run := range recent {
			if len(runs) == limit {
				break
			}
			if filter != "" && !similarSubject(run, subject) {
				continue
			}
			runs = append(runs, run)
		}
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"runs":  runs,
		"count": len(runs),
	})
}

func similarSubject(run database.Run, subject uint64) bool {
	hash, err := fingerprint.ParseHex(run.SubjectHash)
	if err != nil {
		return false
	}
	return fingerprint.Similar(hash, subject, fingerprint.DefaultDistance)
}
