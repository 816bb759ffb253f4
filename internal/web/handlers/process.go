package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/kozaktomas/backdrop/internal/constants"
	"github.com/kozaktomas/backdrop/internal/pipeline"
)

// ProcessHandler runs the removal pipeline for form submissions.
type ProcessHandler struct {
	pipeline *pipeline.Pipeline
}

// NewProcessHandler creates a new process handler.
func NewProcessHandler(p *pipeline.Pipeline) *ProcessHandler {
	return &ProcessHandler{pipeline: p}
}

// ProcessResponse is the JSON answer to one form submission.
type ProcessResponse struct {
	RunID               string `json:"run_id"`
	Backend             string `json:"backend"`
	Threshold           int    `json:"threshold"`
	ForegroundThreshold int    `json:"foreground_threshold"`
	BackgroundThreshold int    `json:"background_threshold"`
	ErodeSize           int    `json:"erode_size"`
	SubjectHash         string `json:"subject_hash,omitempty"`
	Width               int    `json:"width"`
	Height              int    `json:"height"`
	ProcessedURL        string `json:"processed_url,omitempty"`
	FinalURL            string `json:"final_url,omitempty"`
	SubjectError        string `json:"subject_error,omitempty"`
	BackgroundError     string `json:"background_error,omitempty"`
	Message             string `json:"message,omitempty"`
	DurationMs          int64  `json:"duration_ms"`
}

// Process handles POST /api/v1/process.
func (h *ProcessHandler) Process(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	threshold, err := parseThreshold(r.FormValue(constants.FieldThreshold))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	subject, subjectHeader, err := readFormFile(r, constants.FieldSubject)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(subject) == 0 {
		respondError(w, http.StatusBadRequest, "subject image is required")
		return
	}

	in := pipeline.Input{
		Subject:           subject,
		SubjectName:       subjectHeader.Filename,
		ReplaceBackground: parseBool(r.FormValue(constants.FieldReplaceBackground)),
		Threshold:         threshold,
	}
	// the background picker only exists while the toggle is on
	if in.ReplaceBackground {
		in.Background, _, err = readFormFile(r, constants.FieldBackground)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	log.WithFields(log.Fields{
		"subject":    sanitizeForLog(subjectHeader.Filename),
		"background": len(in.Background) > 0,
		"threshold":  threshold,
	}).Debug("Processing upload")

	res, err := h.pipeline.Run(r.Context(), in)
	if err != nil {
		switch {
		case errors.Is(err, pipeline.ErrNoSubject), errors.Is(err, pipeline.ErrInvalidThreshold):
			respondError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			// superseded by a newer submission; the client is usually gone
			respondError(w, http.StatusRequestTimeout, "request cancelled")
		default:
			respondError(w, http.StatusInternalServerError, fmt.Sprintf("processing failed: %v", err))
		}
		return
	}

	respondJSON(w, http.StatusOK, newProcessResponse(res))
}

func newProcessResponse(res *pipeline.Result) ProcessResponse {
	resp := ProcessResponse{
		RunID:               res.RunID,
		Backend:             res.Backend,
		Threshold:           res.Threshold,
		ForegroundThreshold: res.Options.ForegroundThreshold,
		BackgroundThreshold: res.Options.BackgroundThreshold,
		ErodeSize:           res.Options.ErodeSize,
		SubjectHash:         res.SubjectHash,
		Width:               res.Width,
		Height:              res.Height,
		SubjectError:        res.SubjectError,
		BackgroundError:     res.BackgroundError,
		Message:             res.Message,
		DurationMs:          res.Duration.Milliseconds(),
	}
	// the run id busts browser caches, the files themselves keep fixed names
	if res.ProcessedPath != "" {
		resp.ProcessedURL = outputURL(constants.ProcessedFileName, res.RunID)
	}
	if res.FinalPath != "" {
		resp.FinalURL = outputURL(constants.FinalFileName, res.RunID)
	}
	return resp
}

func outputURL(name, runID string) string {
	return "/outputs/" + name + "?v=" + runID
}

// parseThreshold parses the slider value, defaulting when it is absent.
func parseThreshold(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return constants.DefaultThreshold, nil
	}
	t, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("threshold must be an integer, got %q", s)
	}
	if err := pipeline.ValidateThreshold(t); err != nil {
		return 0, err
	}
	return t, nil
}

// parseBool accepts checkbox values ("on") as well as strconv booleans.
func parseBool(s string) bool {
	if strings.EqualFold(s, "on") {
		return true
	}
	b, _ := strconv.ParseBool(s)
	return b
}
