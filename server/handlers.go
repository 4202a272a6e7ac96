package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"GenreFM/config"
	"GenreFM/core/classifier"
	"GenreFM/core/pipeline"
	"GenreFM/logger"
	"GenreFM/model"
	"GenreFM/repository"

	"github.com/dustin/go-humanize"
	"github.com/gorilla/mux"
)

// Classifier runs one upload through the genre pipeline. *pipeline.Pipeline
// implements it.
type Classifier interface {
	Classify(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
}

// ModelSource exposes the loaded classifier. *classifier.Holder implements it.
type ModelSource interface {
	Current() *classifier.Classifier
	Reloads() int64
}

// ObjectReader fetches archived uploads. *storage.Store implements it.
type ObjectReader interface {
	Get(ctx context.Context, key string) ([]byte, error)
}

// APIHandler serves the prediction endpoint and the JSON API.
type APIHandler struct {
	pipeline Classifier
	models   ModelSource
	history  repository.ClassificationRepository
	objects  ObjectReader
	cfg      *config.Config
}

// NewAPIHandler creates the API handler. history and objects may be nil when
// the corresponding feature is disabled.
func NewAPIHandler(
	p Classifier,
	models ModelSource,
	history repository.ClassificationRepository,
	objects ObjectReader,
	cfg *config.Config,
) *APIHandler {
	return &APIHandler{
		pipeline: p,
		models:   models,
		history:  history,
		objects:  objects,
		cfg:      cfg,
	}
}

// PredictHandler classifies the audio file sent in the multipart field "file".
func (h *APIHandler) PredictHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes())

	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "File too large, limit is "+humanize.IBytes(uint64(tooLarge.Limit)), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "No file part", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		// A part without a filename is kept as a plain form value.
		if _, ok := r.MultipartForm.Value["file"]; ok {
			http.Error(w, "No selected file", http.StatusBadRequest)
			return
		}
		http.Error(w, "No file part", http.StatusBadRequest)
		return
	}
	defer file.Close()

	if header.Filename == "" {
		http.Error(w, "No selected file", http.StatusBadRequest)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, "Failed to read uploaded file", http.StatusBadRequest)
		return
	}

	logger.Info("file received",
		logger.String("filename", header.Filename),
		logger.String("size", humanize.Bytes(uint64(len(data)))))

	res, err := h.pipeline.Classify(r.Context(), pipeline.Input{Filename: header.Filename, Data: data})
	if err != nil {
		logger.Error("prediction failed", logger.String("filename", header.Filename), logger.ErrorField(err))
		http.Error(w, "Failed to classify audio file", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, model.PredictResponse{
		Prediction:   res.Prediction.Label,
		ID:           res.ID,
		ClassIndex:   res.Prediction.Index,
		Scores:       res.Prediction.Scores,
		Features:     res.Features.Named(),
		BeatTimes:    res.BeatTimes,
		ModelVersion: res.ModelVersion,
		Cached:       res.Cached,
		ElapsedMs:    res.Elapsed.Milliseconds(),
	})
}

// GenresHandler lists the labels the classifier can produce.
func (h *APIHandler) GenresHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"genres": classifier.Genres()})
}

type modelResponse struct {
	classifier.Info
	Reloads int64 `json:"reloads"`
}

// ModelHandler describes the loaded model artifact.
func (h *APIHandler) ModelHandler(w http.ResponseWriter, r *http.Request) {
	clf := h.models.Current()
	if clf == nil {
		writeError(w, http.StatusServiceUnavailable, "no model loaded")
		return
	}
	writeJSON(w, http.StatusOK, modelResponse{Info: clf.Info(), Reloads: h.models.Reloads()})
}

// ClassificationsHandler returns recent classifications, newest first.
func (h *APIHandler) ClassificationsHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "classification history is disabled")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	rows, err := h.history.Recent(r.Context(), limit)
	if err != nil {
		logger.Error("list classifications", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to load classifications")
		return
	}
	if rows == nil {
		rows = []*model.Classification{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"items": rows})
}

// ClassificationStatsHandler returns the number of classifications per label.
func (h *APIHandler) ClassificationStatsHandler(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "classification history is disabled")
		return
	}
	counts, err := h.history.CountByLabel(r.Context())
	if err != nil {
		logger.Error("count classifications", logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to count classifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"counts": counts})
}

// ClassificationHandler returns one classification by id.
func (h *APIHandler) ClassificationHandler(w http.ResponseWriter, r *http.Request) {
	row, ok := h.lookupClassification(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (h *APIHandler) lookupClassification(w http.ResponseWriter, r *http.Request) (*model.Classification, bool) {
	if h.history == nil {
		writeError(w, http.StatusServiceUnavailable, "classification history is disabled")
		return nil, false
	}
	id := mux.Vars(r)["id"]
	row, err := h.history.GetByID(r.Context(), id)
	if err != nil {
		logger.Error("get classification", logger.String("id", id), logger.ErrorField(err))
		writeError(w, http.StatusInternalServerError, "failed to load classification")
		return nil, false
	}
	if row == nil {
		writeError(w, http.StatusNotFound, "classification not found")
		return nil, false
	}
	return row, true
}

// HealthHandler reports liveness and the active model version.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]interface{}{"status": "ok"}
	if clf := h.models.Current(); clf != nil {
		resp["model"] = clf.Version()
	} else {
		resp["status"] = "degraded"
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}
