package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/embryo-vision/go-embryo/dataset"
	"github.com/embryo-vision/go-embryo/images"
	"github.com/embryo-vision/go-embryo/models/model/preprocess"
	"github.com/embryo-vision/go-embryo/models/postprocess"
)

// ClassifyResponse is the JSON API response for a classified image.
type ClassifyResponse struct {
	// The predicted class label.
	Class string `json:"class"`
	// The top-1 probability.
	Confidence float32 `json:"confidence"`
	// Whether the confidence fell below the model's floor.
	LowConfidence bool `json:"low_confidence"`
	// The full distribution, ranked by probability.
	Probabilities []postprocess.ClassProbability `json:"probabilities"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type indexData struct {
	ModelName      string
	DatasetEnabled bool
	Error          string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.renderIndex(w, http.StatusOK, "")
}

func (s *Server) renderIndex(w http.ResponseWriter, status int, errMsg string) {
	w.WriteHeader(status)
	data := indexData{
		ModelName:      s.engine.Metadata().ModelName,
		DatasetEnabled: s.cfg.DatasetDir != "",
		Error:          errMsg,
	}
	if err := s.templates.ExecuteTemplate(w, "index.html", data); err != nil {
		log.Printf("render index: %v", err)
	}
}

// handleClassify serves the form submission and renders the result page.
func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	pred, userMsg, status := s.classifyUpload(w, r)
	if pred == nil {
		s.renderIndex(w, status, userMsg)
		return
	}

	result := Present(pred, s.engine.Metadata().ConfidenceFloor)
	if err := s.templates.ExecuteTemplate(w, "result.html", struct{ Result *Presentation }{result}); err != nil {
		log.Printf("render result: %v", err)
	}
}

// handleAPIClassify serves the JSON API.
func (s *Server) handleAPIClassify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
		return
	}

	pred, userMsg, status := s.classifyUpload(w, r)
	if pred == nil {
		writeJSON(w, status, errorResponse{Error: userMsg})
		return
	}

	floor := s.engine.Metadata().ConfidenceFloor
	writeJSON(w, http.StatusOK, ClassifyResponse{
		Class:         pred.Class,
		Confidence:    pred.Confidence,
		LowConfidence: pred.Confidence < floor,
		Probabilities: pred.Probabilities,
	})
}

// classifyUpload reads the multipart upload and runs the pipeline. On
// failure it returns a nil prediction with a user-facing message and the
// HTTP status to respond with.
func (s *Server) classifyUpload(w http.ResponseWriter, r *http.Request) (*postprocess.Prediction, string, int) {
	s.incrCounter("requests")

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.incrCounter("rejected_uploads")
		return nil, "Upload is not a valid form or exceeds the size limit", http.StatusBadRequest
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		s.incrCounter("rejected_uploads")
		return nil, "No image file provided; use 'image' as the form field name", http.StatusBadRequest
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.incrCounter("rejected_uploads")
		return nil, "Failed to read the uploaded file", http.StatusBadRequest
	}

	img, err := images.FromBytes(data)
	if err != nil {
		s.incrCounter("rejected_uploads")
		log.Printf("reject %s: %v", header.Filename, err)
		return nil, "The file is not a decodable JPEG, PNG, or WebP image", http.StatusBadRequest
	}

	pred, err := s.engine.Classify(r.Context(), img)
	if err != nil {
		return nil, s.classifyErrorMessage(header.Filename, err),
			classifyErrorStatus(err)
	}

	return pred, "", http.StatusOK
}

func (s *Server) classifyErrorMessage(filename string, err error) string {
	log.Printf("classify %s: %v", filename, err)
	switch {
	case errors.Is(err, images.ErrDecode):
		s.incrCounter("rejected_uploads")
		return "The image could not be decoded"
	case errors.Is(err, preprocess.ErrShape):
		s.incrCounter("rejected_uploads")
		return "The image could not be shaped for the model"
	default:
		s.incrCounter("inference_errors")
		return "Classification failed; please try again"
	}
}

// classifyErrorStatus maps pipeline errors to HTTP statuses: bad uploads
// are client errors, inference faults are server errors.
func classifyErrorStatus(err error) int {
	if errors.Is(err, images.ErrDecode) || errors.Is(err, preprocess.ErrShape) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) handleDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if s.cfg.DatasetDir == "" {
		http.NotFound(w, r)
		return
	}

	summary, _, err := dataset.Scan(s.cfg.DatasetDir)
	if err != nil {
		log.Printf("dataset scan: %v", err)
		http.Error(w, "Dataset directory could not be read", http.StatusInternalServerError)
		return
	}

	if err := s.templates.ExecuteTemplate(w, "dataset.html", struct{ Summary *dataset.Summary }{summary}); err != nil {
		log.Printf("render dataset: %v", err)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"model":  s.engine.Metadata().ModelName,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if s.prof == nil {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, s.prof.Stats())
}

func (s *Server) incrCounter(name string) {
	if s.prof != nil {
		s.prof.IncrCounter(name)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}
