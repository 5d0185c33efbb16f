package stubapi

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"
)

const maxUploadSize = 10 << 20

var allowedExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".tiff": true, ".pdf": true,
}

// RegisterMedicineRoutes registers the protected extraction route
func (h *Handler) RegisterMedicineRoutes(r *mux.Router) {
	r.HandleFunc("/medicine/extract", h.extract).Methods(http.MethodPost)
}

// extract returns a fixed extraction result for any accepted upload.
// The OCR pipeline is not part of the stub.
func (h *Handler) extract(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	username, err := UsernameFromContext(r.Context())
	if err != nil {
		writeUnauthorized(w, "Not authenticated")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize+1<<20)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, ValidationResponse{Detail: []ValidationError{{
			Loc: []string{"body", "file"}, Msg: "Field required", Type: "missing",
		}}})
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedExtensions[ext] {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Detail: "Invalid file type. Allowed: " + strings.Join(sortedExtensions(), ", "),
		})
		return
	}

	size, err := io.Copy(io.Discard, file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: "Failed to read upload"})
		return
	}
	if size > maxUploadSize {
		writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{
			Detail: fmt.Sprintf("File too large. Maximum size: %dMB", maxUploadSize>>20),
		})
		return
	}
	if size == 0 {
		writeJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Detail: "No text could be extracted from the PDF/DOCX."})
		return
	}

	h.users.RecordVisit(username)

	medicines := []ExtractedMedicine{
		{
			OriginalName:    "Amoxicilin 500mg",
			MatchedName:     "amoxicillin",
			ConfidenceScore: 94,
			RxNormValidated: true,
			RxCUI:           "723",
			RxNormScore:     0.97,
			Details:         map[string]any{"dosage": "500mg", "frequency": "3 times daily"},
		},
		{
			OriginalName: "Vit D3",
			Details:      map[string]any{},
		},
	}
	found := 0
	for _, m := range medicines {
		if m.MatchedName != "" {
			found++
		}
	}

	writeJSON(w, http.StatusOK, ExtractionResponse{
		Success:             true,
		Message:             "Medicine extraction completed successfully",
		ExtractedText:       fmt.Sprintf("Rx (%s)\nAmoxicilin 500mg TID\nVit D3", header.Filename),
		Medicines:           medicines,
		ProcessingTime:      float64(time.Since(start).Milliseconds()) / 1000,
		TotalMedicinesFound: found,
	})
}

func sortedExtensions() []string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
