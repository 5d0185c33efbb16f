// Package medicine uploads prescription images through an authorized session
// and decodes the extracted medicines.
package medicine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"mediscan-client/internal/session"
)

const (
	extractEndpoint = "/medicine/extract"
	uploadField     = "file"

	// MaxFileSize is the largest upload accepted.
	MaxFileSize = 10 << 20

	failureMessage = "Failed to extract medicine details"
)

// AllowedExtensions lists the accepted upload types.
var AllowedExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".pdf"}

// Medicine is one medicine found in a prescription.
type Medicine struct {
	OriginalName    string         `json:"original_name"`
	MatchedName     string         `json:"matched_name,omitempty"`
	ConfidenceScore float64        `json:"confidence_score"`
	RxNormValidated bool           `json:"rxnorm_validated"`
	RxCUI           string         `json:"rxcui,omitempty"`
	RxNormScore     float64        `json:"rxnorm_score"`
	Details         map[string]any `json:"details"`
}

// Matched reports whether the name was resolved to a known medicine.
func (m Medicine) Matched() bool { return m.MatchedName != "" }

// ExtractionResult is the decoded extraction response.
type ExtractionResult struct {
	Success             bool       `json:"success"`
	Message             string     `json:"message"`
	ExtractedText       string     `json:"extracted_text"`
	Medicines           []Medicine `json:"medicines"`
	ProcessingTime      float64    `json:"processing_time"`
	TotalMedicinesFound int        `json:"total_medicines_found"`
}

// Client sends prescriptions for extraction.
type Client struct {
	session *session.Client
}

// NewClient creates a Client over an established session client.
func NewClient(s *session.Client) *Client {
	return &Client{session: s}
}

// Extract uploads content under filename. Unsupported types and oversized
// files fail before any network call.
func (c *Client) Extract(ctx context.Context, filename string, content io.Reader) (*ExtractionResult, error) {
	if err := checkExtension(filename); err != nil {
		return nil, err
	}

	data, err := io.ReadAll(io.LimitReader(content, MaxFileSize+1))
	if err != nil {
		return nil, session.Classify(fmt.Errorf("read %s: %w", filepath.Base(filename), err), failureMessage)
	}
	if len(data) > MaxFileSize {
		return nil, localFailure(fmt.Sprintf("File too large. Maximum size: %dMB", MaxFileSize>>20))
	}
	if len(data) == 0 {
		return nil, localFailure("File is empty")
	}

	resp, err := c.session.Do(ctx, session.Request{
		Method:         http.MethodPost,
		Path:           extractEndpoint,
		Body:           session.Multipart(uploadField, filename, bytes.NewReader(data)),
		FailureMessage: failureMessage,
	})
	if err != nil {
		return nil, err
	}

	var result ExtractionResult
	if err := resp.JSON(&result); err != nil {
		return nil, session.Classify(err, failureMessage)
	}
	return &result, nil
}

// ExtractFile opens path and uploads it.
func (c *Client) ExtractFile(ctx context.Context, path string) (*ExtractionResult, error) {
	if err := checkExtension(path); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, localFailure(fmt.Sprintf("Cannot open %s", filepath.Base(path)), err)
	}
	defer f.Close()

	if info, err := f.Stat(); err == nil && info.Size() > MaxFileSize {
		return nil, localFailure(fmt.Sprintf("File too large. Maximum size: %dMB", MaxFileSize>>20))
	}
	return c.Extract(ctx, path, f)
}

func checkExtension(filename string) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !slices.Contains(AllowedExtensions, ext) {
		return localFailure("Invalid file type. Allowed: " + strings.Join(AllowedExtensions, ", "))
	}
	return nil
}

func localFailure(msg string, cause ...error) *session.Failure {
	f := &session.Failure{Kind: session.Unknown, Message: msg}
	if len(cause) > 0 {
		f.Err = cause[0]
	}
	return f
}
