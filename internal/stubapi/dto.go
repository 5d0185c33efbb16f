package stubapi

// SignupRequest is the JSON body of POST /auth/signup.
type SignupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// UserResponse is the created-user payload.
type UserResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Visits   int    `json:"visits"`
}

// TokenResponse is the body of a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// ErrorResponse carries a human readable explanation in detail.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// ValidationError mirrors one entry of a request validation failure list.
type ValidationError struct {
	Loc  []string `json:"loc"`
	Msg  string   `json:"msg"`
	Type string   `json:"type"`
}

// ValidationResponse is returned with 422 when the request body is invalid.
type ValidationResponse struct {
	Detail []ValidationError `json:"detail"`
}

// ExtractedMedicine is one medicine found in an uploaded prescription.
type ExtractedMedicine struct {
	OriginalName    string         `json:"original_name"`
	MatchedName     string         `json:"matched_name,omitempty"`
	ConfidenceScore float64        `json:"confidence_score"`
	RxNormValidated bool           `json:"rxnorm_validated"`
	RxCUI           string         `json:"rxcui,omitempty"`
	RxNormScore     float64        `json:"rxnorm_score"`
	Details         map[string]any `json:"details"`
}

// ExtractionResponse is the body of POST /medicine/extract.
type ExtractionResponse struct {
	Success             bool                `json:"success"`
	Message             string              `json:"message"`
	ExtractedText       string              `json:"extracted_text"`
	Medicines           []ExtractedMedicine `json:"medicines"`
	ProcessingTime      float64             `json:"processing_time"`
	TotalMedicinesFound int                 `json:"total_medicines_found"`
}
