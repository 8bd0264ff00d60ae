package dto

type ErrorResponse struct {
	Error string `json:"error"`
}

// ViolationResponse is one blueprint validation failure.
type ViolationResponse struct {
	Kind    string `json:"kind"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrorResponse carries every violation found in one pass so
// authors fix a draft in one round trip.
type ValidationErrorResponse struct {
	Error      string              `json:"error"`
	Violations []ViolationResponse `json:"violations"`
}
