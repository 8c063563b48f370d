package domain

// ErrorInfo is fault or validation data attached to a node. It is what the
// rendering collaborator reads to show an error badge.
type ErrorInfo struct {
	Status int    `json:"status,omitempty"`
	Code   string `json:"code,omitempty"`
	// Valid is false when a validation plugin rejected the current value.
	Valid *bool `json:"valid,omitempty"`
}

// IsZero reports whether no error is recorded.
func (e ErrorInfo) IsZero() bool {
	return e.Status == 0 && e.Code == "" && e.Valid == nil
}

// Failed reports whether the info describes a fault or a failed validation.
func (e ErrorInfo) Failed() bool {
	if e.Valid != nil {
		return !*e.Valid
	}
	return e.Status != 0 || e.Code != ""
}

// FromVerdict converts a validation verdict into error info.
func FromVerdict(v Verdict) ErrorInfo {
	valid := v.Status
	return ErrorInfo{Code: v.Code, Valid: &valid}
}
