package lifecycle

import (
	"fmt"
	"strings"
)

// MinRemarkWords is the minimum word count for approval and transfer-acceptance remarks
const MinRemarkWords = 5

// RemarkValidation is the outcome of ValidateApprovalRemark
type RemarkValidation struct {
	Valid     bool   `json:"valid"`
	WordCount int    `json:"wordCount"`
	Message   string `json:"message,omitempty"`
}

// CountWords counts whitespace-delimited, non-empty tokens
func CountWords(text string) int {
	return len(strings.Fields(text))
}

// ValidateApprovalRemark gates project approval and transfer acceptance.
// Callers keep submission disabled while the result is not valid.
func ValidateApprovalRemark(text string) RemarkValidation {
	count := CountWords(text)
	if count >= MinRemarkWords {
		return RemarkValidation{Valid: true, WordCount: count}
	}
	return RemarkValidation{
		Valid:     false,
		WordCount: count,
		Message:   fmt.Sprintf("Remark must contain at least %d words (currently %d)", MinRemarkWords, count),
	}
}
