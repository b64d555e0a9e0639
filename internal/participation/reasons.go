package participation

import "strings"

// ReasonOther requires accompanying free text.
const ReasonOther = "Other"

// AttendanceDisapprovalReasons is the fixed reason set for attendance
// disapproval. The strings are displayed in reports and must not be reworded.
var AttendanceDisapprovalReasons = []string{
	"Act of Misconduct",
	"Late Arrival",
	"Left Early",
	"Did not sign the Community Service Form",
	"Did not sign attendance sheet (if any)",
	"Absent",
	"Not wearing the required uniform",
	"Full slot",
	ReasonOther,
}

// ValidateAttendanceReason checks reason against the fixed set and returns the
// string to store. "Other" must carry free text, which is appended.
func ValidateAttendanceReason(reason, detail string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", ErrReasonRequired
	}
	found := false
	for _, r := range AttendanceDisapprovalReasons {
		if r == reason {
			found = true
			break
		}
	}
	if !found {
		return "", ErrInvalidReason
	}
	if reason == ReasonOther {
		detail = strings.TrimSpace(detail)
		if detail == "" {
			return "", ErrReasonRequired
		}
		return ReasonOther + ": " + detail, nil
	}
	return reason, nil
}

// ValidateRegistrationReason checks the free-form registration disapproval
// reason: any non-blank text is accepted.
func ValidateRegistrationReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return "", ErrReasonRequired
	}
	return reason, nil
}
