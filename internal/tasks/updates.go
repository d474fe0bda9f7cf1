package tasks

import (
	"fmt"

	"github.com/desertthunder/pricepal/internal/formatter"
	"github.com/desertthunder/pricepal/internal/models"
)

// ProgressUpdate represents a progress event during a tracking submission.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Submission phase
	Message string // Human-readable message for display
	Err     error  // Set when Phase is Failed
	Data    any    // Optional phase-specific data for advanced UIs
}

// Submission phase enumeration
type Phase int

const (
	Idle Phase = iota
	Validating
	Submitting
	Notifying
	Done
	Failed
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Notifying:
		return "notifying"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return ""
	}
}

// Terminal reports whether no further updates follow p.
func (p Phase) Terminal() bool {
	return p == Done || p == Failed
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func validatingUpdate(raw string) ProgressUpdate {
	return ProgressUpdate{Phase: Validating, Message: fmt.Sprintf("Checking target price %q...", raw)}
}

func submittingUpdate(snap *models.ProductSnapshot, target float64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Submitting,
		Message: fmt.Sprintf("Adding %s at target %s...", snap.ProductName, formatter.FormatINR(target)),
		Data:    snap,
	}
}

func notifyingUpdate(email string) ProgressUpdate {
	return ProgressUpdate{Phase: Notifying, Message: fmt.Sprintf("Sending tracking confirmation to %s...", email)}
}

func doneUpdate(res *TrackingResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Done,
		Message: "Product added to cart! You'll be notified when price drops.",
		Data:    res,
	}
}

func failedUpdate(err error) ProgressUpdate {
	return ProgressUpdate{Phase: Failed, Message: err.Error(), Err: err}
}
