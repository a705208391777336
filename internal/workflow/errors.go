package workflow

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound         = errors.New("workflow: not found")
	ErrNotDraft         = errors.New("workflow: subscription is not in draft")
	ErrNotRunning       = errors.New("workflow: subscription is not running")
	ErrAlreadyCanceled  = errors.New("workflow: subscription already canceled")
	ErrAssetLotRequired = errors.New("workflow: service requires an asset lot")
	ErrLotNotInPool     = errors.New("workflow: lot does not belong to the service pool")
)

// DateError is a field-level violation of a single line's date or quantity
// constraints. It is checked before the exclusivity validator ever runs.
type DateError struct {
	LineID int64 // 0 for a line not yet created
	Reason string
}

func (e *DateError) Error() string {
	if e.LineID == 0 {
		return fmt.Sprintf("workflow: %s", e.Reason)
	}
	return fmt.Sprintf("workflow: line %d: %s", e.LineID, e.Reason)
}
