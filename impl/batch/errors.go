package batch

import "fmt"

// Phases of a transfer that can fail.
const (
	PhasePull = "pull"
	PhaseSave = "save"
)

// TransferError records that one step of transferring one image failed. It is
// recorded in the image's Outcome and never stops the batch.
type TransferError struct {
	Phase string
	Ref   string
	Err   error
}

func (e *TransferError) Error() string {
	return fmt.Sprintf("%s %s failed: %s", e.Phase, e.Ref, e.Err)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}
