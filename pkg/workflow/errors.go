package workflow

import "errors"

var (
	// ErrNoSelection is returned by Submit when no action form is open.
	ErrNoSelection = errors.New("no proposal selected")
	// ErrMissingCredential means the validator wallet or credential is blank.
	ErrMissingCredential = errors.New("validator wallet and credential are required")
	// ErrMissingReason means a rejection was submitted without a reason.
	ErrMissingReason = errors.New("a reason is required to reject")
	// ErrAlreadyFinalized means the proposal is executed or rejected.
	ErrAlreadyFinalized = errors.New("proposal already finalized")
)
