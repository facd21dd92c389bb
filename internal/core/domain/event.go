package domain

// FormEventKind identifies a form lifecycle change.
type FormEventKind string

// Form events, in the order a typical session raises them.
const (
	FormEventCasesLoaded     FormEventKind = "cases_loaded"
	FormEventCaseSelected    FormEventKind = "case_selected"
	FormEventExistingFound   FormEventKind = "existing_found"
	FormEventExistingCleared FormEventKind = "existing_cleared"
	FormEventChanged         FormEventKind = "changed"
	FormEventSaved           FormEventKind = "saved"
	FormEventSubmitted       FormEventKind = "submitted"
	FormEventViewersReset    FormEventKind = "viewers_reset"
	FormEventCleared         FormEventKind = "cleared"
)

// FormEvent is delivered to form subscribers.
type FormEvent struct {
	Kind     FormEventKind
	CaseID   string
	Existing *SubmissionRecord
	Result   *SubmitResult
	Err      error
}

// FormListener receives form events on the caller's goroutine, except
// FormEventSaved which arrives from the autosave timer.
type FormListener func(FormEvent)
