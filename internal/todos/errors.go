package todos

const (
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
)

// ActionError is a failed mutation. Its message is the alert shown to the user;
// the cause is kept for logs.
type ActionError struct {
	Action string
	Err    error
}

func (e *ActionError) Error() string {
	return "Something went wrong when trying to " + e.Action + " To Do"
}

func (e *ActionError) Unwrap() error { return e.Err }
