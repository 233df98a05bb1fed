package submission

// FormView is what the controller can see and change of one form instance.
type FormView interface {
	// Field returns the raw value of a named input, "" when absent.
	Field(name string) string
	// Checked reports whether a named checkbox is ticked.
	Checked(name string) bool
	// SetBusy disables the submit control and shows the loading indicator,
	// or restores the idle label.
	SetBusy(busy bool)
	ShowError(msg string)
	ShowSuccess(s Success)
}

// Success is what the form shows after a delivered submission.
type Success struct {
	Message     string `json:"message"`
	RedirectURL string `json:"redirect_url,omitempty"`
	ResetFields bool   `json:"reset"`
	HideForm    bool   `json:"hide_form"`
}
