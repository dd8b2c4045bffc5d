package harness

// Final is the machine state when a scenario run stopped.
type Final struct {
	Halted   bool  `json:"halted"`
	State    int   `json:"state"`
	Position int64 `json:"position"`
	Bit      int   `json:"bit"`
	Steps    int64 `json:"steps"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall success: every expectation matched.
	Pass bool `json:"pass"`

	// Errors contains expectation failures. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Trace is the table trace of the run, used for golden comparison.
	Trace string `json:"trace"`

	// Final is nil when the machine could not be loaded.
	Final *Final `json:"final,omitempty"`

	// Tape is the tape file contents after the run.
	Tape string `json:"tape,omitempty"`

	// Warnings are the parser warnings of the transition table.
	Warnings []string `json:"warnings,omitempty"`

	// ErrorCode and Err describe the load or run failure, if any.
	ErrorCode string `json:"error_code,omitempty"`
	Err       error  `json:"-"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Errors: []string{},
	}
}

// AddError adds an expectation failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
