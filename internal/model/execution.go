package model

type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusError   Status = "error"
)

// ExecutionRequest is the input to one sandbox run.
type ExecutionRequest struct {
	TestCode      string `json:"testCode"`
	CodeUnderTest string `json:"codeUnderTest"`
	Language      string `json:"language"`
}

type ExecutionResult struct {
	Status Status `json:"status"`
	Output string `json:"output"`
}

// ExitCode maps a verdict to a process exit code for the one-shot CLI.
func (r ExecutionResult) ExitCode() int {
	switch r.Status {
	case StatusSuccess:
		return 0
	case StatusFailed:
		return 1
	default:
		return 2
	}
}

// File is one source file written into a run's workspace.
type File struct {
	Name    string
	Content string
}
