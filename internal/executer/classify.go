package executer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/acarl005/stripansi"
	"github.com/sudankdk/refix-sandbox/internal/docker"
	"github.com/sudankdk/refix-sandbox/internal/languages"
	"github.com/sudankdk/refix-sandbox/internal/model"
)

const maxOutputBytes = 64 * 1024

// Outcome is everything observed about one container run.
type Outcome struct {
	LaunchErr error // create, populate or start failed; nothing ran
	WaitErr   error
	ExitCode  int64
	Log       string
	LogErr    error
}

// Classify turns an outcome into a verdict.
//
// Failure markers are checked before success markers because banner text can
// mention passing tests in a failing run. The exit code outranks the markers
// when they disagree: a failure word in a run that exited 0 and reported
// passes is a success, and a success word in a run that exited nonzero is
// indeterminate.
func Classify(p languages.Profile, o Outcome) model.ExecutionResult {
	if o.LaunchErr != nil {
		return result(model.StatusError, o.LaunchErr.Error())
	}

	if o.WaitErr != nil {
		msg := o.WaitErr.Error()
		if !errors.Is(o.WaitErr, docker.ErrTimeout) {
			msg = "container did not finish cleanly: " + msg
		}
		return result(model.StatusError, withLogs(msg, o))
	}

	clean := strings.ToLower(stripansi.Strip(o.Log))
	failed := containsAny(clean, p.FailureMarkers)
	passed := containsAny(clean, p.SuccessMarkers)

	switch {
	case failed && o.ExitCode != 0:
		return result(model.StatusFailed, tail(o.Log))
	case passed && o.ExitCode == 0:
		return result(model.StatusSuccess, tail(o.Log))
	}

	note := fmt.Sprintf("could not determine the test outcome (exit code %d)", o.ExitCode)
	return result(model.StatusError, withLogs(note, o))
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if m != "" && strings.Contains(s, strings.ToLower(m)) {
			return true
		}
	}
	return false
}

func withLogs(msg string, o Outcome) string {
	var b strings.Builder
	b.WriteString(msg)
	if o.LogErr != nil {
		fmt.Fprintf(&b, "\n(log collection failed: %v)", o.LogErr)
	}
	if o.Log != "" {
		b.WriteString("\n\n--- container logs ---\n")
		b.WriteString(tail(o.Log))
	}
	return b.String()
}

// tail keeps the end of a long log; test runners print the summary last.
// Notes are added around the tail, never cut by it.
func tail(log string) string {
	if len(log) <= maxOutputBytes {
		return log
	}
	kept := strings.ToValidUTF8(log[len(log)-maxOutputBytes:], "")
	return fmt.Sprintf("... (output truncated, last %d KiB shown)\n%s", maxOutputBytes/1024, kept)
}

func result(status model.Status, output string) model.ExecutionResult {
	if output == "" {
		output = fmt.Sprintf("run finished with status %s and produced no output", status)
	}
	return model.ExecutionResult{Status: status, Output: output}
}
