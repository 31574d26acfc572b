package pipeline

import (
	"fmt"
)

// Stage is a state of the install pipeline. Stages are reached strictly in
// declaration order.
type Stage int

const (
	StageStart Stage = iota
	StagePlatformDetected
	StageResolved
	StageFetched
	StageVerified
	StageInstalled
	StageTested
	StageDone
)

var stageNames = [...]string{
	StageStart:            "Start",
	StagePlatformDetected: "PlatformDetected",
	StageResolved:         "Resolved",
	StageFetched:          "Fetched",
	StageVerified:         "Verified",
	StageInstalled:        "Installed",
	StageTested:           "Tested",
	StageDone:             "Done",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// Error is the terminal Failed state. Stage is the stage that could not be
// reached.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("failed at %s: %v", e.Stage, e.Err)
}

// Unwrap returns the stage's failure.
func (e *Error) Unwrap() error {
	return e.Err
}

// Event reports a stage transition to an Observer. Err is set when the
// stage failed; Skipped when the stage was passed over by configuration.
type Event struct {
	Stage   Stage
	Detail  string
	Skipped bool
	Err     error
}

// Observer receives every transition of a run in order.
type Observer func(Event)
