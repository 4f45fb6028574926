package render

import "fmt"

// RenderError reports a failure while producing an artifact
type RenderError struct {
	Stage  string
	Reason string
	Err    error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("render %s failed: %s", e.Stage, e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderError) Unwrap() error { return e.Err }

// MissingSlotError is raised by the template when a required slot has no field.
type MissingSlotError struct {
	Slot string
}

func (e *MissingSlotError) Error() string {
	return fmt.Sprintf("required slot %q has no matching field", e.Slot)
}

const (
	stageTemplate  = "template"
	stageTransform = "transform"
	stageRasterize = "rasterize"
	stageCSV       = "csv"
)
