package tooltrack

import "fmt"

// RegistryError wraps a registry-layer failure with the component and
// action that produced it, grounded on the teacher's ToolRegistryError
// pattern (component/action/message plus %w-wrapped cause).
type RegistryError struct {
	Component string
	Action    string
	Message   string
	Err       error
}

func (e *RegistryError) Error() string {
	return fmt.Sprintf("%s: %s: %s: %v", e.Component, e.Action, e.Message, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}
