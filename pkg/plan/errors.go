package plan

import (
	"fmt"
	"strings"
)

// BuildErrorKind identifies why a build failed.
type BuildErrorKind string

const (
	KindDuplicateNodeID     BuildErrorKind = "DuplicateNodeId"
	KindNoEntryPoint        BuildErrorKind = "NoEntryPoint"
	KindMultipleEntryPoints BuildErrorKind = "MultipleEntryPoints"
	KindUnbalancedBoundary  BuildErrorKind = "UnbalancedBoundary"
	KindCycleDetected       BuildErrorKind = "CycleDetected"
	KindInvalidEdge         BuildErrorKind = "InvalidEdge"
	KindInvalidDefinition   BuildErrorKind = "InvalidDefinition"
)

// BuildError is returned when a definition cannot be compiled. No partial
// plan is ever returned alongside a BuildError.
type BuildError struct {
	Kind    BuildErrorKind
	Message string
	NodeIDs []string
}

func (e *BuildError) Error() string {
	if len(e.NodeIDs) > 0 {
		return fmt.Sprintf("build failed (%s): %s [%s]", e.Kind, e.Message, strings.Join(e.NodeIDs, ", "))
	}
	return fmt.Sprintf("build failed (%s): %s", e.Kind, e.Message)
}

func buildErr(kind BuildErrorKind, format string, args ...interface{}) *BuildError {
	return &BuildError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
