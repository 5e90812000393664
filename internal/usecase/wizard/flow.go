// Package wizard implements the schema-driven creation wizard for
// credentials and vector stores as a pure reducer over an immutable Session.
package wizard

// Flow selects which entity the wizard creates.
type Flow int

const (
	FlowCredential Flow = iota + 1
	FlowVectorStore
)

// String returns the flow identifier used in logs and answers files.
func (f Flow) String() string {
	switch f {
	case FlowCredential:
		return "credential"
	case FlowVectorStore:
		return "vectorstore"
	default:
		return "unknown"
	}
}

// Subject returns the human name of the created entity.
func (f Flow) Subject() string {
	if f == FlowVectorStore {
		return "vector store"
	}
	return "credential"
}

// ParseFlow maps a flow identifier back to a Flow.
func ParseFlow(s string) (Flow, bool) {
	switch s {
	case "credential", "credentials":
		return FlowCredential, true
	case "vectorstore", "vector-store", "vector_store", "vectorstores":
		return FlowVectorStore, true
	}
	return 0, false
}

// StepKind is the meaning of a step within a flow.
type StepKind int

const (
	StepSelectProvider StepKind = iota + 1
	StepSelectAuthType
	StepConfigure
	StepReview
)

// StepCount is the number of steps in every flow.
const StepCount = 3

var flowSteps = map[Flow][StepCount]StepKind{
	FlowCredential:  {StepSelectProvider, StepSelectAuthType, StepConfigure},
	FlowVectorStore: {StepSelectProvider, StepConfigure, StepReview},
}

// StepKind returns the kind of the 1-based step in the flow.
func (f Flow) StepKind(step int) StepKind {
	steps, ok := flowSteps[f]
	if !ok || step < 1 || step > StepCount {
		return 0
	}
	return steps[step-1]
}

// SchemaStep is the step whose entry loads the field schema.
func (f Flow) SchemaStep() int {
	if f == FlowVectorStore {
		return 2
	}
	return 3
}

// StepNames returns display names for the step indicator.
func (f Flow) StepNames() []string {
	names := make([]string, 0, StepCount)
	for i := 1; i <= StepCount; i++ {
		names = append(names, f.StepKind(i).String())
	}
	return names
}

func (k StepKind) String() string {
	switch k {
	case StepSelectProvider:
		return "Select Provider"
	case StepSelectAuthType:
		return "Authentication"
	case StepConfigure:
		return "Configure"
	case StepReview:
		return "Review & Create"
	default:
		return "Unknown"
	}
}
