package workflow

import (
	"encoding/json"
	"fmt"

	"github.com/c360/coredata/errors"
	"github.com/c360/coredata/processor/enrich"
)

// Workflow is a named, versioned list of tasks.
type Workflow struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Version     uint16   `json:"version" yaml:"version"`
	Tags        []string `json:"tags" yaml:"tags"`
	Status      Status   `json:"status" yaml:"status"`
	Tasks       []Task   `json:"tasks" yaml:"tasks"`
	// Condition is a rule expression deciding whether the workflow applies.
	Condition any `json:"condition" yaml:"condition"`
}

// Task is one step of a workflow.
type Task struct {
	TaskID      string `json:"task_id" yaml:"task_id"`
	Name        string `json:"name" yaml:"name"`
	Description string `json:"description" yaml:"description"`
	// TriggerCondition is a rule expression deciding whether the task runs.
	TriggerCondition any      `json:"trigger_condition" yaml:"trigger_condition"`
	Function         Function `json:"function" yaml:"function"`
	// Input is function specific. For Enrich it holds the enrichment rules.
	Input any `json:"input" yaml:"input"`
}

// Status is the lifecycle state of a workflow definition.
type Status string

// Workflow states:
//   - StatusDraft: being edited, not used for processing
//   - StatusActive: in use
//   - StatusDeprecated: kept for audit references only
const (
	StatusDraft      Status = "Draft"
	StatusActive     Status = "Active"
	StatusDeprecated Status = "Deprecated"
)

// Function is the operation a task performs.
type Function string

// Task functions
const (
	FunctionValidate Function = "Validate"
	FunctionEnrich   Function = "Enrich"
	FunctionPublish  Function = "Publish"
)

var (
	validStatuses  = map[Status]bool{StatusDraft: true, StatusActive: true, StatusDeprecated: true}
	validFunctions = map[Function]bool{FunctionValidate: true, FunctionEnrich: true, FunctionPublish: true}
)

// UnmarshalText rejects unknown states.
func (s *Status) UnmarshalText(b []byte) error {
	v := Status(b)
	if !validStatuses[v] {
		return errors.WrapInvalid(fmt.Errorf("unknown workflow status %q", b), "Status", "UnmarshalText", "status decode")
	}
	*s = v
	return nil
}

// UnmarshalText rejects unknown functions.
func (f *Function) UnmarshalText(b []byte) error {
	v := Function(b)
	if !validFunctions[v] {
		return errors.WrapInvalid(fmt.Errorf("unknown task function %q", b), "Function", "UnmarshalText", "function decode")
	}
	*f = v
	return nil
}

// NewWorkflow returns a draft workflow with no tasks and an empty condition.
func NewWorkflow(name string) Workflow {
	return Workflow{
		Name:      name,
		Tags:      []string{},
		Status:    StatusDraft,
		Tasks:     []Task{},
		Condition: map[string]any{},
	}
}

// NewTask returns a task with empty trigger condition and input.
func NewTask(id string, fn Function) Task {
	return Task{
		TaskID:           id,
		TriggerCondition: map[string]any{},
		Function:         fn,
		Input:            map[string]any{},
	}
}

// Task returns the task with the given id.
func (w *Workflow) Task(id string) (Task, bool) {
	for _, t := range w.Tasks {
		if t.TaskID == id {
			return t, true
		}
	}
	return Task{}, false
}

// Validate checks the workflow and every task.
func (w *Workflow) Validate() error {
	if w.Name == "" {
		return errors.WrapInvalid(fmt.Errorf("workflow name cannot be empty"), "workflow", "Validate", "validation")
	}
	if w.Status == "" {
		w.Status = StatusDraft
	}
	if !validStatuses[w.Status] {
		return errors.WrapInvalid(fmt.Errorf("invalid status: %s", w.Status), "workflow", "Validate", "status validation")
	}

	taskIDs := make(map[string]bool, len(w.Tasks))
	for i, task := range w.Tasks {
		if task.TaskID == "" {
			return errors.WrapInvalid(fmt.Errorf("task at index %d has empty ID", i),
				"workflow", "Validate", "task ID validation")
		}
		if taskIDs[task.TaskID] {
			return errors.WrapInvalid(fmt.Errorf("duplicate task ID: %s", task.TaskID),
				"workflow", "Validate", "duplicate task ID detected")
		}
		taskIDs[task.TaskID] = true

		if !validFunctions[task.Function] {
			return errors.WrapInvalid(fmt.Errorf("task '%s' has invalid function %q", task.TaskID, task.Function),
				"workflow", "Validate", "task function validation")
		}
		if task.Function == FunctionEnrich {
			if _, err := task.EnrichmentRules(); err != nil {
				return err
			}
		}
	}
	return nil
}

// enrichInput is the object form of an Enrich task's input.
type enrichInput struct {
	Rules []enrich.Rule `json:"rules"`
}

// EnrichmentRules decodes an Enrich task's input into rules. The input is
// either a list of rules or an object with a "rules" list. Every rule field is
// checked.
func (t Task) EnrichmentRules() ([]enrich.Rule, error) {
	if t.Function != FunctionEnrich {
		return nil, errors.WrapInvalid(fmt.Errorf("task '%s' is a %s task", t.TaskID, t.Function),
			"Task", "EnrichmentRules", "function check")
	}

	raw, err := json.Marshal(normalize(t.Input))
	if err != nil {
		return nil, errors.WrapInvalid(err, "Task", "EnrichmentRules", "input encode")
	}

	var rules []enrich.Rule
	if _, isList := t.Input.([]any); isList {
		err = json.Unmarshal(raw, &rules)
	} else {
		var in enrichInput
		err = json.Unmarshal(raw, &in)
		rules = in.Rules
	}
	if err != nil {
		return nil, errors.WrapInvalid(err, "Task", "EnrichmentRules",
			fmt.Sprintf("decode rules of task '%s'", t.TaskID))
	}

	if err := enrich.ValidateRules(rules); err != nil {
		return nil, err
	}
	return rules, nil
}

// normalize converts map[any]any, which some YAML decoders produce, into
// map[string]any so the value can be encoded as JSON.
func normalize(v any) any {
	switch n := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(n))
		for k, val := range n {
			out[fmt.Sprint(k)] = normalize(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, val := range n {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, val := range n {
			out[i] = normalize(val)
		}
		return out
	default:
		return v
	}
}
