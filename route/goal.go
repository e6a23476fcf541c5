// Package route turns high-level goals into steppable execution plans over a
// topology graph.
package route

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is a singleton validator instance
var validate = validator.New()

// ErrInvalidGoal is returned when a goal document cannot be decoded.
var ErrInvalidGoal = errors.New("route: invalid goal")

// Goal types as they appear on the wire.
const (
	GoalExecuteTask     = "execute_task"
	GoalReachCapability = "reach_capability"
	GoalConnectNodes    = "connect_nodes"
	GoalFindAgent       = "find_agent"
	GoalExecuteWorkflow = "execute_workflow"
)

// Goal is one of ExecuteTask, ReachCapability, ConnectNodes, FindAgent or
// ExecuteWorkflow.
type Goal interface {
	Spec() GoalSpec
	isGoal()
}

// ExecuteTask routes the cheapest active agent to a task.
type ExecuteTask struct {
	TaskID string
}

// ReachCapability routes the cheapest active agent to any node exposing a capability.
type ReachCapability struct {
	Capability string
}

// ConnectNodes is a direct shortest path.
type ConnectNodes struct {
	From string
	To   string
}

// FindAgent picks the agent that best covers a capability set.
type FindAgent struct {
	Capabilities []string
}

// ExecuteWorkflow walks a workflow node's outgoing edges breadth first.
type ExecuteWorkflow struct {
	WorkflowID string
}

func (ExecuteTask) isGoal()     {}
func (ReachCapability) isGoal() {}
func (ConnectNodes) isGoal()    {}
func (FindAgent) isGoal()       {}
func (ExecuteWorkflow) isGoal() {}

func (g ExecuteTask) Spec() GoalSpec { return GoalSpec{Type: GoalExecuteTask, TaskID: g.TaskID} }
func (g ReachCapability) Spec() GoalSpec {
	return GoalSpec{Type: GoalReachCapability, Capability: g.Capability}
}
func (g ConnectNodes) Spec() GoalSpec { return GoalSpec{Type: GoalConnectNodes, From: g.From, To: g.To} }
func (g FindAgent) Spec() GoalSpec {
	return GoalSpec{Type: GoalFindAgent, Capabilities: g.Capabilities}
}
func (g ExecuteWorkflow) Spec() GoalSpec {
	return GoalSpec{Type: GoalExecuteWorkflow, WorkflowID: g.WorkflowID}
}

// GoalSpec is the flat JSON form of a Goal used by the HTTP, MCP and CLI layers.
type GoalSpec struct {
	Type         string   `json:"type" yaml:"type" validate:"required,oneof=execute_task reach_capability connect_nodes find_agent execute_workflow"`
	TaskID       string   `json:"task_id,omitempty" yaml:"task_id,omitempty" validate:"required_if=Type execute_task"`
	Capability   string   `json:"capability,omitempty" yaml:"capability,omitempty" validate:"required_if=Type reach_capability"`
	From         string   `json:"from,omitempty" yaml:"from,omitempty" validate:"required_if=Type connect_nodes"`
	To           string   `json:"to,omitempty" yaml:"to,omitempty" validate:"required_if=Type connect_nodes"`
	Capabilities []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
	WorkflowID   string   `json:"workflow_id,omitempty" yaml:"workflow_id,omitempty" validate:"required_if=Type execute_workflow"`
}

// Goal converts the document into its typed form.
func (s GoalSpec) Goal() (Goal, error) {
	if err := validate.Struct(s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoal, err)
	}
	switch s.Type {
	case GoalExecuteTask:
		return ExecuteTask{TaskID: s.TaskID}, nil
	case GoalReachCapability:
		return ReachCapability{Capability: s.Capability}, nil
	case GoalConnectNodes:
		return ConnectNodes{From: s.From, To: s.To}, nil
	case GoalFindAgent:
		return FindAgent{Capabilities: s.Capabilities}, nil
	default:
		return ExecuteWorkflow{WorkflowID: s.WorkflowID}, nil
	}
}

// ParseGoal decodes a JSON goal document.
func ParseGoal(data []byte) (Goal, error) {
	var s GoalSpec
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidGoal, err)
	}
	return s.Goal()
}
