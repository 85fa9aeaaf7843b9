package actionrun

const (
	WorkflowName    = "action_run"
	ActivityExecute = "action_execute"
)
