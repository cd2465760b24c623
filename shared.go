package probax

const TaskQueueName = "probax-task-queue"

// Workflow signal and query names of MatchSessionWorkflow.
const (
	SignalInput       = "input"
	SignalSelect      = "select"
	SignalPredict     = "predict"
	SignalClose       = "close"
	QuerySessionState = "sessionState"
)
