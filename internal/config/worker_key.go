package config

type WorkerKeyStruct struct{}

func NewWorkerKeyStruct() *WorkerKeyStruct {
	return &WorkerKeyStruct{}
}

// ProgressEventsQueue is the Redis list the scorer pushes finalized-session
// events onto; the progress worker drains it into progress_snapshots.
func (r *WorkerKeyStruct) ProgressEventsQueue() string {
	return "progress_events_queue"
}

var WorkerKey = NewWorkerKeyStruct()
