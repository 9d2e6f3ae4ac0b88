package sim

// Per-access I/O latencies in seconds.
const (
	HitLatency  = 0.001 // local cache read
	MissLatency = 0.050 // remote fetch
)

// TaskState is the lifecycle state of a task in the driver.
type TaskState string

const (
	TaskQueued    TaskState = "queued"
	TaskRunning   TaskState = "running"
	TaskCompleted TaskState = "completed"
	TaskFailed    TaskState = "failed" // VM was never placed
)

// Task is a data-intensive unit of work bound to a VM.
// DataItems is supplied independently of the VM's pattern.
type Task struct {
	ID        int
	VMID      int // -1 until bound
	Length    int64
	PEs       int
	DataItems []string
	State     TaskState

	StartTime  float64 // seconds
	FinishTime float64 // seconds

	Hits   int
	Misses int
}

// NewTask creates a queued, unbound task with a copy of items.
func NewTask(id int, length int64, pes int, items []string) *Task {
	return &Task{
		ID:        id,
		VMID:      -1,
		Length:    length,
		PEs:       pes,
		DataItems: append([]string(nil), items...),
		State:     TaskQueued,
	}
}

// RecordAccess tallies one cache access attributed to this task.
func (t *Task) RecordAccess(hit bool) {
	if hit {
		t.Hits++
	} else {
		t.Misses++
	}
}

// IOOverhead returns hits*HitLatency + misses*MissLatency, in seconds.
func (t *Task) IOOverhead() float64 {
	return float64(t.Hits)*HitLatency + float64(t.Misses)*MissLatency
}

// ExecutionTime returns FinishTime - StartTime, or 0 for tasks that never completed.
func (t *Task) ExecutionTime() float64 {
	if t.State != TaskCompleted {
		return 0
	}
	return t.FinishTime - t.StartTime
}

// TotalLatency returns execution time plus I/O overhead.
func (t *Task) TotalLatency() float64 {
	return t.ExecutionTime() + t.IOOverhead()
}
