package cluster

import "github.com/inference-sim/kamino-sim/sim"

// Event represents a simulation event
type Event interface {
	Timestamp() float64
	Seq() uint64
	Execute(cs *ClusterSimulator)
	setSeq(seq uint64)
}

// BaseEvent provides common event fields
type BaseEvent struct {
	timestamp float64
	seq       uint64
}

func (e *BaseEvent) Timestamp() float64 { return e.timestamp }

func (e *BaseEvent) Seq() uint64 { return e.seq }

func (e *BaseEvent) setSeq(seq uint64) { e.seq = seq }

// TaskFinishedEvent fires when a task's execution completes on its VM.
type TaskFinishedEvent struct {
	BaseEvent
	Task *sim.Task
}

func NewTaskFinishedEvent(timestamp float64, task *sim.Task) *TaskFinishedEvent {
	return &TaskFinishedEvent{
		BaseEvent: BaseEvent{timestamp: timestamp},
		Task:      task,
	}
}

func (e *TaskFinishedEvent) Execute(cs *ClusterSimulator) {
	cs.handleTaskFinished(e)
}
