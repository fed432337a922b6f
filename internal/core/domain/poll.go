package domain

import "time"

type PollState int

const (
	POLL_STATE_IDLE PollState = iota
	POLL_STATE_POLLING
)

func (s PollState) String() string {
	if s == POLL_STATE_POLLING {
		return "polling"
	}
	return "idle"
}

// SlaveResult is the outcome of reading one meter in a cycle.
type SlaveResult struct {
	Slave    uint8  `json:"slave"`
	Position int    `json:"position"`
	Ok       bool   `json:"ok"`
	Error    string `json:"error,omitempty"`
}

// CycleReport summarizes one poll cycle.
type CycleReport struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Results   []SlaveResult `json:"results"`
}

func (r CycleReport) Succeeded() int {
	n := 0
	for _, res := range r.Results {
		if res.Ok {
			n++
		}
	}
	return n
}

func (r CycleReport) Failed() int {
	return len(r.Results) - r.Succeeded()
}
