package domain

import (
	"sync"
	"time"
)

// RunReport summarises one sync run.
type RunReport struct {
	mu sync.Mutex

	StartedAt  time.Time        `json:"started_at"`
	FinishedAt time.Time        `json:"finished_at"`
	Users      int              `json:"users"`
	Linkage    map[Linkage]int  `json:"linkage"`
	Updated    map[Provider]int `json:"updated"`
	Failed     map[Provider]int `json:"failed"`
	// UnreadableDocuments counts users whose document could not be loaded.
	UnreadableDocuments int  `json:"unreadable_documents"`
	EnumerationFailed   bool `json:"enumeration_failed"`
}

func NewRunReport(startedAt time.Time) *RunReport {
	return &RunReport{
		StartedAt: startedAt,
		Linkage:   make(map[Linkage]int),
		Updated:   make(map[Provider]int),
		Failed:    make(map[Provider]int),
	}
}

func (r *RunReport) AddUser(l Linkage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Users++
	r.Linkage[l]++
}

func (r *RunReport) AddUpdated(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Updated[p]++
}

func (r *RunReport) AddFailed(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Failed[p]++
}

func (r *RunReport) AddUnreadable() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.UnreadableDocuments++
}
