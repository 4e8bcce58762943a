package server

import (
	"sync"
	"time"

	"github.com/akave-ai/appendlog/internal/appender"
)

// FlushStatus is served by GET /status.
type FlushStatus struct {
	Flushes      uint64    `json:"flushes"`
	Failures     uint64    `json:"failures"`
	Appended     uint64    `json:"appended"`
	LastAt       time.Time `json:"last_flush_at"`
	LastBlobs    []string  `json:"last_blobs"`
	LastAppended int       `json:"last_appended"`
	LastError    string    `json:"last_error,omitempty"`
}

// FlushStatusStore records appender flush reports (appender.WithOnFlush).
type FlushStatusStore struct {
	mu sync.Mutex
	st FlushStatus
}

func (s *FlushStatusStore) Record(rep appender.FlushReport) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.Flushes++
	s.st.Appended += uint64(rep.Appended)
	s.st.LastAt = rep.Started
	s.st.LastBlobs = append([]string(nil), rep.Blobs...)
	s.st.LastAppended = rep.Appended
	s.st.LastError = ""
	if rep.Err != nil {
		s.st.Failures++
		s.st.LastError = rep.Err.Error()
	}
}

func (s *FlushStatusStore) Get() FlushStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.st
	st.LastBlobs = append([]string(nil), s.st.LastBlobs...)
	return st
}
