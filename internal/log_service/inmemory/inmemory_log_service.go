package inmemory

import (
	"sync"

	"github.com/AnishMulay/sandfs/internal/log_service"
)

// Record is one captured log call.
type Record struct {
	Level string
	Event log_service.LogEvent
}

// InMemoryLogService keeps every event in memory. Tests use it to assert
// that a condition was surfaced rather than swallowed.
type InMemoryLogService struct {
	mu      sync.Mutex
	records []Record
}

func NewInMemoryLogService() *InMemoryLogService {
	return &InMemoryLogService{}
}

func (ls *InMemoryLogService) append(level string, event log_service.LogEvent) {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	ls.records = append(ls.records, Record{Level: level, Event: event})
}

func (ls *InMemoryLogService) Debug(event log_service.LogEvent) {
	ls.append(log_service.DebugLevel, event)
}

func (ls *InMemoryLogService) Info(event log_service.LogEvent) {
	ls.append(log_service.InfoLevel, event)
}

func (ls *InMemoryLogService) Warn(event log_service.LogEvent) {
	ls.append(log_service.WarnLevel, event)
}

func (ls *InMemoryLogService) Error(event log_service.LogEvent) {
	ls.append(log_service.ErrorLevel, event)
}

// Records returns a copy of everything logged so far.
func (ls *InMemoryLogService) Records() []Record {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	out := make([]Record, len(ls.records))
	copy(out, ls.records)
	return out
}

// ByLevel returns the captured events at the given level.
func (ls *InMemoryLogService) ByLevel(level string) []log_service.LogEvent {
	ls.mu.Lock()
	defer ls.mu.Unlock()
	var out []log_service.LogEvent
	for _, r := range ls.records {
		if r.Level == level {
			out = append(out, r.Event)
		}
	}
	return out
}

var _ log_service.LogService = (*InMemoryLogService)(nil)
