package health

import (
	"context"
	"sort"
	"time"
)

// Check reports the state of one dependency. A nil error is healthy.
type Check func(ctx context.Context) error

// Service runs the registered dependency checks.
type Service struct {
	Timeout time.Duration
	checks  map[string]Check
}

// NewService constructs a new health service.
func NewService() *Service {
	return &Service{Timeout: 2 * time.Second, checks: map[string]Check{}}
}

// Register adds a named check. Registering a name twice replaces it.
func (s *Service) Register(name string, check Check) {
	if check == nil {
		return
	}
	s.checks[name] = check
}

// Status is the health payload.
type Status struct {
	OK     bool              `json:"ok"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Status runs every check and returns the combined result.
func (s *Service) Status(ctx context.Context) Status {
	out := Status{OK: true}
	if len(s.checks) == 0 {
		return out
	}
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	out.Checks = make(map[string]string, len(names))
	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx, s.Timeout)
		err := s.checks[name](cctx)
		cancel()
		if err != nil {
			out.OK = false
			out.Checks[name] = err.Error()
			continue
		}
		out.Checks[name] = "ok"
	}
	return out
}
