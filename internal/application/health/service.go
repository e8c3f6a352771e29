package health

import (
	"context"
	"time"

	"3tcapital/goglosas/internal/application/workspace"
	corehealth "3tcapital/goglosas/internal/core/health"
)

// Metadata contains immutable metadata about the running service.
type Metadata struct {
	Service     string
	Version     string
	Environment string
}

// Probe checks one dependency. A nil error means it is reachable.
type Probe func(ctx context.Context) error

// Service exposes health-check use cases to adapters.
type Service struct {
	meta         Metadata
	startedAt    time.Time
	ws           *workspace.Workspace
	probes       map[string]Probe
	probeOrder   []string
	probeTimeout time.Duration
}

func NewService(meta Metadata, ws *workspace.Workspace) *Service {
	return &Service{
		meta:         meta,
		startedAt:    time.Now().UTC(),
		ws:           ws,
		probes:       make(map[string]Probe),
		probeTimeout: 2 * time.Second,
	}
}

// AddProbe registers a dependency check reported under name.
func (s *Service) AddProbe(name string, p Probe) {
	if _, exists := s.probes[name]; !exists {
		s.probeOrder = append(s.probeOrder, name)
	}
	s.probes[name] = p
}

// Status returns the current availability snapshot. A failing probe marks
// the service DEGRADED; the local-first workspace keeps serving reads.
func (s *Service) Status(ctx context.Context) corehealth.Status {
	uptime := time.Since(s.startedAt)
	status := corehealth.Status{
		Service:     s.meta.Service,
		Version:     s.meta.Version,
		Environment: s.meta.Environment,
		Status:      corehealth.StatusUp,
		StartedAt:   s.startedAt,
		Uptime:      uptime.String(),
		UptimeSecs:  int64(uptime.Seconds()),
	}

	if s.ws != nil {
		st := s.ws.Status()
		status.Sync = &corehealth.Sync{
			LastUpdated:   st.LastUpdated,
			LastSyncError: st.LastSyncError,
			Glosas:        st.Glosas,
			Ingresos:      st.Ingresos,
		}
	}

	for _, name := range s.probeOrder {
		dep := corehealth.Dependency{Name: name, Status: corehealth.StatusUp}
		probeCtx, cancel := context.WithTimeout(ctx, s.probeTimeout)
		if err := s.probes[name](probeCtx); err != nil {
			dep.Status = corehealth.StatusDegraded
			dep.Error = err.Error()
			status.Status = corehealth.StatusDegraded
		}
		cancel()
		status.Dependencies = append(status.Dependencies, dep)
	}
	return status
}
