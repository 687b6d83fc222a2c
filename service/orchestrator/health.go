package orchestrator

// LauncherHealth describes one launcher of the run.
type LauncherHealth struct {
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	Sessions int    `json:"sessions"`
	Limit    int    `json:"limit"`
	Error    string `json:"error,omitempty"`
}

// Health reports launcher liveness and slot usage.
type Health struct {
	RunID     string            `json:"runId,omitempty"`
	Healthy   bool              `json:"healthy"`
	Launchers []*LauncherHealth `json:"launchers"`
}

// Health queries every launcher of the run, or every registered launcher
// before the run starts. The run is healthy when each launcher is active
// and none failed to start.
func (s *Service) Health() *Health {
	s.mux.Lock()
	names := s.launchers
	if !s.started {
		names = s.registry.Names()
	}
	ret := &Health{RunID: s.runID, Healthy: len(names) > 0}
	errs := make(map[string]error, len(s.launchErrors))
	for name, err := range s.launchErrors {
		errs[name] = err
	}
	s.mux.Unlock()

	for _, name := range names {
		l := s.registry.Lookup(name)
		if l == nil {
			continue
		}
		item := &LauncherHealth{
			Name:     name,
			Active:   l.IsActive(),
			Sessions: s.store.Active(name),
			Limit:    s.store.Limit(name),
		}
		if err := errs[name]; err != nil {
			item.Error = err.Error()
		}
		recordLauncherUp(name, item.Active)
		if !item.Active || item.Error != "" {
			ret.Healthy = false
		}
		ret.Launchers = append(ret.Launchers, item)
	}
	return ret
}
