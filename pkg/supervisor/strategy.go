package supervisor

// plan returns the processes to restart after failed terminated, in restart
// order. Processes already restarting or stopped are skipped so overlapping
// cascades never restart the same process twice. Caller holds s.mu.
func (s *Supervisor) plan(failed string) []string {
	eligible := func(name string) bool {
		d := s.reg.get(name)
		return d != nil && d.state != StateRestarting && d.state != StateStopped
	}

	switch s.cfg.Strategy {
	case OneForAll:
		var out []string
		for _, d := range s.reg.all() {
			if eligible(d.name) {
				out = append(out, d.name)
			}
		}
		return out
	case RestForOne:
		out := []string{failed}
		for name := range s.graph.dependentsOf(failed) {
			if eligible(name) {
				out = append(out, name)
			}
		}
		return out
	default:
		return []string{failed}
	}
}
