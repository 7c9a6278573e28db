package sched

// Active reports whether the poller currently owns a running ticker.
func (p *Poller) Active() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}
