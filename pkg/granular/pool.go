package granular

// DefaultPoolSize is the number of grain slots.
const DefaultPoolSize = 64

// Pool is a fixed set of grain slots reused by first-fit scanning.
type Pool struct {
	grains []Grain
}

// NewPool allocates size free grains.
func NewPool(size int) *Pool {
	if size < 1 {
		size = 1
	}
	return &Pool{grains: make([]Grain, size)}
}

// Len returns the slot count.
func (p *Pool) Len() int {
	return len(p.grains)
}

// At returns the grain in slot i.
func (p *Pool) At(i int) *Grain {
	return &p.grains[i]
}

// FirstFree returns the lowest-index free slot, or nil when all are busy.
func (p *Pool) FirstFree() *Grain {
	for i := range p.grains {
		if p.grains[i].State == GrainFree {
			return &p.grains[i]
		}
	}
	return nil
}

// Counts returns the number of active and waiting grains.
func (p *Pool) Counts() (active, waiting int) {
	for i := range p.grains {
		switch p.grains[i].State {
		case GrainActive:
			active++
		case GrainWaiting:
			waiting++
		}
	}
	return active, waiting
}

// Reset frees every slot.
func (p *Pool) Reset() {
	for i := range p.grains {
		p.grains[i] = Grain{}
	}
}
