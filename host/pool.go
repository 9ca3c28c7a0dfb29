package host

import (
	"context"
	"sync/atomic"
)

// InstancePool keeps pre-instantiated module instances in a buffered
// channel. Channel-based rather than sync.Pool: instances are expensive to
// build (instantiation plus handshake) and must not be collected behind
// the pool's back.
type InstancePool struct {
	runtime   *Runtime
	instances chan *Instance

	borrows    atomic.Int64
	returns    atomic.Int64
	poolMisses atomic.Int64
}

// newInstancePool instantiates size modules up front. Each one has already
// passed the handshake when the constructor returns.
func newInstancePool(ctx context.Context, r *Runtime, size int) (*InstancePool, error) {
	if size <= 0 {
		size = 4
	}
	pool := &InstancePool{
		runtime:   r,
		instances: make(chan *Instance, size),
	}

	for i := 0; i < size; i++ {
		inst, err := newInstance(ctx, r)
		if err != nil {
			pool.Close(ctx)
			return nil, err
		}
		pool.instances <- inst
	}
	return pool, nil
}

// Borrow takes an instance from the pool, instantiating a fresh one when
// the pool is drained rather than making the caller wait.
func (p *InstancePool) Borrow(ctx context.Context) (*Instance, error) {
	p.borrows.Add(1)
	select {
	case inst := <-p.instances:
		return inst, nil
	default:
		p.poolMisses.Add(1)
		return newInstance(ctx, p.runtime)
	}
}

// Return puts an instance back. Overflow instances are closed.
func (p *InstancePool) Return(ctx context.Context, inst *Instance) {
	p.returns.Add(1)
	select {
	case p.instances <- inst:
	default:
		inst.Close(ctx)
	}
}

// Close drains the pool and closes every pooled instance.
func (p *InstancePool) Close(ctx context.Context) {
	close(p.instances)
	for inst := range p.instances {
		inst.Close(ctx)
	}
}

// PoolStats is a point-in-time usage snapshot.
type PoolStats struct {
	Borrows    int64 `json:"borrows"`
	Returns    int64 `json:"returns"`
	PoolMisses int64 `json:"pool_misses"`
	PoolSize   int   `json:"pool_size"`
}

// Stats reports current pool usage.
func (p *InstancePool) Stats() PoolStats {
	return PoolStats{
		Borrows:    p.borrows.Load(),
		Returns:    p.returns.Load(),
		PoolMisses: p.poolMisses.Load(),
		PoolSize:   len(p.instances),
	}
}
