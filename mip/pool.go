package mip

import (
	"math/big"
	"sync"

	"gopkg.in/dnaeon/go-priorityqueue.v1"

	"github.com/chotong/toysolver/simplex"
)

// nodePool hands subproblems to workers in breadth-first order and
// tracks when the search is exhausted. Enqueue order doubles as the
// priority: a min-heap over a monotone sequence number is a FIFO
// queue, which keeps node visit order reproducible for a single
// worker.
type nodePool struct {
	mu       sync.Mutex
	nonEmpty *sync.Cond

	queue   *priorityqueue.PriorityQueue[*node, int64]
	seq     int64
	pending map[*node]struct{}
	running map[*node]struct{}
	visited int
	closed  bool
}

func newNodePool() *nodePool {
	p := &nodePool{
		queue:   priorityqueue.New[*node, int64](priorityqueue.MinHeap),
		pending: make(map[*node]struct{}),
		running: make(map[*node]struct{}),
	}
	p.nonEmpty = sync.NewCond(&p.mu)
	return p
}

// put enqueues a node and wakes one idle worker.
func (p *nodePool) put(n *node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.queue.Put(n, p.seq)
	p.seq++
	p.pending[n] = struct{}{}
	p.nonEmpty.Signal()
}

// pick blocks until a node is available and claims it. It returns
// ok=false when the search is over: either the pool was aborted, or
// the queue is empty while no worker holds a node that could still
// produce children.
func (p *nodePool) pick() (*node, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for !p.closed && p.queue.Len() == 0 && len(p.running) > 0 {
		p.nonEmpty.Wait()
	}
	if p.closed || p.queue.Len() == 0 {
		p.closed = true
		p.nonEmpty.Broadcast()
		return nil, false
	}
	n := p.queue.Get().Value
	delete(p.pending, n)
	p.running[n] = struct{}{}
	p.visited++
	return n, true
}

// finish releases a claimed node. When the last active node finishes
// against an empty queue the pool closes and every waiter wakes up.
func (p *nodePool) finish(n *node) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.running, n)
	if p.queue.Len() == 0 && len(p.running) == 0 {
		p.closed = true
	}
	p.nonEmpty.Broadcast()
}

// abort closes the pool immediately, waking all blocked pickers.
func (p *nodePool) abort() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.nonEmpty.Broadcast()
}

// stats returns the number of visited nodes, the number of open nodes
// (queued plus claimed) and the best relaxation bound among the open
// nodes in the given direction, nil when the frontier is empty.
func (p *nodePool) stats(dir simplex.OptDir) (visited, open int, bound *big.Rat) {
	p.mu.Lock()
	defer p.mu.Unlock()
	better := func(b *big.Rat) {
		if b == nil {
			return
		}
		if bound == nil {
			bound = new(big.Rat).Set(b)
			return
		}
		cmp := b.Cmp(bound)
		if (dir == simplex.Minimize && cmp < 0) || (dir == simplex.Maximize && cmp > 0) {
			bound.Set(b)
		}
	}
	for n := range p.pending {
		better(n.bound)
	}
	for n := range p.running {
		better(n.bound)
	}
	return p.visited, p.queue.Len() + len(p.running), bound
}
