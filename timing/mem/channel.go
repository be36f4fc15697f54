// Package mem models the memory-side collaborators of the pipeline: the
// bounded request/response channels the load/store queue talks through, and a
// single-level cache model (built on Akita's cache directory components) that
// serves those channels.
//
// Channels are drained at most once per simulated cycle by each side, which
// imposes a minimum one-cycle round trip between a request and its response
// and prevents same-cycle feedback loops between the pipeline and memory.
package mem

import "github.com/sarchlab/tracesim/insts"

// AccessKind distinguishes the logical request channels.
type AccessKind int

// Request kinds.
const (
	KindLoad AccessKind = iota
	KindStore
	KindPrefetch
)

// String returns the kind name.
func (k AccessKind) String() string {
	switch k {
	case KindLoad:
		return "load"
	case KindStore:
		return "store"
	case KindPrefetch:
		return "prefetch"
	default:
		return "unknown"
	}
}

// Request is one memory access issued by the load/store queue.
type Request struct {
	// Address is the target byte address.
	Address uint64

	// Kind selects the logical channel the request travels on.
	Kind AccessKind

	// InstrID identifies the requesting instruction. Prefetches carry
	// InvalidInstrID.
	InstrID insts.InstrID

	// Dependents lists the instructions to notify when the value returns.
	Dependents []insts.InstrID

	// IssueTime is the cycle the request entered the channel.
	IssueTime int64
}

// Response is the memory system's answer to a request. It carries the same
// address as the request and is matched back to all waiting entries.
type Response struct {
	// Address is the target byte address of the original request.
	Address uint64

	// Kind mirrors the request kind.
	Kind AccessKind

	// InstrID identifies the original requester.
	InstrID insts.InstrID

	// Dependents is carried over from the request.
	Dependents []insts.InstrID

	// AvailableTime is the earliest cycle the response may be observed.
	AvailableTime int64
}

// RequestChannel is a bounded FIFO of outstanding requests.
type RequestChannel struct {
	items    []Request
	capacity int
}

// NewRequestChannel creates a channel holding at most capacity requests.
func NewRequestChannel(capacity int) *RequestChannel {
	return &RequestChannel{capacity: capacity}
}

// HasSpace reports whether another request can be pushed this cycle.
func (c *RequestChannel) HasSpace() bool { return len(c.items) < c.capacity }

// Push appends a request. Returns false when the channel is full; the caller
// retries on a later cycle.
func (c *RequestChannel) Push(req Request) bool {
	if !c.HasSpace() {
		return false
	}
	c.items = append(c.items, req)
	return true
}

// Drain removes and returns every queued request. The serving side calls
// this at most once per cycle.
func (c *RequestChannel) Drain() []Request {
	items := c.items
	c.items = nil
	return items
}

// DrainUpTo removes and returns at most max queued requests, oldest first.
// The remainder stays queued for a later cycle.
func (c *RequestChannel) DrainUpTo(max int) []Request {
	if max <= 0 || len(c.items) == 0 {
		return nil
	}
	if max > len(c.items) {
		max = len(c.items)
	}
	items := c.items[:max]
	c.items = append([]Request(nil), c.items[max:]...)
	return items
}

// Len returns the number of queued requests.
func (c *RequestChannel) Len() int { return len(c.items) }

// ResponseChannel is a bounded FIFO of completed accesses flowing back to
// the pipeline.
type ResponseChannel struct {
	items    []Response
	capacity int
}

// NewResponseChannel creates a channel holding at most capacity responses.
func NewResponseChannel(capacity int) *ResponseChannel {
	return &ResponseChannel{capacity: capacity}
}

// HasSpace reports whether another response can be pushed this cycle.
func (c *ResponseChannel) HasSpace() bool { return len(c.items) < c.capacity }

// Push appends a response. Returns false when the channel is full.
func (c *ResponseChannel) Push(resp Response) bool {
	if !c.HasSpace() {
		return false
	}
	c.items = append(c.items, resp)
	return true
}

// DrainReady removes and returns the responses whose AvailableTime has
// passed. Later responses stay queued for a future cycle.
func (c *ResponseChannel) DrainReady(now int64) []Response {
	var ready []Response
	var pending []Response
	for _, resp := range c.items {
		if resp.AvailableTime <= now {
			ready = append(ready, resp)
		} else {
			pending = append(pending, resp)
		}
	}
	c.items = pending
	return ready
}

// Len returns the number of queued responses.
func (c *ResponseChannel) Len() int { return len(c.items) }

// Channels bundles the logical channels between one pipeline and the memory
// system: separate request channels for loads, stores, and prefetches, and a
// single return channel for completions.
type Channels struct {
	LoadReq     *RequestChannel
	StoreReq    *RequestChannel
	PrefetchReq *RequestChannel
	Return      *ResponseChannel
}

// NewChannels creates the channel bundle with the given per-channel capacity.
func NewChannels(capacity int) *Channels {
	return &Channels{
		LoadReq:     NewRequestChannel(capacity),
		StoreReq:    NewRequestChannel(capacity),
		PrefetchReq: NewRequestChannel(capacity),
		Return:      NewResponseChannel(capacity),
	}
}
