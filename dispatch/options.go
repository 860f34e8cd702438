// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package dispatch

// Options configures dispatcher creation.
type Options struct {
	workers int
	compact bool // Effort to save queue slots
	queue   int  // task queue capacity hint
}

// Builder creates a Dispatcher with fluent configuration.
//
// Example:
//
//	d := dispatch.Build(dispatch.New(8).Compact())
type Builder struct {
	opts Options
}

// New creates a dispatcher builder with the given worker count.
//
// Panics if workers < 1.
func New(workers int) *Builder {
	if workers < 1 {
		panic("dispatch: workers must be >= 1")
	}
	return &Builder{opts: Options{workers: workers, queue: workers * 4}}
}

// Compact halves the capacity hint (rounding up). The hint only sizes
// the initial task list of a Scope; ParallelFor always sizes its queue to
// the batch it runs, and the queue algorithm is the same either way.
func (b *Builder) Compact() *Builder {
	b.opts.compact = true
	return b
}

// QueueCapacity overrides the default capacity hint (workers*4), which
// sizes the initial task list of a Scope and not ParallelFor's queue.
func (b *Builder) QueueCapacity(n int) *Builder {
	b.opts.queue = n
	return b
}

// Build creates the configured Dispatcher.
func Build(b *Builder) *Dispatcher {
	cap := b.opts.queue
	if b.opts.compact {
		cap = (cap + 1) / 2
	}
	return newDispatcher(b.opts.workers, cap)
}
