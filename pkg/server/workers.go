/*
 * Copyright 2024 The Halyard Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package server

import (
	"sync"

	"github.com/halyardhttp/halyard/pkg/observability/logging"
	"github.com/halyardhttp/halyard/pkg/observability/logging/logger"
)

// Blocking marks a handler whose Invoke performs synchronous blocking work
// (filesystem, legacy drivers, CPU-heavy rendering). The server runs such
// handlers on the bounded worker pool so they cannot monopolize serving
// capacity; everything else runs inline on the serving goroutine.
type Blocking interface {
	Blocking() bool
}

// workerPool bounds the number of concurrently executing blocking handlers.
// Submission is non-blocking: when every worker is busy the caller runs the
// task inline, which degrades that one request rather than queueing
// unbounded work behind a saturated pool.
type workerPool struct {
	tasks chan func()
	wg    sync.WaitGroup
}

func newWorkerPool(size int) *workerPool {
	if size < 1 {
		size = 1
	}
	p := &workerPool{tasks: make(chan func())}
	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.work()
	}
	return p
}

func (p *workerPool) work() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.run(task)
	}
}

// run contains a panicking task so one bad handler cannot shrink the pool
func (p *workerPool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker task panic", logging.Pairs{"detail": r})
		}
	}()
	task()
}

// Submit offers the task to the pool and reports whether a worker took it.
// The task is always eventually run by a worker once accepted.
func (p *workerPool) Submit(task func()) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// Close stops the workers after draining already-accepted tasks
func (p *workerPool) Close() {
	close(p.tasks)
	p.wg.Wait()
}
