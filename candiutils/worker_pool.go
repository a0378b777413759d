package candiutils

import (
	"context"
	"sync"
)

// WorkerPool implementation
type WorkerPool[T any] interface {
	Dispatch(ctx context.Context, jobFunc func(context.Context, T))
	AddJob(job T)
	Finish()
}

type workerPool[T any] struct {
	maxWorker int
	wg        sync.WaitGroup
	jobChan   chan T
	once      sync.Once
}

// NewWorkerPool create an instance of WorkerPool, AddJob blocks while every worker is busy
func NewWorkerPool[T any](maxWorker int) WorkerPool[T] {
	if maxWorker <= 0 {
		maxWorker = 1
	}
	return &workerPool[T]{
		maxWorker: maxWorker,
		jobChan:   make(chan T),
	}
}

func (wp *workerPool[T]) Dispatch(ctx context.Context, jobFunc func(context.Context, T)) {
	for i := 0; i < wp.maxWorker; i++ {
		go func() {
			for job := range wp.jobChan {
				jobFunc(ctx, job)
				wp.wg.Done()
			}
		}()
	}
}

func (wp *workerPool[T]) AddJob(job T) {
	wp.wg.Add(1)
	wp.jobChan <- job
}

// Finish stop accepting jobs and wait running ones, safe to call twice
func (wp *workerPool[T]) Finish() {
	wp.once.Do(func() { close(wp.jobChan) })
	wp.wg.Wait()
}
