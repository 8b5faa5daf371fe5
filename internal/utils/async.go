package utils

import (
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/sirupsen/logrus"
)

// WorkerPool 并发任务处理池
type WorkerPool struct {
	maxWorkers int
	taskQueue  chan func()
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// NewWorkerPool 创建新的工作池
func NewWorkerPool(maxWorkers int) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	pool := &WorkerPool{
		maxWorkers: maxWorkers,
		taskQueue:  make(chan func(), maxWorkers*2),
	}

	for i := 0; i < maxWorkers; i++ {
		go pool.worker()
	}

	return pool
}

// worker 工作协程
func (p *WorkerPool) worker() {
	for task := range p.taskQueue {
		runTask(task)
		p.wg.Done()
	}
}

// runTask 执行任务，单个任务 panic 不影响工作协程
func runTask(task func()) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithFields(logrus.Fields{
				"panic": fmt.Sprintf("%v", r),
				"stack": string(debug.Stack()),
			}).Error("❌ 后台任务发生 panic")
		}
	}()
	task()
}

// Submit 提交任务到池
func (p *WorkerPool) Submit(task func()) {
	p.wg.Add(1)
	p.taskQueue <- task
}

// Wait 等待所有任务完成
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Close 等待已提交任务完成后关闭工作池
func (p *WorkerPool) Close() {
	p.closeOnce.Do(func() {
		p.wg.Wait()
		close(p.taskQueue)
	})
}

// SafeGo 启动带 panic 恢复的协程
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.WithFields(logrus.Fields{
					"协程":    name,
					"panic": fmt.Sprintf("%v", r),
					"stack": string(debug.Stack()),
				}).Error("❌ 协程发生 panic")
			}
		}()
		fn()
	}()
}
