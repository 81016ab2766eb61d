package server

// StartWorker 启动唯一的派发协程：仿真器场景不支持并发修改，运行逐个执行
func (m *RunManager) StartWorker() {
	if m.workerStarted {
		return
	}
	m.workerStarted = true
	go func() {
		defer close(m.workerDone)
		for {
			select {
			case <-m.stop:
				return
			case r := <-m.queue:
				// 核心循环：取出运行 → 打开会话 → 顺序提交 → 关闭会话
				r.execute(m.newSession(), &m.metrics, m.hub)
			}
		}
	}()
}

// Shutdown 取消所有未结束的运行并等待 worker 退出
func (m *RunManager) Shutdown() {
	m.mu.RLock()
	for _, r := range m.runs {
		r.Cancel()
	}
	m.mu.RUnlock()
	m.stopOnce.Do(func() { close(m.stop) })
	if m.workerStarted {
		<-m.workerDone
	}
	// 队列中剩余的运行直接以取消结束，不打开会话
	for {
		select {
		case r := <-m.queue:
			r.Cancel()
			r.execute(nil, &m.metrics, m.hub)
		default:
			return
		}
	}
}
