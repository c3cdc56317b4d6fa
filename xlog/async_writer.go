package xlog

import (
	"io"
	"sync"
)

const defaultAsyncBufferSize = 4096

// asyncWriter 通过 channel + goroutine 将文件写入转为异步，Close 时等待缓冲写完
type asyncWriter struct {
	ch       chan []byte
	writer   io.WriteCloser
	wg       sync.WaitGroup
	once     sync.Once
	closeErr error
}

func newAsyncWriter(w io.WriteCloser, bufferSize int) *asyncWriter {
	if bufferSize <= 0 {
		bufferSize = defaultAsyncBufferSize
	}
	aw := &asyncWriter{ch: make(chan []byte, bufferSize), writer: w}
	aw.wg.Add(1)
	go func() {
		defer aw.wg.Done()
		for buf := range aw.ch {
			_, _ = aw.writer.Write(buf)
		}
	}()
	return aw
}

// Write 调用方可能复用 p，这里必须拷贝
func (aw *asyncWriter) Write(p []byte) (int, error) {
	buf := make([]byte, len(p))
	copy(buf, p)
	aw.ch <- buf
	return len(p), nil
}

func (aw *asyncWriter) Close() error {
	aw.once.Do(func() {
		close(aw.ch)
		aw.wg.Wait()
		aw.closeErr = aw.writer.Close()
	})
	return aw.closeErr
}
