package xserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/xiaoshicae/xvision/xhook"
	"github.com/xiaoshicae/xvision/xutil"
)

var quitSignals = []os.Signal{
	syscall.SIGHUP,
	syscall.SIGINT,
	syscall.SIGTERM,
}

// Run 执行 BeforeStart hooks 后以阻塞方式启动 Server，等待退出信号，最后执行 BeforeStop hooks
func Run(server Server) error {
	if err := xhook.InvokeBeforeStartHook(); err != nil {
		return err
	}
	runErr := runWithServer(server)
	stopErr := xhook.InvokeBeforeStopHook()
	return errors.Join(runErr, stopErr)
}

// RunJob 执行 BeforeStart hooks 后运行一次性任务，任务结束或收到退出信号后执行 BeforeStop hooks
func RunJob(job Job) error {
	if err := xhook.InvokeBeforeStartHook(); err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(context.Background(), quitSignals...)
	defer stop()

	jobErr := safeInvokeJob(ctx, job)
	stopErr := xhook.InvokeBeforeStopHook()
	return errors.Join(jobErr, stopErr)
}

func runWithServer(s Server) error {
	runErrCh := make(chan error, 1)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, quitSignals...)
	defer signal.Stop(quit)

	go safeInvokeServerRun(s, runErrCh)

	select {
	case err := <-runErrCh:
		if err != nil {
			return fmt.Errorf("XVision Run server failed, err=[%v]", err)
		}
		xutil.WarnIfEnableDebug("XVision Run server unexpected stopped")
		return nil
	case <-quit:
		xutil.InfoIfEnableDebug("********** XVision Stop server begin **********")
		if err := safeInvokeServerStop(s); err != nil {
			return fmt.Errorf("XVision Stop server failed, err=[%v]", err)
		}
		xutil.InfoIfEnableDebug("********** XVision Stop server success **********")
		return nil
	}
}

func safeInvokeServerRun(s Server, runErrCh chan<- error) {
	defer func() {
		if r := recover(); r != nil {
			runErrCh <- fmt.Errorf("panic occurred, %v", r)
		}
	}()
	if err := s.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		runErrCh <- err
		return
	}
	runErrCh <- nil
}

func safeInvokeServerStop(s Server) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred, %v", r)
		}
	}()
	return s.Stop()
}

func safeInvokeJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred, %v", r)
		}
	}()
	return job(ctx)
}
