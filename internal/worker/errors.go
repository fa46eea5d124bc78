package worker

import "errors"

var (
	// ErrWorkerTimeout is returned by Stop when the loop ignored the stop
	// flag for longer than GracefulTimeout and had to be cancelled.
	ErrWorkerTimeout = errors.New("worker: graceful stop timed out")

	// ErrAlreadyRunning is returned by Start on a running worker.
	ErrAlreadyRunning = errors.New("worker: already running")

	// ErrSuspendUnsupported is returned by SignalSuspender where job control
	// signals do not exist.
	ErrSuspendUnsupported = errors.New("worker: process suspend unsupported on this platform")
)
