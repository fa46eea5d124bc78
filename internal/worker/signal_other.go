//go:build !unix

package worker

func signalStop(int) error {
	return ErrSuspendUnsupported
}

func signalCont(int) error {
	return ErrSuspendUnsupported
}
