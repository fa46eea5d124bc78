// Package control maps runtime commands onto the running loop.
//
// The same Dispatcher serves the MQTT command topics and the HTTP control
// endpoint, so both surfaces accept exactly the same actions:
//
//	pause           close the pause gate; workers and the controller block
//	resume          reopen the pause gate
//	stop            set the one-way stop flag
//	suspend         park held inputs and freeze the workers
//	resume-process  restore parked inputs and thaw the workers
package control
