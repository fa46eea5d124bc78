// Package mqtt connects afkloop to an MQTT broker.
//
// The broker is an optional side channel. afkloop publishes its status,
// stage changes, notifications, match results and calibration changes, and
// listens for remote control commands:
//
//	afkloop/status              retained, online/offline (LWT)
//	afkloop/stage               retained, current stage
//	afkloop/notify              operator notifications
//	afkloop/match               finished matches
//	afkloop/calibration/{id}    retained, threshold per predicate
//	afkloop/command/{action}    pause | resume | stop | suspend | resume-process
//
// State topics are retained and event topics are not. The status payload
// says whether commands are being routed. Only known actions reach the
// command handler, and retained commands are dropped. The client reconnects
// on its own and subscribes the command route again. A Last Will marks the
// instance offline if it dies without closing the connection.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.SubscribeCommands(1, func(action string) error {
//	    return dispatcher.Do(ctx, action)
//	})
package mqtt
