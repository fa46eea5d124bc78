// Package influxdb writes afkloop run metrics to InfluxDB v2.
//
// Three measurements are written:
//
//	stage_dwell   tags: stage, stalled        fields: seconds
//	match         tags: role, outcome         fields: seconds, disconnects, character
//	calibration   tags: predicate, change     fields: threshold, solved
//
// Writes go through the batched write API and never wait for the server.
// Points collect until the batch fills or the flush interval passes. A
// finished match or a stalled stage flushes early. Write failures are
// logged through SetLogger.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteStageDwell("matching", 42*time.Second, false)
package influxdb
