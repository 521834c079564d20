// Package command sends commands to field devices and correlates the
// results they report later.
//
// Commands are fire-and-forget. The Dispatcher resolves the device's live
// session through the registry at send time and emits the command once;
// an offline device means the command is dropped, never queued or retried.
//
// Results arrive as independent inbound events. The Correlator matches each
// one against the most recent command issued with the same correlation key
// {deviceId, subsystem, target, command}, keeps it in a bounded audit ring
// and republishes it to observers. There is no timeout: a command that is
// never answered simply has no result.
package command
