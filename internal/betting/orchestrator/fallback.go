package orchestrator

import "time"

// noopCoordinator is substituted when the pause subsystem is unavailable.
// Gameplay continues unpaused; opportunities still resolve by countdown
// expiry.
type noopCoordinator struct{}

func (noopCoordinator) Pause(string, time.Duration) bool { return false }
func (noopCoordinator) Resume(bool, int)                 {}
func (noopCoordinator) ClearAutoResume()                 {}
func (noopCoordinator) IsPaused() bool                   { return false }
func (noopCoordinator) SubscribeTimeoutWarning(func(msg string)) func() {
	return func() {}
}
func (noopCoordinator) SubscribeCountdownTick(func(secondsLeft int)) func() {
	return func() {}
}
func (noopCoordinator) SubscribeStateChange(func(paused bool, reason string)) func() {
	return func() {}
}

// noopSink drops events when no gateway is wired.
type noopSink struct{}

func (noopSink) Publish(string, any) {}
