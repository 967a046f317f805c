package config

import "time"

type Session struct{}

var _ SessionConfig = Session{}

// GetExpiryWindow is how long before exp a token counts as expiring soon.
func (Session) GetExpiryWindow() time.Duration {
	return GetEnvDuration("EXPIRY_WINDOW", 5*time.Minute)
}

// GetWatchInterval is the period of the background expiry watcher. Zero
// disables it.
func (Session) GetWatchInterval() time.Duration {
	return GetEnvDuration("WATCH_INTERVAL", 30*time.Second)
}

func (Session) GetRefreshTimeout() time.Duration {
	return GetEnvDuration("REFRESH_TIMEOUT", 15*time.Second)
}
