package catalog

import "time"

// Service is a catalog entry a subscription line subscribes to. A service
// may own a pool of asset lots; when the pool is non-empty every running
// line of the service must hold one of its lots exclusively.
type Service struct {
	ID         int64
	Code       string
	Name       string
	Recurrence string // default consumption recurrence spec, "" = none
	Active     bool
	CreatedAt  time.Time
}
