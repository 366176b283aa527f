package models

import (
	"time"
)

// Click sources used by the HTTP layer.
const (
	SourceDirect     = "Direct Access"
	SourceStatistics = "Statistics Page"
	UnknownLocation  = "Unknown"
)

// Click is a single recorded access. It is never modified after being appended.
type Click struct {
	ID        string
	Timestamp time.Time
	Source    string
	Location  string
}
