package dataapi

import "time"

const (
	DefaultQueryTimeout = 30 * time.Second
)
