package entity

import "time"

type PosConfiguration struct {
	ID          uint64
	Environment string
	Data        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
