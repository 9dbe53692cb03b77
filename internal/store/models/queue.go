package models

import "time"

import "github.com/uptrace/bun"

// NewUser is the inbox of discovered but not-yet-inspected user IDs.
type NewUser struct {
	bun.BaseModel `bun:"table:new_users"`

	UserID int64 `bun:"user_id,pk" json:"userId"`
}

// DeferredUser holds a user whose classification is indecisive and who is
// eligible for re-inspection once InspectAt elapses.
type DeferredUser struct {
	bun.BaseModel `bun:"table:deferred_users"`

	UserID      int64     `bun:"user_id,pk" json:"userId"`
	InspectAt   time.Time `bun:"inspect_at,notnull" json:"inspectAt"`
	Inspections int       `bun:",notnull,default:1" json:"inspections"`
}

// NewestPageRefresh records the last time a newest-sort discovery page was
// scanned, used to skip recently-scanned pages.
type NewestPageRefresh struct {
	bun.BaseModel `bun:"table:newest_page_refreshes"`

	PageNum     int       `bun:"page_num,pk" json:"pageNum"`
	RefreshedAt time.Time `bun:"refreshed_at,notnull" json:"refreshedAt"`
}
