package models

import "github.com/uptrace/bun"

// Required group names (spec §3).
const (
	GroupAdmin       = "admin"
	GroupAutoLegit   = "auto_legit"
	GroupAutoSuspect = "auto_suspect"
	GroupLegit       = "legit"
	GroupSuspect     = "suspect"
)

// Group is a named classification bucket a user can belong to.
type Group struct {
	bun.BaseModel `bun:"table:groups"`

	ID   int64  `bun:",pk,autoincrement" json:"id"`
	Name string `bun:",notnull,unique" json:"name"`
}

// UserGroup is the membership join between User and Group.
type UserGroup struct {
	bun.BaseModel `bun:"table:user_groups"`

	UserID  int64 `bun:"user_id,pk" json:"userId"`
	GroupID int64 `bun:"group_id,pk" json:"groupId"`
}
