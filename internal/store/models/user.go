// Package models defines the persistent entities of the crawler/classifier
// corpus: users and their derived content, the word/hostname/pair statistics
// corpus, trait state, and the discovery/deferral queues.
package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User is a platform account known to the crawler.
type User struct {
	bun.BaseModel `bun:"table:users"`

	ID             int64      `bun:",pk" json:"id"`
	ScreenName     string     `bun:",notnull" json:"screenName"`
	ProfileURL     string     `bun:",notnull" json:"profileUrl"`
	AvatarID       *int64     `bun:"avatar_id" json:"avatarId,omitempty"`
	CreatedAt      time.Time  `bun:",notnull,default:now()" json:"createdAt"`
	RemoteCreated  time.Time  `bun:"remote_created_at,notnull" json:"remoteCreatedAt"`
	LastInspected  *time.Time `bun:"last_inspected_at" json:"lastInspectedAt,omitempty"`
}

// UserDetail holds the free-text profile fields scanned for spam signals.
// One-to-one with User; may not exist until the first inspection.
type UserDetail struct {
	bun.BaseModel `bun:"table:user_details"`

	UserID       int64  `bun:",pk" json:"userId"`
	AboutMe      string `bun:",notnull,default:''" json:"aboutMe"`
	WhoAmI       string `bun:"who_am_i,notnull,default:''" json:"whoAmI"`
	WantToDo     string `bun:"what_i_would_like_to_do,notnull,default:''" json:"whatIWouldLikeToDo"`
	Location     string `bun:",notnull,default:''" json:"location"`
	ProjectCount int    `bun:"project_count,notnull,default:0" json:"projectCount"`
}

// UserLink is one outbound link published on a user's profile.
type UserLink struct {
	bun.BaseModel `bun:"table:user_links"`

	UserID int64  `bun:",pk" json:"userId"`
	URL    string `bun:",pk" json:"url"`
	Title  string `bun:",notnull,default:''" json:"title"`
}

// UserToken is a per-user count of literal substrings that matched one of
// the suspicious content regexes (anchor tags, phone numbers).
type UserToken struct {
	bun.BaseModel `bun:"table:user_tokens"`

	UserID int64  `bun:",pk" json:"userId"`
	Token  string `bun:",pk" json:"token"`
	Count  int    `bun:",notnull,default:0" json:"count"`
}
