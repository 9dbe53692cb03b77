package models

import "github.com/uptrace/bun"

// Word is a corpus-wide token seen in scanned content. Score is a signed
// sum of moderator verdicts (+count on legit, -count on suspect); Count is
// the total number of observations across all users.
type Word struct {
	bun.BaseModel `bun:"table:words"`

	ID    int64  `bun:",pk,autoincrement" json:"id"`
	Text  string `bun:",notnull,unique" json:"text"`
	Score int64  `bun:",notnull,default:0" json:"score"`
	Count int64  `bun:",notnull,default:0" json:"count"`
}

// WordAdjacent is a corpus-wide ordered word pair.
type WordAdjacent struct {
	bun.BaseModel `bun:"table:word_adjacents"`

	PredecessorID int64 `bun:"predecessor_id,pk" json:"predecessorId"`
	SuccessorID   int64 `bun:"successor_id,pk" json:"successorId"`
	Score         int64 `bun:",notnull,default:0" json:"score"`
	Count         int64 `bun:",notnull,default:0" json:"count"`
}

// Hostname is a corpus-wide registrable domain (or sub-domain) parent name
// derived by the public suffix decomposition.
type Hostname struct {
	bun.BaseModel `bun:"table:hostnames"`

	ID    int64  `bun:",pk,autoincrement" json:"id"`
	Name  string `bun:",notnull,unique" json:"name"`
	Score int64  `bun:",notnull,default:0" json:"score"`
	Count int64  `bun:",notnull,default:0" json:"count"`
}

// UserWord is a per-user observation counter for a Word. Rows with Count <= 0
// are deleted rather than zeroed (spec §4.6).
type UserWord struct {
	bun.BaseModel `bun:"table:user_words"`

	UserID int64 `bun:"user_id,pk" json:"userId"`
	WordID int64 `bun:"word_id,pk" json:"wordId"`
	Count  int64 `bun:",notnull,default:0" json:"count"`
}

// UserHostname is a per-user observation counter for a Hostname.
type UserHostname struct {
	bun.BaseModel `bun:"table:user_hostnames"`

	UserID     int64 `bun:"user_id,pk" json:"userId"`
	HostnameID int64 `bun:"hostname_id,pk" json:"hostnameId"`
	Count      int64 `bun:",notnull,default:0" json:"count"`
}

// UserWordAdjacent is a per-user observation counter for a WordAdjacent pair.
type UserWordAdjacent struct {
	bun.BaseModel `bun:"table:user_word_adjacents"`

	UserID        int64 `bun:"user_id,pk" json:"userId"`
	PredecessorID int64 `bun:"predecessor_id,pk" json:"predecessorId"`
	SuccessorID   int64 `bun:"successor_id,pk" json:"successorId"`
	Count         int64 `bun:",notnull,default:0" json:"count"`
}
