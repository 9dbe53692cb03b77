package models

import "github.com/uptrace/bun"

// Avatar is content-addressed by URL. Bytes are fetched lazily on first
// demand; ContentType empty means the body has not been fetched yet.
type Avatar struct {
	bun.BaseModel `bun:"table:avatars"`

	ID          int64  `bun:",pk,autoincrement" json:"id"`
	URL         string `bun:",notnull,unique" json:"url"`
	ContentType string `bun:"content_type,notnull,default:''" json:"contentType"`
	Bytes       []byte `bun:",notnull,default:'\\x'" json:"-"`
}

// AvatarHash is one fingerprint of an avatar under a named algorithm.
// (Algorithm, Digest) is unique; an avatar may share a hash with others.
type AvatarHash struct {
	bun.BaseModel `bun:"table:avatar_hashes"`

	ID        int64  `bun:",pk,autoincrement" json:"id"`
	Algorithm string `bun:",notnull" json:"algorithm"`
	Digest    []byte `bun:",notnull" json:"digest"`
}

// AvatarHashAssoc is the many-to-many join between Avatar and AvatarHash.
type AvatarHashAssoc struct {
	bun.BaseModel `bun:"table:avatar_hash_assocs"`

	AvatarID int64 `bun:"avatar_id,pk" json:"avatarId"`
	HashID   int64 `bun:"hash_id,pk" json:"hashId"`
}
