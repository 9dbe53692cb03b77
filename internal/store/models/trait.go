package models

import "github.com/uptrace/bun"

// TraitType enumerates the key shape a Trait's instances are addressed by.
type TraitType string

const (
	TraitTypeSingleton  TraitType = "singleton"
	TraitTypeString     TraitType = "string"
	TraitTypeImageHash  TraitType = "image_hash"
	TraitTypePair       TraitType = "pair"
)

// Trait is a named, weighted predicate over a user.
type Trait struct {
	bun.BaseModel `bun:"table:traits"`

	ID        int64     `bun:",pk,autoincrement" json:"id"`
	Class     string    `bun:"trait_class,notnull,unique" json:"traitClass"`
	Type      TraitType `bun:"trait_type,notnull" json:"traitType"`
	Score     int64     `bun:",notnull,default:0" json:"score"`
	Count     int64     `bun:",notnull,default:0" json:"count"`
	Weight    float64   `bun:",notnull,default:1" json:"weight"`
}

// TraitInstance is a keyed value under a Trait: NULL key for singletons, a
// string for string-keyed traits, an avatar-hash id for image-hash-keyed
// traits. Pair-keyed traits key on two other instance ids (StringKey unused,
// PairA/PairB populated instead).
type TraitInstance struct {
	bun.BaseModel `bun:"table:trait_instances"`

	ID        int64  `bun:",pk,autoincrement" json:"id"`
	TraitID   int64  `bun:"trait_id,notnull" json:"traitId"`
	StringKey *string `bun:"string_key" json:"stringKey,omitempty"`
	HashID    *int64 `bun:"hash_id" json:"hashId,omitempty"`
	PairA     *int64 `bun:"pair_a" json:"pairA,omitempty"`
	PairB     *int64 `bun:"pair_b" json:"pairB,omitempty"`
	Score     int64  `bun:",notnull,default:0" json:"score"`
	Count     int64  `bun:",notnull,default:0" json:"count"`
}

// UserTrait is a per-user observation count against a singleton Trait.
type UserTrait struct {
	bun.BaseModel `bun:"table:user_traits"`

	UserID  int64 `bun:"user_id,pk" json:"userId"`
	TraitID int64 `bun:"trait_id,pk" json:"traitId"`
	Count   int64 `bun:",notnull,default:0" json:"count"`
}

// UserTraitInstance is a per-user observation count against a keyed
// TraitInstance.
type UserTraitInstance struct {
	bun.BaseModel `bun:"table:user_trait_instances"`

	UserID     int64 `bun:"user_id,pk" json:"userId"`
	InstanceID int64 `bun:"instance_id,pk" json:"instanceId"`
	Count      int64 `bun:",notnull,default:0" json:"count"`
}
