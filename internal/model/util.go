package model

import (
	"github.com/btcsuite/btcutil/base58"
	"github.com/google/uuid"
)

func CreateID() string {
	uuid, _ := uuid.NewRandom()
	return base58.Encode(uuid[:])
}

func NewUserID() UserID {
	return UserID("user_" + CreateID())
}

func NewPostID() PostID {
	return PostID("post_" + CreateID())
}

func NewClanID() ClanID {
	return ClanID("clan_" + CreateID())
}

func NewWarningID() WarningID {
	return WarningID("warning_" + CreateID())
}
