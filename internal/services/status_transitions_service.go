package services

import "orgchat/internal/models"

// Allowed status transitions. Unarchiving is the only way back to active.
var ChatTransitions = map[models.ChatStatus]map[models.ChatStatus]bool{
	models.ChatStatusActive:   {models.ChatStatusArchived: true, models.ChatStatusDeleted: true},
	models.ChatStatusArchived: {models.ChatStatusActive: true, models.ChatStatusDeleted: true},
	models.ChatStatusDeleted:  {},
}

// Members leave or get removed; re-adding reactivates the row.
var MemberTransitions = map[models.ChatMemberStatus]map[models.ChatMemberStatus]bool{
	models.MemberStatusActive:  {models.MemberStatusRemoved: true, models.MemberStatusLeft: true},
	models.MemberStatusRemoved: {models.MemberStatusActive: true},
	models.MemberStatusLeft:    {models.MemberStatusActive: true},
}

func canTransition[S ~string](current, to S, table map[S]map[S]bool) bool {
	nexts, ok := table[current]
	if !ok {
		return false
	}
	return nexts[to]
}
