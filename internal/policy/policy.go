// Package policy holds the pure authorization rules. Every function is
// a predicate over an actor and a target; nothing here touches storage.
package policy

import "picshare/internal/models"

// CanEditResource: resource mutation is owner-only.
func CanEditResource(actor models.User, ownerID int64) bool {
	return actor.ID == ownerID
}

// CanModerate: image status decisions require the moderator flag,
// regardless of ownership.
func CanModerate(actor models.User) bool {
	return actor.IsModerator
}

// CanChangeRoles: role edits are admin-only and never self-targeted.
func CanChangeRoles(actor models.User, targetID int64) bool {
	return actor.IsAdmin && actor.ID != targetID
}

// CanBan: ban and unban are admin-only and never self-targeted.
func CanBan(actor models.User, targetID int64) bool {
	return actor.IsAdmin && actor.ID != targetID
}

// CanAdminister gates read-only admin surfaces like the user list.
func CanAdminister(actor models.User) bool {
	return actor.IsAdmin
}

// CanView: public resources need no actor, private ones only their
// owner. actor is nil for anonymous requests.
func CanView(actor *models.User, ownerID int64, isPublic bool) bool {
	if isPublic {
		return true
	}
	return actor != nil && actor.ID == ownerID
}
