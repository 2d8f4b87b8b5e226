package core

import (
	"context"
	"fmt"
)

// MembershipAuthority decides whether an identity may join a room.
// Participants of the room and administrators are allowed.
type MembershipAuthority struct {
	checker MembershipChecker
}

func NewMembershipAuthority(checker MembershipChecker) *MembershipAuthority {
	return &MembershipAuthority{checker: checker}
}

func (a *MembershipAuthority) CanAccess(ctx context.Context, identity Identity, roomID string) (bool, error) {
	if identity.IsAdmin() {
		return true, nil
	}
	ok, err := a.checker.IsRoomParticipant(ctx, roomID, identity.UserID)
	if err != nil {
		return false, fmt.Errorf("IsRoomParticipant: %w", err)
	}
	return ok, nil
}
