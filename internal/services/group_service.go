package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"conti/internal/core"
	"conti/internal/storage"
)

// GroupService decides which group a user's data belongs to.
type GroupService struct {
	groups storage.GroupRepository
	// linking is serialised so two users are only ever linked once
	mu sync.Mutex
}

func NewGroupService(groups storage.GroupRepository) *GroupService {
	return &GroupService{groups: groups}
}

// EnsurePersonal creates the personal group of uid if it does not exist yet.
func (s *GroupService) EnsurePersonal(ctx context.Context, uid string) (core.Group, error) {
	id := core.PersonalGroupID(uid)
	g, err := s.groups.GetGroup(ctx, id)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Group{}, fmt.Errorf("get personal group: %w", err)
	}

	g = core.Group{ID: id, Members: []string{uid}}
	if _, err := s.groups.AddGroup(ctx, g); err != nil {
		return core.Group{}, fmt.Errorf("create personal group: %w", err)
	}
	slog.InfoContext(ctx, "Created personal group", "user_id", uid, "group_id", id)
	return s.groups.GetGroup(ctx, id)
}

// OnSession returns an auth listener that provisions the personal group of
// every signed-in user. Sign-outs arrive as nil and are ignored.
func (s *GroupService) OnSession(ctx context.Context) func(*core.User) {
	return func(u *core.User) {
		if u == nil || u.UID == "" {
			return
		}
		if _, err := s.EnsurePersonal(ctx, u.UID); err != nil {
			slog.WarnContext(ctx, "Provisioning personal group failed", "user_id", u.UID, "error", err)
		}
	}
}

// Current returns the couple group of uid, falling back to the personal one.
func (s *GroupService) Current(ctx context.Context, uid string) (core.Group, error) {
	g, err := s.groups.FindGroupByMember(ctx, uid)
	if err == nil {
		return g, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.Group{}, fmt.Errorf("find couple: %w", err)
	}
	return s.EnsurePersonal(ctx, uid)
}

func (s *GroupService) FindByMember(ctx context.Context, uid string) (core.Group, error) {
	return s.groups.FindGroupByMember(ctx, uid)
}

// LinkCouple creates the couple group of two users. Membership is final.
func (s *GroupService) LinkCouple(ctx context.Context, uid, partnerID string) (core.Group, error) {
	if uid == "" || partnerID == "" {
		return core.Group{}, fmt.Errorf("%w: partner is required", core.ErrEmptyName)
	}
	if uid == partnerID {
		return core.Group{}, fmt.Errorf("%w: cannot link a user with themselves", core.ErrAlreadyLinked)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, member := range []string{uid, partnerID} {
		_, err := s.groups.FindGroupByMember(ctx, member)
		if err == nil {
			return core.Group{}, fmt.Errorf("%w: %s", core.ErrAlreadyLinked, member)
		}
		if !errors.Is(err, core.ErrNotFound) {
			return core.Group{}, fmt.Errorf("find couple: %w", err)
		}
	}

	id, err := s.groups.AddGroup(ctx, core.Group{Members: []string{uid, partnerID}})
	if err != nil {
		return core.Group{}, fmt.Errorf("create couple: %w", err)
	}
	slog.InfoContext(ctx, "Linked couple", "group_id", id, "user_id", uid, "partner_id", partnerID)
	return s.groups.GetGroup(ctx, id)
}
