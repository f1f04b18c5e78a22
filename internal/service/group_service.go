package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/splitsettle/splitsettle/internal/models"
	"github.com/splitsettle/splitsettle/internal/storage"
)

// GroupService manages groups and their membership, including phone-number
// invites for people who have not registered yet.
type GroupService struct {
	store storage.Store
}

// NewGroupService creates a GroupService with the given storage backend.
func NewGroupService(store storage.Store) *GroupService {
	return &GroupService{store: store}
}

// CreateGroupRequest carries a new group. The creator becomes the first
// member.
type CreateGroupRequest struct {
	Name      string `json:"name"`
	Currency  string `json:"currency"`
	CreatedBy string `json:"-"`
}

// CreateGroup creates a new group with the creator as its first member.
func (s *GroupService) CreateGroup(ctx context.Context, req CreateGroupRequest) (*models.Group, error) {
	if req.Name == "" {
		return nil, models.Validationf("name is required")
	}
	if _, err := s.store.GetUser(ctx, req.CreatedBy); err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	group := &models.Group{
		Name:      req.Name,
		Currency:  currency,
		MemberIDs: []string{req.CreatedBy},
		CreatedBy: req.CreatedBy,
	}
	if err := s.store.CreateGroup(ctx, group); err != nil {
		return nil, err
	}

	slog.Info("Group created", "group_id", group.ID, "name", group.Name, "created_by", req.CreatedBy)
	return group, nil
}

// GetGroup retrieves a group by ID.
func (s *GroupService) GetGroup(ctx context.Context, groupID string) (*models.Group, error) {
	return s.store.GetGroup(ctx, groupID)
}

// GroupMembers lists a group's registered and pending members.
type GroupMembers struct {
	Members        []*models.User          `json:"members"`
	PendingMembers []*models.PendingMember `json:"pendingMembers"`
}

// ListMembers returns both member lists for a group.
func (s *GroupService) ListMembers(ctx context.Context, groupID string) (*GroupMembers, error) {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	members, err := s.store.ListGroupMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.ListGroupPendingMembers(ctx, groupID)
	if err != nil {
		return nil, err
	}
	return &GroupMembers{Members: members, PendingMembers: pending}, nil
}

// AddMember adds a registered user to the group.
func (s *GroupService) AddMember(ctx context.Context, groupID, userID string) error {
	if _, err := s.store.GetGroup(ctx, groupID); err != nil {
		return err
	}
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return err
	}
	return s.store.AddGroupMember(ctx, groupID, userID)
}

// InviteRequest invites someone to a group by phone number before they have
// registered.
type InviteRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	DisplayName string `json:"displayName"`
	AddedBy     string `json:"-"`
}

// InvitePendingMember attaches a pending member to the group. If the phone
// number already has an invited pending member, that identity is reused so
// one registration resolves every group at once.
func (s *GroupService) InvitePendingMember(ctx context.Context, groupID string, req InviteRequest) (*models.PendingMember, error) {
	if req.PhoneNumber == "" {
		return nil, models.Validationf("phoneNumber is required")
	}
	if req.DisplayName == "" {
		return nil, models.Validationf("displayName is required")
	}
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(req.AddedBy) {
		return nil, models.Validationf("user %s is not a member of group %s", req.AddedBy, groupID)
	}

	pm, err := s.store.GetInvitedByPhone(ctx, req.PhoneNumber)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
		pm = &models.PendingMember{
			PhoneNumber: req.PhoneNumber,
			DisplayName: req.DisplayName,
			AddedBy:     req.AddedBy,
			Status:      models.PendingInvited,
		}
		if err := s.store.CreatePendingMember(ctx, pm); err != nil {
			return nil, err
		}
	}

	if err := s.store.AddGroupPendingMember(ctx, groupID, pm.ID); err != nil {
		return nil, err
	}
	slog.Info("Pending member invited",
		"group_id", groupID, "pending_member_id", pm.ID, "display_name", pm.DisplayName)
	return pm, nil
}
