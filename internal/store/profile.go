package store

import (
	"context"

	"arena-sync/internal/gateway"
	"arena-sync/internal/model"
)

// UpdateUser writes a profile change and replaces the local user with the stored one.
// The wallet balance is only changed through purchases and entry fees.
func (s *Store) UpdateUser(ctx context.Context, patch model.UserPatch) error {
	u, epoch, err := s.requireUser()
	if err != nil {
		return err
	}
	if patch.WalletBalance != nil || (patch.XP != nil && *patch.XP < u.XP) {
		s.emit(model.NotifyError, "Sync Failed", "Wallet and XP can only change through the store.")
		return ErrForbidden
	}
	if patch.Empty() {
		return nil
	}
	return s.updateUser(ctx, epoch, u.ID, patch, "update_user", "Sync Failed")
}

func (s *Store) updateUser(ctx context.Context, epoch uint64, userID string, patch model.UserPatch, op, title string) error {
	updated, err := s.gw.UpdateUser(ctx, userID, patch)
	if err != nil {
		return s.fail(op, model.NotifySystem, title, err)
	}
	s.setUser(epoch, updated)
	return nil
}

// UploadAvatar stores a new profile image and links it to the profile.
func (s *Store) UploadAvatar(ctx context.Context, asset gateway.Asset) (string, error) {
	u, epoch, err := s.requireUser()
	if err != nil {
		return "", err
	}

	url, err := s.gw.UploadAsset(ctx, u.ID, asset)
	if err != nil {
		return "", s.fail("upload_avatar", model.NotifySystem, "Upload Error", err)
	}
	if err := s.updateUser(ctx, epoch, u.ID, model.UserPatch{AvatarURL: &url}, "upload_avatar", "Upload Error"); err != nil {
		return "", err
	}
	s.emit(model.NotifySystem, "Avatar Updated", "Your profile image has been synchronized.")
	return url, nil
}

// ToggleOrganizerMode switches between the player and organizer views.
func (s *Store) ToggleOrganizerMode(ctx context.Context) error {
	u, epoch, err := s.requireUser()
	if err != nil {
		return err
	}
	return s.updateUser(ctx, epoch, u.ID, model.UserPatch{OrganizerMode: model.Ptr(!u.OrganizerMode)}, "toggle_organizer_mode", "Sync Failed")
}

// UpdateSettings stores the user's settings; notification toggles take effect at once.
func (s *Store) UpdateSettings(ctx context.Context, settings model.Settings) error {
	u, epoch, err := s.requireUser()
	if err != nil {
		return err
	}
	settings = settings.Normalize()
	return s.updateUser(ctx, epoch, u.ID, model.UserPatch{Settings: &settings}, "update_settings", "Sync Failed")
}

// SubmitOrganizerRequest applies for the organizer role.
func (s *Store) SubmitOrganizerRequest(ctx context.Context) error {
	u, epoch, err := s.requireUser()
	if err != nil {
		return err
	}
	if !u.OrganizerStatus.CanAdvanceTo(model.OrganizerPending) {
		s.emit(model.NotifyError, "Error", "An organizer application is already on file.")
		return ErrInvalidInput
	}

	patch := model.UserPatch{OrganizerStatus: model.Ptr(model.OrganizerPending)}
	if err := s.updateUser(ctx, epoch, u.ID, patch, "submit_organizer_request", "Error"); err != nil {
		return err
	}
	s.emit(model.NotifySystem, "Request Sent", "Application pending review.")
	return nil
}

// ApproveOrganizer grants the organizer role. Admin only.
func (s *Store) ApproveOrganizer(ctx context.Context, userID string) error {
	return s.decideOrganizer(ctx, userID, model.OrganizerApproved, "Approved", "User is now an organizer.")
}

// RejectOrganizer declines an organizer application. Admin only.
func (s *Store) RejectOrganizer(ctx context.Context, userID string) error {
	return s.decideOrganizer(ctx, userID, model.OrganizerRejected, "Rejected", "Request rejected.")
}

func (s *Store) decideOrganizer(ctx context.Context, userID string, status model.OrganizerStatus, title, message string) error {
	u, epoch, err := s.requireUser()
	if err != nil {
		return err
	}
	if !u.IsAdmin {
		s.emit(model.NotifyError, "Error", "Admin rights required.")
		return ErrForbidden
	}

	patch := model.UserPatch{
		OrganizerStatus: model.Ptr(status),
		IsOrganizer:     model.Ptr(status == model.OrganizerApproved),
	}
	updated, err := s.gw.UpdateUser(ctx, userID, patch)
	if err != nil {
		return s.fail("decide_organizer", model.NotifySystem, "Error", err)
	}
	if userID == u.ID {
		s.setUser(epoch, updated)
	}
	_ = s.RefreshAdminData(ctx)
	s.emit(model.NotifySystem, title, message)
	return nil
}
