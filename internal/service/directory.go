package service

import (
	"chatline/internal/realtime"
	"chatline/internal/repository"
)

// Directory resolves member-info snapshots for presence grants from the
// user and presence tables.
type Directory struct {
	users    *repository.UserRepository
	presence *repository.PresenceRepository
}

func NewDirectory(users *repository.UserRepository, presence *repository.PresenceRepository) *Directory {
	return &Directory{users: users, presence: presence}
}

func (d *Directory) Lookup(userID uint) (realtime.MemberInfo, error) {
	u, err := d.users.GetByID(userID)
	if err != nil {
		return realtime.MemberInfo{}, err
	}
	info := realtime.MemberInfo{
		UserID:    u.ID,
		Username:  u.Username,
		AvatarURL: u.AvatarURL,
	}
	if p, err := d.presence.GetByUserID(userID); err == nil {
		info.IsOnline = p.IsOnline
		last := p.LastSeenAt
		info.LastSeenAt = &last
	}
	return info, nil
}
