package user

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	MaxBioLength  = 140
	DefaultBio    = "No bio yet"
	DefaultAvatar = "base.jpg"
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9](?:[A-Za-z0-9_]*[A-Za-z0-9])?$`)

type User struct {
	ID           int64   `json:"id"`
	Username     string  `json:"username"`
	Email        string  `json:"email,omitempty"`
	PasswordHash string  `json:"-"`
	Profile      Profile `json:"profile"`
}

type Profile struct {
	ID         int64      `json:"-"`
	UserID     int64      `json:"-"`
	PublicID   string     `json:"public_id"`
	Bio        string     `json:"bio"`
	AvatarPath string     `json:"avatar_path"`
	LastSeen   *time.Time `json:"last_seen,omitempty"`
}

// Public strips fields only the owner may see.
func (u *User) Public() *User {
	cp := *u
	cp.Email = ""
	return &cp
}

// ValidIdentifier reports whether s is usable as a username or public id.
func ValidIdentifier(s string) bool {
	return identifierPattern.MatchString(s)
}

// DefaultPublicID derives the public id assigned at registration.
func DefaultPublicID(username string, id int64) string {
	return fmt.Sprintf("%s_%d", strings.ToLower(username), id)
}

func BioTooLong(bio string) bool {
	return utf8.RuneCountInString(bio) > MaxBioLength
}

// RelocateAvatar moves an avatar path stored under the old public id
// directory to the new one. Other paths are returned unchanged.
func RelocateAvatar(avatarPath, oldPublicID, newPublicID string) string {
	prefix := oldPublicID + "/"
	if oldPublicID == newPublicID || !strings.HasPrefix(avatarPath, prefix) {
		return avatarPath
	}
	return newPublicID + "/" + strings.TrimPrefix(avatarPath, prefix)
}
