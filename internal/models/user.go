package models

import "time"

// Role 用户角色
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleUpload Role = "upload"
	RoleGuest  Role = "guest"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleUpload, RoleGuest:
		return true
	}
	return false
}

// CanWrite 访客只读，其余角色可录入数据
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleUpload
}

// User 登录用户
type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         Role      `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Session 登录会话
type Session struct {
	Token     string    `json:"token" db:"token"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Expired 会话是否已过期
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
