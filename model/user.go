package model

import "gorm.io/gorm"

type User struct {
	gorm.Model
	Name           string `json:"name" gorm:"column:name"`
	Email          string `json:"email" gorm:"column:email;uniqueIndex;type:varchar(191)"`
	Password       string `json:"-" gorm:"column:password"`
	PasswordSalt   string `json:"-" gorm:"column:password_salt"`
	RoleID         uint32 `json:"role_id" gorm:"column:role_id"`
	FailedAttempts int    `json:"-" gorm:"column:failed_attempts;default:0"`
	LockedUntil    *int64 `json:"-" gorm:"column:locked_until"`
}
