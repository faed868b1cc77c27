package model

import (
	"time"

	"gorm.io/gorm"
)

type Session struct {
	gorm.Model
	UserID       uint      `json:"user_id" gorm:"column:user_id;index"`
	SessionToken string    `json:"session_token" gorm:"column:session_token;index;type:varchar(512)"`
	ExpiresAt    time.Time `json:"expires_at" gorm:"column:expires_at"`
	ClientIP     string    `json:"client_ip" gorm:"column:client_ip;type:varchar(45)"`
	Browser      string    `json:"browser" gorm:"column:browser;type:varchar(512)"`
}
