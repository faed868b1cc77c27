package model

import "gorm.io/gorm"

// DoctorProfile carries the doctor-specific attributes of a user. A doctor
// is not bookable until an admin flips IsApproved.
type DoctorProfile struct {
	gorm.Model
	UserID          uint    `json:"user_id" gorm:"column:user_id;uniqueIndex"`
	Specialization  string  `json:"specialization" gorm:"column:specialization;type:varchar(100)"`
	ConsultationFee float64 `json:"consultation_fee" gorm:"column:consultation_fee"`
	IsApproved      bool    `json:"is_approved" gorm:"column:is_approved;default:false"`
}
