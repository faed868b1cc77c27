package model

import "gorm.io/gorm"

// DoctorRating is one patient's rating of one doctor. The composite unique
// index makes a second rating by the same patient an overwrite, not a new row.
type DoctorRating struct {
	gorm.Model
	DoctorID  uint   `json:"doctor_id" gorm:"column:doctor_id;uniqueIndex:idx_doctor_patient;not null"`
	PatientID uint   `json:"patient_id" gorm:"column:patient_id;uniqueIndex:idx_doctor_patient;not null"`
	Rating    int    `json:"rating" gorm:"column:rating;default:1"`
	Review    string `json:"review" gorm:"column:review;type:text"`
}
