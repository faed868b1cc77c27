package model

import "gorm.io/gorm"

type PatientProfile struct {
	gorm.Model
	UserID      uint   `json:"user_id" gorm:"column:user_id;uniqueIndex"`
	Phone       string `json:"phone" gorm:"column:phone;type:varchar(20)"`
	Gender      string `json:"gender" gorm:"column:gender;type:varchar(10)"`
	DateOfBirth string `json:"date_of_birth" gorm:"column:date_of_birth;type:varchar(10)"`
	Location    string `json:"location" gorm:"column:location;type:varchar(100)"`
	Address     string `json:"address" gorm:"column:address;type:text"`
}
