package model

import "gorm.io/gorm"

// AppointmentStatus is the lifecycle state of an appointment.
type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
)

type Appointment struct {
	gorm.Model
	PatientID uint              `json:"patient_id" gorm:"column:patient_id;index;not null"`
	DoctorID  uint              `json:"doctor_id" gorm:"column:doctor_id;index;not null"`
	Date      string            `json:"date" gorm:"column:date;type:varchar(10);not null"`
	Time      string            `json:"time" gorm:"column:time;type:varchar(5);not null"`
	Status    AppointmentStatus `json:"status" gorm:"column:status;type:varchar(20);default:'PENDING'"`
	Notes     string            `json:"notes" gorm:"column:notes;type:text"`
}
