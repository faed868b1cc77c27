package model

import "gorm.io/gorm"

// Day-of-week indexes for availability windows, Monday first.
const (
	Monday = iota
	Tuesday
	Wednesday
	Thursday
	Friday
	Saturday
	Sunday
)

// DoctorAvailability is a recurring weekly window during which a doctor
// accepts bookings. Times are wall-clock "HH:MM" strings with no timezone.
// Windows are created and deleted whole; there is no update-in-place.
type DoctorAvailability struct {
	gorm.Model
	DoctorID  uint   `json:"doctor_id" gorm:"column:doctor_id;index;not null"`
	DayOfWeek int    `json:"day_of_week" gorm:"column:day_of_week;not null"`
	StartTime string `json:"start_time" gorm:"column:start_time;type:varchar(5);not null"`
	EndTime   string `json:"end_time" gorm:"column:end_time;type:varchar(5);not null"`
}
