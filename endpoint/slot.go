package endpoint

import (
	"errors"
	"time"

	"github.com/medbook/medbook/model"
	"gorm.io/gorm"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Rejection kinds surfaced to callers. Handlers map these onto 4xx responses;
// anything else coming out of the booking path is a server error.
var (
	ErrInvalidSlotFormat = errors.New("invalid date or time format")
	ErrPastDate          = errors.New("cannot book appointments for past dates")
	ErrDoctorUnavailable = errors.New("doctor not available at this time")
	ErrDoctorNotApproved = errors.New("doctor is not accepting appointments yet")
	ErrNotEligible       = errors.New("rating requires a completed appointment with this doctor")
)

// timeNow is stubbed in tests to pin the booking clock.
var timeNow = time.Now

// weekdayIndex maps a calendar date onto the availability day index
// (0 = Monday .. 6 = Sunday).
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// minutesOfDay converts an "HH:MM" wall-clock string to minutes since midnight.
func minutesOfDay(s string) (int, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}

// checkSlotBookable decides whether the (date, time) slot can be booked with
// the doctor. The slot is bookable when the date is today or later and the
// time falls within any of the doctor's availability windows for that
// weekday, boundaries included. Existing appointments are not consulted, so
// two patients can hold the same slot; resolving that is a product decision,
// not a validation concern here.
func checkSlotBookable(db *gorm.DB, doctorID uint, dateStr, timeStr string) error {
	date, err := time.Parse(dateLayout, dateStr)
	if err != nil {
		return ErrInvalidSlotFormat
	}
	slotMinutes, err := minutesOfDay(timeStr)
	if err != nil {
		return ErrInvalidSlotFormat
	}

	today, err := time.Parse(dateLayout, timeNow().Format(dateLayout))
	if err != nil {
		return err
	}
	if date.Before(today) {
		return ErrPastDate
	}

	var windows []model.DoctorAvailability
	if err := db.Where("doctor_id = ? AND day_of_week = ?", doctorID, weekdayIndex(date)).Find(&windows).Error; err != nil {
		return err
	}

	for _, w := range windows {
		start, err := minutesOfDay(w.StartTime)
		if err != nil {
			continue
		}
		end, err := minutesOfDay(w.EndTime)
		if err != nil {
			continue
		}
		if slotMinutes >= start && slotMinutes <= end {
			return nil
		}
	}
	return ErrDoctorUnavailable
}
