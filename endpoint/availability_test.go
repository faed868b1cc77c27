package endpoint

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/medbook/medbook/model"
	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestValidateAvailabilityRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     createAvailabilityRequest
		wantErr bool
	}{
		{
			name: "valid window",
			req:  createAvailabilityRequest{DayOfWeek: intPtr(model.Monday), StartTime: "09:00", EndTime: "12:00"},
		},
		{
			name: "sunday is valid",
			req:  createAvailabilityRequest{DayOfWeek: intPtr(model.Sunday), StartTime: "09:00", EndTime: "12:00"},
		},
		{
			name:    "day below range",
			req:     createAvailabilityRequest{DayOfWeek: intPtr(-1), StartTime: "09:00", EndTime: "12:00"},
			wantErr: true,
		},
		{
			name:    "day above range",
			req:     createAvailabilityRequest{DayOfWeek: intPtr(7), StartTime: "09:00", EndTime: "12:00"},
			wantErr: true,
		},
		{
			name:    "bad start time",
			req:     createAvailabilityRequest{DayOfWeek: intPtr(model.Monday), StartTime: "9am", EndTime: "12:00"},
			wantErr: true,
		},
		{
			name:    "bad end time",
			req:     createAvailabilityRequest{DayOfWeek: intPtr(model.Monday), StartTime: "09:00", EndTime: "noon"},
			wantErr: true,
		},
		{
			name:    "start equals end",
			req:     createAvailabilityRequest{DayOfWeek: intPtr(model.Monday), StartTime: "09:00", EndTime: "09:00"},
			wantErr: true,
		},
		{
			name:    "start after end",
			req:     createAvailabilityRequest{DayOfWeek: intPtr(model.Monday), StartTime: "12:00", EndTime: "09:00"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAvailabilityRequest(tt.req)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCreateAvailability(t *testing.T) {
	db := newTestDB(t)

	doctorUser, doctor := seedDoctor(t, db, "Dr. Gray", "gray@example.com", "Cardiology", true)

	r := newTestRouter(db)
	r.POST("/doctor/availability", authAs(doctorUser.ID, model.RoleDoctor), CreateAvailability)

	w, _ := doJSON(t, r, "POST", "/doctor/availability", map[string]interface{}{
		"day_of_week": model.Monday,
		"start_time":  "09:00",
		"end_time":    "12:00",
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var window model.DoctorAvailability
	assert.NoError(t, db.Where("doctor_id = ?", doctor.ID).First(&window).Error)
	assert.Equal(t, model.Monday, window.DayOfWeek)
	assert.Equal(t, "09:00", window.StartTime)
	assert.Equal(t, "12:00", window.EndTime)
}

func TestCreateAvailability_InvalidWindow(t *testing.T) {
	db := newTestDB(t)

	doctorUser, _ := seedDoctor(t, db, "Dr. Gray", "gray@example.com", "Cardiology", true)

	r := newTestRouter(db)
	r.POST("/doctor/availability", authAs(doctorUser.ID, model.RoleDoctor), CreateAvailability)

	w, _ := doJSON(t, r, "POST", "/doctor/availability", map[string]interface{}{
		"day_of_week": model.Monday,
		"start_time":  "12:00",
		"end_time":    "09:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateAvailability_NotADoctor(t *testing.T) {
	db := newTestDB(t)

	patient := seedPatient(t, db, "Alice", "alice@example.com")

	r := newTestRouter(db)
	r.POST("/doctor/availability", authAs(patient.ID, model.RolePatient), CreateAvailability)

	w, _ := doJSON(t, r, "POST", "/doctor/availability", map[string]interface{}{
		"day_of_week": model.Monday,
		"start_time":  "09:00",
		"end_time":    "12:00",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListMyAvailability(t *testing.T) {
	db := newTestDB(t)

	doctorUser, doctor := seedDoctor(t, db, "Dr. Gray", "gray@example.com", "Cardiology", true)
	_, other := seedDoctor(t, db, "Dr. Stone", "stone@example.com", "Neurology", true)
	seedWindow(t, db, doctor.ID, model.Monday, "09:00", "12:00")
	seedWindow(t, db, doctor.ID, model.Friday, "14:00", "17:00")
	seedWindow(t, db, other.ID, model.Monday, "08:00", "10:00")

	r := newTestRouter(db)
	r.GET("/doctor/availability", authAs(doctorUser.ID, model.RoleDoctor), ListMyAvailability)

	w, resp := doJSON(t, r, "GET", "/doctor/availability", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), dataField(t, resp, "total"))
}

func TestListDoctorAvailability_Public(t *testing.T) {
	db := newTestDB(t)

	_, doctor := seedDoctor(t, db, "Dr. Gray", "gray@example.com", "Cardiology", true)
	seedWindow(t, db, doctor.ID, model.Monday, "09:00", "12:00")

	r := newTestRouter(db)
	r.GET("/doctor/:id/availability", ListDoctorAvailability)

	w, resp := doJSON(t, r, "GET", fmt.Sprintf("/doctor/%d/availability", doctor.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), dataField(t, resp, "total"))

	w, _ = doJSON(t, r, "GET", "/doctor/99/availability", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteAvailability(t *testing.T) {
	db := newTestDB(t)

	doctorUser, doctor := seedDoctor(t, db, "Dr. Gray", "gray@example.com", "Cardiology", true)
	window := seedWindow(t, db, doctor.ID, model.Monday, "09:00", "12:00")

	r := newTestRouter(db)
	r.DELETE("/doctor/availability/:id", authAs(doctorUser.ID, model.RoleDoctor), DeleteAvailability)

	w, _ := doJSON(t, r, "DELETE", fmt.Sprintf("/doctor/availability/%d", window.ID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var count int64
	db.Model(&model.DoctorAvailability{}).Where("doctor_id = ?", doctor.ID).Count(&count)
	assert.Equal(t, int64(0), count)
}

func TestDeleteAvailability_OtherDoctorsWindow(t *testing.T) {
	db := newTestDB(t)

	_, doctor := seedDoctor(t, db, "Dr. Gray", "gray@example.com", "Cardiology", true)
	otherUser, _ := seedDoctor(t, db, "Dr. Stone", "stone@example.com", "Neurology", true)
	window := seedWindow(t, db, doctor.ID, model.Monday, "09:00", "12:00")

	r := newTestRouter(db)
	r.DELETE("/doctor/availability/:id", authAs(otherUser.ID, model.RoleDoctor), DeleteAvailability)

	w, _ := doJSON(t, r, "DELETE", fmt.Sprintf("/doctor/availability/%d", window.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var count int64
	db.Model(&model.DoctorAvailability{}).Where("id = ?", window.ID).Count(&count)
	assert.Equal(t, int64(1), count)
}
