package endpoint

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medbook/medbook/config"
	"github.com/medbook/medbook/middleware"
	"github.com/medbook/medbook/model"
	"github.com/medbook/medbook/util"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

var testModels = []interface{}{
	&model.Role{},
	&model.User{},
	&model.Session{},
	&model.PatientProfile{},
	&model.DoctorProfile{},
	&model.DoctorAvailability{},
	&model.Appointment{},
	&model.DoctorRating{},
}

// newTestDB creates an in-memory sqlite DB with all models migrated and roles
// seeded. It also resets the rating cache and detaches Redis so handlers run
// against the DB alone.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gin.SetMode(gin.TestMode)
	config.SetRedisClientForTesting(nil)
	util.InitRatingCache(time.Minute)

	dsn := fmt.Sprintf("file:testdb_endpoint_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(testModels...); err != nil {
		t.Fatalf("failed to auto-migrate models: %v", err)
	}
	if err := model.SeedRoles(db); err != nil {
		t.Fatalf("failed to seed roles: %v", err)
	}
	return db
}

func newTestRouter(db *gorm.DB) *gin.Engine {
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(db))
	return r
}

// authAs injects an authenticated caller, bypassing the login flow.
func authAs(userID uint, roleID uint32) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetAuthContext(c, userID, roleID)
		c.Next()
	}
}

// pinClock freezes the booking clock at the given date for the duration of
// the test.
func pinClock(t *testing.T, date string) {
	t.Helper()
	fixed, err := time.Parse(dateLayout, date)
	if err != nil {
		t.Fatalf("bad pinned date %q: %v", date, err)
	}
	timeNow = func() time.Time { return fixed }
	t.Cleanup(func() { timeNow = time.Now })
}

func seedUser(t *testing.T, db *gorm.DB, name, email string, roleID uint32) model.User {
	t.Helper()
	user := model.User{Name: name, Email: email, Password: "hash", PasswordSalt: "salt", RoleID: roleID}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("failed to seed user %s: %v", email, err)
	}
	return user
}

func seedPatient(t *testing.T, db *gorm.DB, name, email string) model.User {
	t.Helper()
	user := seedUser(t, db, name, email, model.RolePatient)
	if err := db.Create(&model.PatientProfile{UserID: user.ID}).Error; err != nil {
		t.Fatalf("failed to seed patient profile: %v", err)
	}
	return user
}

func seedDoctor(t *testing.T, db *gorm.DB, name, email, specialization string, approved bool) (model.User, model.DoctorProfile) {
	t.Helper()
	user := seedUser(t, db, name, email, model.RoleDoctor)
	profile := model.DoctorProfile{UserID: user.ID, Specialization: specialization, IsApproved: approved}
	if err := db.Create(&profile).Error; err != nil {
		t.Fatalf("failed to seed doctor profile: %v", err)
	}
	return user, profile
}

func seedWindow(t *testing.T, db *gorm.DB, doctorID uint, day int, start, end string) model.DoctorAvailability {
	t.Helper()
	window := model.DoctorAvailability{DoctorID: doctorID, DayOfWeek: day, StartTime: start, EndTime: end}
	if err := db.Create(&window).Error; err != nil {
		t.Fatalf("failed to seed availability window: %v", err)
	}
	return window
}

func seedAppointment(t *testing.T, db *gorm.DB, patientID, doctorID uint, status model.AppointmentStatus) model.Appointment {
	t.Helper()
	appointment := model.Appointment{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      "2030-06-10",
		Time:      "10:00",
		Status:    status,
	}
	if err := db.Create(&appointment).Error; err != nil {
		t.Fatalf("failed to seed appointment: %v", err)
	}
	return appointment
}

// doJSON sends a request with an optional JSON body and decodes the envelope.
func doJSON(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *strings.Reader
	if body == nil {
		reader = strings.NewReader("")
	} else {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = strings.NewReader(string(b))
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp map[string]interface{}
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response body %q: %v", w.Body.String(), err)
		}
	}
	return w, resp
}

// newRequestWithToken builds a request carrying the session-token header.
func newRequestWithToken(t *testing.T, method, path, token string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(""))
	if token != "" {
		req.Header.Set("session-token", token)
	}
	return req
}

func serveRequest(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// dataField digs a key out of the response envelope's data object.
func dataField(t *testing.T, resp map[string]interface{}, key string) interface{} {
	t.Helper()
	data, ok := resp["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("response data is not an object: %v", resp["data"])
	}
	return data[key]
}
