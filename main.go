// main.go
package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/medbook/medbook/config"
	"github.com/medbook/medbook/endpoint"
	"github.com/medbook/medbook/middleware"
	"github.com/medbook/medbook/model"
	"github.com/medbook/medbook/util"
)

func main() {
	// Load the configuration
	cfg := config.LoadConfig()

	db, err := config.ConnectMySQL()
	if err != nil {
		log.Fatalf("Error connecting to MySQL: %v", err)
	}
	err = db.AutoMigrate(
		&model.Role{},
		&model.User{},
		&model.Session{},
		&model.PatientProfile{},
		&model.DoctorProfile{},
		&model.DoctorAvailability{},
		&model.Appointment{},
		&model.DoctorRating{},
		&model.SecurityLog{},
	)
	if err != nil {
		log.Fatalf("Error migrating schema: %v", err)
	}
	if err := model.SeedRoles(db); err != nil {
		log.Fatalf("Error seeding roles: %v", err)
	}

	util.SetSecurityLoggerDB(db)
	util.InitRatingCache(5 * time.Minute)

	// Redis is best-effort; sessions fall back to the DB without it.
	if _, err := config.ConnectRedis(); err != nil {
		log.Printf("Redis unavailable: %v", err)
	}

	// Set Gin mode from config
	gin.SetMode(cfg.GinMode)

	router := gin.Default()
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(db))
	router.Use(middleware.EndpointCallLogger())

	// Basic HTTP handler for root path
	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", cfg.AppName),
		})
	})

	authLimiter := middleware.RateLimiter(middleware.RateLimitConfig{Limit: 5, Window: 15 * time.Minute})

	// Public surface
	router.POST("/signup", authLimiter, endpoint.Signup)
	router.POST("/login", authLimiter, endpoint.Login)
	router.GET("/doctor", endpoint.ListDoctors)
	router.GET("/doctor/specialities", endpoint.ListSpecialities)
	router.GET("/doctor/:id", endpoint.GetDoctor)
	router.GET("/doctor/:id/availability", endpoint.ListDoctorAvailability)
	router.GET("/doctor/:id/rating", endpoint.ListDoctorRatings)

	// Authenticated surface
	auth := router.Group("/", middleware.ValidateLoginToken)
	auth.DELETE("/logout", endpoint.Logout)
	auth.GET("/token/validate", endpoint.ValidateToken)

	patient := auth.Group("/", middleware.RequireRole(model.RolePatient))
	patient.GET("/patient/profile", endpoint.GetPatientProfile)
	patient.PATCH("/patient/profile", endpoint.UpdatePatientProfile)
	patient.POST("/appointment", endpoint.BookAppointment)
	patient.PATCH("/appointment/:id", endpoint.RescheduleAppointment)
	patient.DELETE("/appointment/:id", endpoint.DeleteAppointment)
	patient.POST("/doctor/:id/rating", endpoint.RateDoctor)

	doctor := auth.Group("/", middleware.RequireRole(model.RoleDoctor))
	doctor.PATCH("/doctor/profile", endpoint.UpdateDoctorProfile)
	doctor.GET("/availability", endpoint.ListMyAvailability)
	doctor.POST("/availability", endpoint.CreateAvailability)
	doctor.DELETE("/availability/:id", endpoint.DeleteAvailability)
	doctor.PATCH("/appointment/:id/action", endpoint.AppointmentAction)

	// Both owner sides read appointments
	auth.GET("/appointment", endpoint.ListAppointments)
	auth.GET("/appointment/:id", endpoint.GetAppointment)

	admin := auth.Group("/", middleware.RequireRole(model.RoleAdmin))
	admin.PATCH("/doctor/:id/approve", endpoint.ApproveDoctor)

	// Start server on specified port
	address := fmt.Sprintf(":%d", cfg.AppPort)
	if err := router.Run(address); err != nil {
		log.Fatalf("error starting server: %v", err)
	}
}
