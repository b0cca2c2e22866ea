package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/serenacare/serena-api/config"
	"github.com/serenacare/serena-api/endpoint"
	"github.com/serenacare/serena-api/middleware"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Deps are the long-lived handles the router is built from.
type Deps struct {
	Cfg       *config.Config
	DB        *gorm.DB
	Redis     *redis.Client
	Tokens    *util.TokenService
	Revoker   *util.TokenRevoker
	Audit     *util.SecurityLogger
	Assembler endpoint.ReportAssembler
	Log       logrus.FieldLogger
}

// NewRouter wires every route. Everything except the welcome page and login
// sits behind the bearer token guard.
func NewRouter(d Deps) *gin.Engine {
	if d.Cfg == nil {
		d.Cfg = config.LoadConfig()
	}
	if d.Assembler.Doses == nil {
		d.Assembler = endpoint.NewReportAssembler()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.EndpointCallLogger(d.Log))
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.DatabaseMiddleware(d.DB))
	router.Use(middleware.AuditMiddleware(d.Audit))

	router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": fmt.Sprintf("Welcome to %s!", d.Cfg.AppName),
		})
	})

	loginLimiter := middleware.NewRateLimit(middleware.RateLimitConfig{
		Limit:  d.Cfg.LoginRateLimit,
		Window: d.Cfg.LoginRateWindow,
		Redis:  d.Redis,
		Audit:  d.Audit,
	})
	auth := endpoint.AuthHandlers{Tokens: d.Tokens, Revoker: d.Revoker, Audit: d.Audit, Limiter: loginLimiter}
	reports := endpoint.ReportHandlers{Assembler: d.Assembler}

	router.POST("/auth/login", loginLimiter.Handler(), auth.Login)

	protected := router.Group("/")
	protected.Use(middleware.RequireBearerToken(middleware.AuthDeps{
		Tokens:  d.Tokens,
		Revoker: d.Revoker,
		Audit:   d.Audit,
	}))

	protected.GET("/auth/me", endpoint.Me)
	protected.DELETE("/auth/logout", auth.Logout)

	users := protected.Group("/users")
	{
		users.GET("", endpoint.ListUsers)
		users.GET("/:id", endpoint.GetUser)
		users.POST("", endpoint.CreateUser)
		users.PUT("/:id", endpoint.UpdateUser)
		users.PUT("/:id/role", middleware.RequireRole(model.RoleDoctor), endpoint.UpdateUserRole)
		users.DELETE("/:id", endpoint.DeleteUser)
	}

	senior := protected.Group("/senior")
	{
		senior.GET("", endpoint.ListSeniors)
		senior.GET("/:id", endpoint.GetSenior)
		senior.POST("", endpoint.CreateSenior)
		senior.PUT("/:id", endpoint.UpdateSenior)
		senior.DELETE("/:id", endpoint.DeleteSenior)
		senior.GET("/by_device/:device_id", endpoint.GetSeniorByDevice)
		senior.GET("/by_user/:user_id", endpoint.ListSeniorsByUser)
	}

	device := protected.Group("/device")
	{
		device.GET("/:device_id", endpoint.GetDevice)
		device.PATCH("/:device_id", endpoint.UpdateDevice)
		device.GET("/by_senior/:senior_id", endpoint.GetDeviceBySenior)
	}

	dispenser := protected.Group("/dispenser")
	{
		dispenser.GET("", endpoint.ListDispensers)
		dispenser.GET("/:id", endpoint.GetDispenser)
		dispenser.POST("", endpoint.CreateDispenser)
		dispenser.PUT("/:id", endpoint.UpdateDispenser)
		dispenser.DELETE("/:id", endpoint.DeleteDispenser)
		dispenser.GET("/by_device/:device_id", endpoint.GetDispenserByDevice)
		dispenser.GET("/by_senior/:senior_id", endpoint.GetDispenserBySenior)
	}

	compartment := protected.Group("/compartment")
	{
		compartment.GET("", endpoint.ListCompartments)
		compartment.GET("/:id", endpoint.GetCompartment)
		compartment.POST("", endpoint.CreateCompartment)
		compartment.PUT("/:id", endpoint.UpdateCompartment)
		compartment.PATCH("/:id", endpoint.PatchCompartment)
		compartment.DELETE("/:id", endpoint.DeleteCompartment)
	}

	medications := protected.Group("/medications")
	{
		medications.GET("", endpoint.ListMedications)
		medications.GET("/:id", endpoint.GetMedication)
		medications.POST("", endpoint.CreateMedication)
		medications.PUT("/:id", endpoint.UpdateMedication)
		medications.DELETE("/:id", endpoint.DeleteMedication)
	}

	prescriptions := protected.Group("/prescriptions")
	{
		prescriptions.GET("", endpoint.ListPrescriptions)
		prescriptions.GET("/:id", endpoint.GetPrescription)
		prescriptions.POST("", endpoint.CreatePrescription)
		prescriptions.PUT("/:id", endpoint.UpdatePrescription)
		prescriptions.DELETE("/:id", endpoint.DeletePrescription)
		prescriptions.GET("/by_senior/:senior_id", endpoint.ListPrescriptionsBySenior)
		prescriptions.GET("/by_device/:device_id", endpoint.ListPrescriptionsByDevice)
	}

	symptoms := protected.Group("/symptoms")
	{
		symptoms.GET("", endpoint.ListSymptoms)
		symptoms.GET("/:id", endpoint.GetSymptom)
		symptoms.POST("", endpoint.CreateSymptom)
		symptoms.PUT("/:id", endpoint.UpdateSymptom)
		symptoms.DELETE("/:id", endpoint.DeleteSymptom)
		symptoms.GET("/by_senior/:senior_id", endpoint.ListSymptomsBySenior)
		symptoms.POST("/by_device/:device_id", endpoint.CreateSymptomByDevice)
	}

	reportGroup := protected.Group("/reports")
	{
		reportGroup.GET("", endpoint.ListReports)
		reportGroup.GET("/:id", endpoint.GetReport)
		reportGroup.POST("", endpoint.CreateReport)
		reportGroup.DELETE("/:id", endpoint.DeleteReport)
		reportGroup.GET("/report/:senior_id", reports.ConsolidatedReport)
	}

	return router
}

// NewHTTPServer wraps the router with the listen address and timeouts.
func NewHTTPServer(cfg *config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.AppPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
