package endpoint

import (
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/middleware"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret   = "endpoint-test-secret"
	testPassword = "secret123"
)

type testEnv struct {
	t      *testing.T
	db     *gorm.DB
	tokens *util.TokenService
	audit  *util.SecurityLogger
}

func setupEndpointTest(t *testing.T, name string) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:testdb_%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, model.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	log, _ := test.NewNullLogger()
	return &testEnv{
		t:      t,
		db:     db,
		tokens: util.NewTokenService(testSecret, time.Hour),
		audit:  util.NewSecurityLogger(db, nil).WithLogger(log),
	}
}

// publicRouter has the database session but no access guard.
func (e *testEnv) publicRouter() *gin.Engine {
	r := gin.New()
	r.Use(middleware.DatabaseMiddleware(e.db))
	r.Use(middleware.AuditMiddleware(e.audit))
	return r
}

func (e *testEnv) guardedRouter() *gin.Engine {
	r := e.publicRouter()
	r.Use(middleware.RequireBearerToken(middleware.AuthDeps{Tokens: e.tokens}))
	return r
}

// do runs spec against a fresh guarded router. registerPath defaults to requestPath.
func (e *testEnv) do(spec requestSpec) (*httptest.ResponseRecorder, map[string]interface{}) {
	e.t.Helper()
	if spec.registerPath == "" {
		spec.registerPath = spec.requestPath
	}
	w, resp, err := doRequestWithHandler(e.guardedRouter(), spec)
	require.NoError(e.t, err, w.Body.String())
	return w, resp
}

func (e *testEnv) createUser(name, email, role string) model.User {
	e.t.Helper()
	hash, err := util.HashPassword(testPassword)
	require.NoError(e.t, err)
	user := model.User{Name: name, Email: email, Password: hash, Role: role}
	require.NoError(e.t, e.db.Create(&user).Error)
	return user
}

func (e *testEnv) tokenFor(user model.User) string {
	e.t.Helper()
	issued, err := e.tokens.Issue(user.Email, user.Role)
	require.NoError(e.t, err)
	return issued.Token
}

func (e *testEnv) createMedication(name string) model.Medication {
	e.t.Helper()
	med := model.Medication{Name: name, Description: name + " description"}
	require.NoError(e.t, e.db.Create(&med).Error)
	return med
}

func (e *testEnv) provisionSenior(id, deviceID string, linked ...model.User) model.ProvisionedSenior {
	e.t.Helper()
	ids := make([]string, 0, len(linked))
	for _, u := range linked {
		ids = append(ids, u.ID)
	}
	out, err := model.ProvisionSenior(e.db, model.SeniorProvision{
		Senior:      model.Senior{ID: id, Name: "Senior " + id, BirthDate: "01/01/1940"},
		DeviceID:    deviceID,
		LinkUserIDs: ids,
	})
	require.NoError(e.t, err)
	return out
}

func (e *testEnv) createPrescription(seniorID, medID, doctorID, freq string, start, end time.Time) model.Prescription {
	e.t.Helper()
	p := model.Prescription{
		SeniorID: seniorID, MedicationID: medID, DoctorID: doctorID,
		Dosage: "1 comprimido", Frequency: freq, StartDate: start, EndDate: end,
	}
	require.NoError(e.t, e.db.Create(&p).Error)
	return p
}

func (e *testEnv) count(m interface{}, where string, args ...interface{}) int64 {
	e.t.Helper()
	var n int64
	q := e.db.Model(m)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(e.t, q.Count(&n).Error)
	return n
}

// forbiddenEvents counts audit rows recorded for 403 responses to user.
func (e *testEnv) forbiddenEvents(user model.User) int64 {
	return e.count(&model.SecurityLog{}, "event_type = ? AND user_id = ?", string(util.EventForbiddenAccess), user.ID)
}
