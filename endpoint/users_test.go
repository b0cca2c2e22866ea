package endpoint

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/serenacare/serena-api/middleware"
	"github.com/serenacare/serena-api/model"
	"github.com/serenacare/serena-api/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateUser_HashesPasswordAndRejectsDuplicates(t *testing.T) {
	env := setupEndpointTest(t, "users_create")
	admin := env.createUser("Admin", "admin@serena.com", model.RoleCaregiver)
	token := env.tokenFor(admin)

	body := map[string]string{"name": "  Dra.   Ana ", "email": "Ana@Serena.com", "password": "doctor123", "role": model.RoleDoctor}
	w, resp := env.do(requestSpec{method: http.MethodPost, requestPath: "/users", handler: CreateUser, body: body, token: token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "Dra. Ana", dataMap(resp)["name"])
	assert.Equal(t, "ana@serena.com", dataMap(resp)["email"])
	assert.NotContains(t, w.Body.String(), "doctor123")

	var stored model.User
	require.NoError(t, env.db.Where("email = ?", "ana@serena.com").First(&stored).Error)
	assert.NotEqual(t, "doctor123", stored.Password)
	assert.True(t, util.VerifyPassword("doctor123", stored.Password))

	w, _ = env.do(requestSpec{method: http.MethodPost, requestPath: "/users", handler: CreateUser, body: body, token: token})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, int64(1), env.count(&model.User{}, "email = ?", "ana@serena.com"))
}

func TestCreateUser_InvalidRole(t *testing.T) {
	env := setupEndpointTest(t, "users_role")
	admin := env.createUser("Admin", "admin@serena.com", model.RoleCaregiver)

	body := map[string]string{"name": "X", "email": "x@serena.com", "password": "secret123", "role": "admin"}
	w, _ := env.do(requestSpec{method: http.MethodPost, requestPath: "/users", handler: CreateUser, body: body, token: env.tokenFor(admin)})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateUser_DoctorRoleNeedsManager(t *testing.T) {
	env := setupEndpointTest(t, "users_create_doctor")
	caregiver := env.createUser("Carla", "carla@serena.com", model.RoleCaregiver)
	doctor := env.createUser("Dra. Ana", "ana@serena.com", model.RoleDoctor)

	newDoctor := map[string]string{"name": "Dr. Novo", "email": "novo@serena.com", "password": "secret123", "role": model.RoleDoctor}
	w, _ := env.do(requestSpec{method: http.MethodPost, requestPath: "/users", handler: CreateUser, body: newDoctor, token: env.tokenFor(caregiver)})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, int64(0), env.count(&model.User{}, "email = ?", "novo@serena.com"))
	assert.Equal(t, int64(1), env.forbiddenEvents(caregiver))

	newCaregiver := map[string]string{"name": "Bia", "email": "bia@serena.com", "password": "secret123", "role": model.RoleCaregiver}
	w, _ = env.do(requestSpec{method: http.MethodPost, requestPath: "/users", handler: CreateUser, body: newCaregiver, token: env.tokenFor(caregiver)})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, _ = env.do(requestSpec{method: http.MethodPost, requestPath: "/users", handler: CreateUser, body: newDoctor, token: env.tokenFor(doctor)})
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestUpdateUser_OwnAccountOnly(t *testing.T) {
	env := setupEndpointTest(t, "users_update")
	admin := env.createUser("Admin", "admin@serena.com", model.RoleCaregiver)
	bruno := env.createUser("Bruno", "bruno@serena.com", model.RoleCaregiver)

	update := requestSpec{method: http.MethodPut, registerPath: "/users/:id", requestPath: "/users/" + bruno.ID, handler: UpdateUser}

	update.body = map[string]string{"password": "owned1234"}
	update.token = env.tokenFor(admin)
	w, _ := env.do(update)
	assert.Equal(t, http.StatusForbidden, w.Code)
	var stored model.User
	require.NoError(t, env.db.First(&stored, "id = ?", bruno.ID).Error)
	assert.True(t, util.VerifyPassword(testPassword, stored.Password))

	update.body = map[string]string{"name": "Bruno Lima"}
	update.token = env.tokenFor(bruno)
	w, resp := env.do(update)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Bruno Lima", dataMap(resp)["name"])
	assert.Equal(t, "bruno@serena.com", dataMap(resp)["email"])

	update.body = map[string]string{"email": "admin@serena.com"}
	w, _ = env.do(update)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// role is not an account field
	update.body = map[string]string{"role": model.RoleDoctor}
	w, resp = env.do(update)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.RoleCaregiver, dataMap(resp)["role"])
}

func TestUpdateUserRole_DoctorsOnly(t *testing.T) {
	env := setupEndpointTest(t, "users_role_change")
	caregiver := env.createUser("Carla", "carla@serena.com", model.RoleCaregiver)
	doctor := env.createUser("Dra. Ana", "ana@serena.com", model.RoleDoctor)

	spec := requestSpec{
		method: http.MethodPut, registerPath: "/users/:id/role", requestPath: "/users/" + caregiver.ID + "/role",
		handler: UpdateUserRole, middlewares: []gin.HandlerFunc{middleware.RequireRole(model.RoleDoctor)},
		body: map[string]string{"role": model.RoleDoctor},
	}

	spec.token = env.tokenFor(caregiver)
	w, _ := env.do(spec)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, int64(1), env.forbiddenEvents(caregiver))

	spec.token = env.tokenFor(doctor)
	w, resp := env.do(spec)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, model.RoleDoctor, dataMap(resp)["role"])
	assert.Equal(t, int64(1), env.count(&model.User{}, "id = ? AND role = ?", caregiver.ID, model.RoleDoctor))

	spec.body = map[string]string{"role": "admin"}
	w, _ = env.do(spec)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteUser(t *testing.T) {
	env := setupEndpointTest(t, "users_delete")
	admin := env.createUser("Admin", "admin@serena.com", model.RoleCaregiver)
	carla := env.createUser("Carla", "carla@serena.com", model.RoleCaregiver)
	bruno := env.createUser("Bruno", "bruno@serena.com", model.RoleCaregiver)
	env.provisionSenior("11111111111", "D1", bruno)

	del := requestSpec{method: http.MethodDelete, registerPath: "/users/:id", requestPath: "/users/" + bruno.ID, handler: DeleteUser}

	del.token = env.tokenFor(carla)
	w, _ := env.do(del)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, int64(1), env.count(&model.User{}, "id = ?", bruno.ID))

	del.token = env.tokenFor(admin)
	w, _ = env.do(del)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, int64(0), env.count(&model.UserSenior{}, "user_id = ?", bruno.ID))

	w, _ = env.do(del)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// anyone may close their own account
	del.requestPath = "/users/" + carla.ID
	del.token = env.tokenFor(carla)
	w, _ = env.do(del)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestListUsers_FilterByRole(t *testing.T) {
	env := setupEndpointTest(t, "users_list")
	admin := env.createUser("Admin", "admin@serena.com", model.RoleCaregiver)
	env.createUser("Dra. Ana", "ana@serena.com", model.RoleDoctor)

	w, resp := env.do(requestSpec{method: http.MethodGet, registerPath: "/users", requestPath: "/users?role=doctor", handler: ListUsers, token: env.tokenFor(admin)})
	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, dataList(resp), 1)
	assert.Equal(t, "ana@serena.com", dataList(resp)[0].(map[string]interface{})["email"])
}
