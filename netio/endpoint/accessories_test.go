package endpoint

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hapcore/hap/accessory"
	"github.com/hapcore/hap/db"
	"github.com/hapcore/hap/netio"
	"github.com/hapcore/hap/netio/controller"
	"github.com/hapcore/hap/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContainer(t *testing.T) *accessory.Container {
	t.Helper()
	info := service.NewAccessoryInformation("Test", "Acme", "T1", "0001", "1.0", nil)
	acc := accessory.New(info)
	sw, _ := service.NewSwitch()
	acc.AddService(sw)
	container, err := accessory.NewContainer(acc)
	require.NoError(t, err)
	return container
}

func requestWithSession(method, target string, sess *netio.Session) *http.Request {
	r := httptest.NewRequest(method, target, nil)
	ctx := netio.ContextWithSession(r.Context(), sess)
	return r.WithContext(ctx)
}

func encryptedSession() *netio.Session {
	sess := netio.NewSession()
	var readKey, writeKey [32]byte
	sess.FinishVerify(readKey, writeKey, 0, db.PermissionAdmin)
	return sess
}

func TestAccessoriesEndpointRequiresEncryptedSession(t *testing.T) {
	container := newTestContainer(t)
	ep := NewAccessories(controller.NewContainerController(container))

	rec := httptest.NewRecorder()
	req := requestWithSession(http.MethodGet, "/accessories", netio.NewSession())
	ep.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccessoriesEndpointReturns200WithTree(t *testing.T) {
	container := newTestContainer(t)
	ep := NewAccessories(controller.NewContainerController(container))

	rec := httptest.NewRecorder()
	req := requestWithSession(http.MethodGet, "/accessories", encryptedSession())
	ep.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"accessories"`)
	assert.Contains(t, rec.Body.String(), `"aid"`)
}

func TestIdentifyEndpointRunsBeforePairing(t *testing.T) {
	container := newTestContainer(t)
	cc := controller.NewContainerController(container)
	ep := NewIdentify(cc, func() bool { return false })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/identify", nil)
	ep.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestIdentifyEndpointRefusesWhenAlreadyPaired(t *testing.T) {
	container := newTestContainer(t)
	cc := controller.NewContainerController(container)
	ep := NewIdentify(cc, func() bool { return true })

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/identify", nil)
	ep.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status"`)
}
