package endpoint

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/hapcore/hap/accessory"
	"github.com/hapcore/hap/characteristic"
	"github.com/hapcore/hap/netio"
	"github.com/hapcore/hap/netio/controller"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func onCharacteristicIID(t *testing.T, c *accessory.Container) uint64 {
	t.Helper()
	for _, s := range c.Accessory.Services {
		for _, ch := range s.Characteristics {
			if ch.Type == characteristic.TypeOn {
				return ch.IID
			}
		}
	}
	t.Fatal("no On characteristic found")
	return 0
}

func u64(v uint64) string { return strconv.FormatUint(v, 10) }

func putRequestWithSession(body string, sess *netio.Session) *http.Request {
	r := httptest.NewRequest(http.MethodPut, "/characteristics", strings.NewReader(body))
	return r.WithContext(netio.ContextWithSession(r.Context(), sess))
}

func TestCharacteristicsGetRequiresEncryptedSession(t *testing.T) {
	container := newTestContainer(t)
	cc := controller.NewCharacteristicController(container, nil)
	ep := NewCharacteristics(cc)

	rec := httptest.NewRecorder()
	req := requestWithSession(http.MethodGet, "/characteristics?id=1.2", netio.NewSession())
	ep.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCharacteristicsGetReturns200ForKnownIID(t *testing.T) {
	container := newTestContainer(t)
	iid := onCharacteristicIID(t, container)
	cc := controller.NewCharacteristicController(container, nil)
	ep := NewCharacteristics(cc)

	target := "/characteristics?id=" + u64(accessory.RootAID) + "." + u64(iid)
	rec := httptest.NewRecorder()
	req := requestWithSession(http.MethodGet, target, encryptedSession())
	ep.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"value":false`)
}

func TestCharacteristicsGetReturns207WhenOneIDIsUnknown(t *testing.T) {
	container := newTestContainer(t)
	iid := onCharacteristicIID(t, container)
	cc := controller.NewCharacteristicController(container, nil)
	ep := NewCharacteristics(cc)

	target := "/characteristics?id=" + u64(accessory.RootAID) + "." + u64(iid) + ",1.9999"
	rec := httptest.NewRecorder()
	req := requestWithSession(http.MethodGet, target, encryptedSession())
	ep.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMultiStatus, rec.Code)
}

func TestCharacteristicsGetRejectsMalformedIDList(t *testing.T) {
	container := newTestContainer(t)
	cc := controller.NewCharacteristicController(container, nil)
	ep := NewCharacteristics(cc)

	rec := httptest.NewRecorder()
	req := requestWithSession(http.MethodGet, "/characteristics?id=notanumber", encryptedSession())
	ep.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCharacteristicsPutWritesValueAndReturns204(t *testing.T) {
	container := newTestContainer(t)
	iid := onCharacteristicIID(t, container)
	cc := controller.NewCharacteristicController(container, nil)
	ep := NewCharacteristics(cc)

	body := `{"characteristics":[{"aid":` + u64(accessory.RootAID) + `,"iid":` + u64(iid) + `,"value":true}]}`
	rec := httptest.NewRecorder()
	ep.ServeHTTP(rec, putRequestWithSession(body, encryptedSession()))

	assert.Equal(t, http.StatusNoContent, rec.Code)

	ch, _, ok := container.Characteristic(accessory.RootAID, iid)
	require.True(t, ok)
	v, err := ch.Value()
	require.NoError(t, err)
	assert.True(t, v.B)
}

func TestCharacteristicsPutReturns207OnPartialFailure(t *testing.T) {
	container := newTestContainer(t)
	iid := onCharacteristicIID(t, container)
	cc := controller.NewCharacteristicController(container, nil)
	ep := NewCharacteristics(cc)

	body := `{"characteristics":[{"aid":` + u64(accessory.RootAID) + `,"iid":` + u64(iid) +
		`,"value":true},{"aid":1,"iid":9999,"value":true}]}`
	rec := httptest.NewRecorder()
	ep.ServeHTTP(rec, putRequestWithSession(body, encryptedSession()))

	assert.Equal(t, http.StatusMultiStatus, rec.Code)
}

func TestCharacteristicsPutRejectsMalformedBody(t *testing.T) {
	container := newTestContainer(t)
	cc := controller.NewCharacteristicController(container, nil)
	ep := NewCharacteristics(cc)

	rec := httptest.NewRecorder()
	ep.ServeHTTP(rec, putRequestWithSession("not json", encryptedSession()))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
