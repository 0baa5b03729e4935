package controller

import (
	"sync"
	"testing"
	"time"

	"github.com/hapcore/hap/accessory"
	"github.com/hapcore/hap/event"
	"github.com/hapcore/hap/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	id   string
	subs map[uint64]bool

	mu   sync.Mutex
	sent [][]byte
}

func newFakeSink(id string) *fakeSink { return &fakeSink{id: id, subs: make(map[uint64]bool)} }

func (f *fakeSink) ID() string            { return f.id }
func (f *fakeSink) IsAdmin() bool         { return true }
func (f *fakeSink) Subscribe(iid uint64)  { f.subs[iid] = true }
func (f *fakeSink) Unsubscribe(iid uint64) { delete(f.subs, iid) }
func (f *fakeSink) IsSubscribed(iid uint64) bool { return f.subs[iid] }
func (f *fakeSink) ClearSubscriptions()          { f.subs = make(map[uint64]bool) }

func (f *fakeSink) Send(payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeSink) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func newTestContainer(t *testing.T) (*accessory.Container, uint64) {
	t.Helper()
	info := service.NewAccessoryInformation("Test", "Acme", "T1", "0001", "1.0", nil)
	acc := accessory.New(info)
	sw, on := service.NewSwitch()
	acc.AddService(sw)
	container, err := accessory.NewContainer(acc)
	require.NoError(t, err)
	return container, on.IID
}

func TestGetAllSuccessIs200(t *testing.T) {
	container, onIID := newTestContainer(t)
	cc := NewCharacteristicController(container, nil)

	body, allSuccess, err := cc.Get([]CharacteristicQuery{{AID: accessory.RootAID, IID: onIID}}, false, false, false)
	require.NoError(t, err)
	assert.True(t, allSuccess)
	assert.Contains(t, string(body), `"value":false`)
}

func TestGetUnknownCharacteristicIs207(t *testing.T) {
	container, onIID := newTestContainer(t)
	cc := NewCharacteristicController(container, nil)

	body, allSuccess, err := cc.Get([]CharacteristicQuery{
		{AID: accessory.RootAID, IID: onIID},
		{AID: accessory.RootAID, IID: 9999},
	}, false, false, false)
	require.NoError(t, err)
	assert.False(t, allSuccess, "one missing item must force the 207 outcome")
	assert.Contains(t, string(body), `"status":-70409`)
}

func TestPutWritesValueAndNotifiesOtherSubscribers(t *testing.T) {
	container, onIID := newTestContainer(t)
	d := event.NewDispatcher(func(changes []event.Change) ([]byte, error) { return []byte("ok"), nil }, 10*time.Millisecond)
	go d.Run()
	defer d.Stop()
	cc := NewCharacteristicController(container, d)
	WireChangeNotifications(container, d)

	writer := newFakeSink("writer")
	subscriber := newFakeSink("subscriber")
	d.Register(writer)
	d.Register(subscriber)
	subscriber.Subscribe(onIID)

	allSuccess, failures := cc.Put(writer, []PutItem{{AID: accessory.RootAID, IID: onIID, Value: true}})
	assert.True(t, allSuccess)
	assert.Empty(t, failures)

	ch, _, ok := container.Characteristic(accessory.RootAID, onIID)
	require.True(t, ok)
	v, err := ch.Value()
	require.NoError(t, err)
	assert.True(t, v.B)

	assert.Eventually(t, func() bool { return subscriber.sentCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, writer.sentCount(), "the writing session is not notified of its own change")
}

func TestPutUnknownCharacteristicFails(t *testing.T) {
	container, _ := newTestContainer(t)
	cc := NewCharacteristicController(container, nil)

	allSuccess, failures := cc.Put(newFakeSink("writer"), []PutItem{{AID: accessory.RootAID, IID: 9999, Value: true}})
	assert.False(t, allSuccess)
	require.Len(t, failures, 1)
	assert.EqualValues(t, -70409, failures[0].Status)
}

func TestPutEvSubscribesSession(t *testing.T) {
	container, onIID := newTestContainer(t)
	cc := NewCharacteristicController(container, nil)
	sess := newFakeSink("writer")

	allSuccess, failures := cc.Put(sess, []PutItem{{AID: accessory.RootAID, IID: onIID, HasEv: true, Ev: true}})
	assert.True(t, allSuccess)
	assert.Empty(t, failures)
	assert.True(t, sess.subs[onIID])
}
