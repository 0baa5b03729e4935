package event

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hapcore/hap/characteristic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	id            string
	mu            sync.Mutex
	subscribed    map[uint64]bool
	received      [][]byte
	clearedCalled int
	failSend      bool
}

func newFakeSink(id string, iids ...uint64) *fakeSink {
	s := &fakeSink{id: id, subscribed: make(map[uint64]bool)}
	for _, iid := range iids {
		s.subscribed[iid] = true
	}
	return s
}

func (s *fakeSink) ID() string { return s.id }

func (s *fakeSink) IsSubscribed(iid uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed[iid]
}

func (s *fakeSink) ClearSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearedCalled++
	s.subscribed = make(map[uint64]bool)
}

func (s *fakeSink) Send(payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSend {
		return assert.AnError
	}
	s.received = append(s.received, payload)
	return nil
}

func jsonEncode(changes []Change) ([]byte, error) {
	type item struct {
		AID   uint64      `json:"aid"`
		IID   uint64      `json:"iid"`
		Value interface{} `json:"value"`
	}
	out := struct {
		Characteristics []item `json:"characteristics"`
	}{}
	for _, c := range changes {
		v, err := c.Value.JSON()
		if err != nil {
			return nil, err
		}
		out.Characteristics = append(out.Characteristics, item{AID: c.AID, IID: c.IID, Value: v})
	}
	return json.Marshal(out)
}

func TestCoalescesMultipleChangesToSameCharacteristic(t *testing.T) {
	d := NewDispatcher(jsonEncode, time.Hour)
	sink := newFakeSink("sub", 10)
	d.Register(sink)

	d.Notify(Change{AID: 1, IID: 10, Value: characteristic.BoolValue(false)}, "")
	d.Notify(Change{AID: 1, IID: 10, Value: characteristic.BoolValue(true)}, "")
	d.Notify(Change{AID: 1, IID: 10, Value: characteristic.BoolValue(false)}, "")

	d.flush()

	require.Len(t, sink.received, 1)
	var decoded struct {
		Characteristics []struct {
			IID   uint64 `json:"iid"`
			Value bool   `json:"value"`
		} `json:"characteristics"`
	}
	require.NoError(t, json.Unmarshal(sink.received[0], &decoded))
	require.Len(t, decoded.Characteristics, 1)
	assert.Equal(t, uint64(10), decoded.Characteristics[0].IID)
	assert.False(t, decoded.Characteristics[0].Value, "only the latest value should survive coalescing")
}

func TestOriginSessionExcludedFromNotification(t *testing.T) {
	d := NewDispatcher(jsonEncode, time.Hour)
	origin := newFakeSink("origin", 10)
	other := newFakeSink("other", 10)
	d.Register(origin)
	d.Register(other)

	d.Notify(Change{AID: 1, IID: 10, Value: characteristic.BoolValue(true)}, "origin")
	d.flush()

	assert.Empty(t, origin.received)
	assert.Len(t, other.received, 1)
}

func TestUnsubscribedSinkNotNotified(t *testing.T) {
	d := NewDispatcher(jsonEncode, time.Hour)
	sink := newFakeSink("sub") // subscribed to nothing
	d.Register(sink)

	d.Notify(Change{AID: 1, IID: 10, Value: characteristic.BoolValue(true)}, "")
	d.flush()

	assert.Empty(t, sink.received)
}

func TestSendFailureClearsSubscriptionsAndUnregisters(t *testing.T) {
	d := NewDispatcher(jsonEncode, time.Hour)
	sink := newFakeSink("sub", 10)
	sink.failSend = true
	d.Register(sink)

	d.Notify(Change{AID: 1, IID: 10, Value: characteristic.BoolValue(true)}, "")
	d.flush()

	assert.Equal(t, 1, sink.clearedCalled)

	d.mu.Lock()
	_, stillRegistered := d.sinks[sink.id]
	d.mu.Unlock()
	assert.False(t, stillRegistered)
}
