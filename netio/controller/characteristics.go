package controller

import (
	"encoding/json"

	"github.com/hapcore/hap/accessory"
	"github.com/hapcore/hap/characteristic"
	"github.com/hapcore/hap/event"
	"github.com/hapcore/hap/status"
)

// CharacteristicQuery identifies one (aid, iid) pair requested by a GET
// /characteristics call's `id=A.I[,A.I]*` syntax.
type CharacteristicQuery struct {
	AID, IID uint64
}

type getResultItem struct {
	AID      uint64       `json:"aid"`
	IID      uint64       `json:"iid"`
	Value    interface{}  `json:"value,omitempty"`
	Status   *int         `json:"status,omitempty"`
	Type     string       `json:"type,omitempty"`
	Perms    []string     `json:"perms,omitempty"`
	Format   string       `json:"format,omitempty"`
	Unit     string       `json:"unit,omitempty"`
	MinValue *float64     `json:"minValue,omitempty"`
	MaxValue *float64     `json:"maxValue,omitempty"`
	MinStep  *float64     `json:"minStep,omitempty"`
}

type getResultBody struct {
	Characteristics []getResultItem `json:"characteristics"`
}

// CharacteristicController answers GET/PUT /characteristics.
type CharacteristicController struct {
	Container  *accessory.Container
	Dispatcher *event.Dispatcher
}

func NewCharacteristicController(c *accessory.Container, d *event.Dispatcher) *CharacteristicController {
	return &CharacteristicController{Container: c, Dispatcher: d}
}

// Get resolves every query item and reports whether the overall result
// is all-success (200) or contains at least one failure (207).
func (cc *CharacteristicController) Get(queries []CharacteristicQuery, includeMeta, includePerms, includeType bool) (body []byte, allSuccess bool, err error) {
	allSuccess = true
	var items []getResultItem
	for _, q := range queries {
		item := getResultItem{AID: q.AID, IID: q.IID}
		ch, _, ok := cc.Container.Characteristic(q.AID, q.IID)
		if !ok {
			code := int(status.NoResource)
			item.Status = &code
			allSuccess = false
			items = append(items, item)
			continue
		}
		if !ch.HasPerm(characteristic.PermPairedRead) {
			code := int(status.WriteOnly)
			item.Status = &code
			allSuccess = false
			items = append(items, item)
			continue
		}

		v, verr := ch.Value()
		if verr != nil {
			code := int(status.From(verr))
			item.Status = &code
			allSuccess = false
			items = append(items, item)
			continue
		}
		jv, jerr := v.JSON()
		if jerr != nil {
			return nil, false, jerr
		}
		item.Value = jv

		if includeType {
			item.Type = ch.Type
		}
		if includePerms {
			for _, p := range ch.Perms {
				item.Perms = append(item.Perms, string(p))
			}
		}
		if includeMeta {
			item.Format = string(ch.Format)
			item.Unit = ch.Unit
			item.MinValue = ch.MinValue
			item.MaxValue = ch.MaxValue
			item.MinStep = ch.MinStep
		}
		items = append(items, item)
	}

	body, err = json.Marshal(getResultBody{Characteristics: items})
	return body, allSuccess, err
}

// PutItem is one entry of a PUT /characteristics request body.
type PutItem struct {
	AID   uint64
	IID   uint64
	Value interface{}
	HasEv bool
	Ev    bool
}

// Sink is the subset of netio.Session that Put needs to apply `ev`
// subscriptions and exclude the writer from its own notification,
// narrowed so this package does not import netio (see DESIGN.md).
type Sink interface {
	ID() string
	IsAdmin() bool
	Subscribe(iid uint64)
	Unsubscribe(iid uint64)
}

type putResultItem struct {
	AID    uint64 `json:"aid"`
	IID    uint64 `json:"iid"`
	Status int    `json:"status"`
}

// Put applies every item, coercing and storing values, toggling
// subscriptions, and enqueuing notifications to other subscribers on
// successful writes. It reports whether every item succeeded; the
// caller decides the status code from that: a PUT's HTTP-level reply is
// always either 204 (all succeeded) or a per-item status body, built
// the same way Get builds one.
func (cc *CharacteristicController) Put(origin Sink, items []PutItem) (allSuccess bool, failures []putResultItem) {
	allSuccess = true
	for _, it := range items {
		ch, _, ok := cc.Container.Characteristic(it.AID, it.IID)
		if !ok {
			allSuccess = false
			failures = append(failures, putResultItem{AID: it.AID, IID: it.IID, Status: int(status.NoResource)})
			continue
		}

		if it.Value != nil {
			if !ch.HasPerm(characteristic.PermPairedWrite) {
				allSuccess = false
				failures = append(failures, putResultItem{AID: it.AID, IID: it.IID, Status: int(status.ReadOnly)})
				continue
			}
			v, err := characteristic.Coerce(ch, it.Value)
			if err != nil {
				allSuccess = false
				failures = append(failures, putResultItem{AID: it.AID, IID: it.IID, Status: int(status.From(err))})
				continue
			}
			if err := ch.SetValue(v, origin); err != nil {
				allSuccess = false
				failures = append(failures, putResultItem{AID: it.AID, IID: it.IID, Status: int(status.From(err))})
				continue
			}
		}

		if it.HasEv {
			if !ch.HasPerm(characteristic.PermNotify) {
				allSuccess = false
				failures = append(failures, putResultItem{AID: it.AID, IID: it.IID, Status: int(status.NotificationsUnsupported)})
				continue
			}
			if it.Ev {
				origin.Subscribe(it.IID)
			} else {
				origin.Unsubscribe(it.IID)
			}
		}
	}
	return allSuccess, failures
}
