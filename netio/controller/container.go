// Package controller implements the JSON view of the accessory tree that
// sits between netio/endpoint's HTTP handlers and the accessory/service/
// characteristic packages.
package controller

import (
	"encoding/json"

	"github.com/hapcore/hap/accessory"
	"github.com/hapcore/hap/characteristic"
	"github.com/hapcore/hap/event"
)

type characteristicJSON struct {
	IID      uint64      `json:"iid"`
	Type     string      `json:"type"`
	Perms    []string    `json:"perms,omitempty"`
	Format   string      `json:"format,omitempty"`
	Value    interface{} `json:"value,omitempty"`
	Unit     string      `json:"unit,omitempty"`
	MinValue *float64    `json:"minValue,omitempty"`
	MaxValue *float64    `json:"maxValue,omitempty"`
	MinStep  *float64    `json:"minStep,omitempty"`
	MaxLen   *int        `json:"maxLen,omitempty"`
}

type serviceJSON struct {
	IID             uint64                `json:"iid"`
	Type            string                `json:"type"`
	Characteristics []characteristicJSON  `json:"characteristics"`
}

type accessoryJSON struct {
	AID      uint64        `json:"aid"`
	Services []serviceJSON `json:"services"`
}

type rootJSON struct {
	Accessories []accessoryJSON `json:"accessories"`
}

// ContainerController answers GET /accessories and POST /identify.
type ContainerController struct {
	Container *accessory.Container
}

func NewContainerController(c *accessory.Container) *ContainerController {
	return &ContainerController{Container: c}
}

// Tree renders the full accessory tree as the chunked JSON body GET
// /accessories streams.
func (cc *ContainerController) Tree() ([]byte, error) {
	acc := cc.Container.Accessory
	aj := accessoryJSON{AID: acc.AID}
	for _, s := range acc.Services {
		sj := serviceJSON{IID: s.IID, Type: s.Type}
		for _, c := range s.Characteristics {
			cj, err := characteristicJSONOf(c, true, true, true)
			if err != nil {
				return nil, err
			}
			sj.Characteristics = append(sj.Characteristics, cj)
		}
		aj.Services = append(aj.Services, sj)
	}
	return json.Marshal(rootJSON{Accessories: []accessoryJSON{aj}})
}

func characteristicJSONOf(c *characteristic.Characteristic, includeMeta, includePerms, includeType bool) (characteristicJSON, error) {
	cj := characteristicJSON{IID: c.IID}
	if includeType {
		cj.Type = c.Type
	}
	if includePerms {
		for _, p := range c.Perms {
			cj.Perms = append(cj.Perms, string(p))
		}
	}
	if c.HasPerm(characteristic.PermPairedRead) {
		v, err := c.Value()
		if err != nil {
			return characteristicJSON{}, err
		}
		jv, err := v.JSON()
		if err != nil {
			return characteristicJSON{}, err
		}
		cj.Value = jv
	}
	if includeMeta {
		cj.Format = string(c.Format)
		cj.Unit = c.Unit
		cj.MinValue = c.MinValue
		cj.MaxValue = c.MaxValue
		cj.MinStep = c.MinStep
		cj.MaxLen = c.MaxLen
	}
	return cj, nil
}

// identifiableOrigin is the narrow slice of Sink that WireChangeNotifications
// needs to recover the originating session's id from SetValue's opaque
// origin argument.
type identifiableOrigin interface {
	ID() string
}

// WireChangeNotifications registers an event.Dispatcher.Notify call as
// the OnChange listener of every characteristic in c, so any SetValue
// call anywhere in the accessory tree — whether from a PUT
// /characteristics request or the accessory's own device code — reaches
// every subscriber exactly once. Called once at startup.
func WireChangeNotifications(c *accessory.Container, d *event.Dispatcher) {
	aid := c.Accessory.AID
	for _, ch := range c.AllCharacteristics() {
		iid := ch.IID
		ch.OnChange(func(_ *characteristic.Characteristic, _, new characteristic.Value, origin interface{}) {
			originID := ""
			if io, ok := origin.(identifiableOrigin); ok {
				originID = io.ID()
			}
			d.Notify(event.Change{AID: aid, IID: iid, Value: new}, originID)
		})
	}
}

// Identify triggers the accessory's Identify routine. Only meaningful
// before the accessory is paired; callers enforce that precondition
// before calling in.
func (cc *ContainerController) Identify() error {
	for _, s := range cc.Container.Accessory.Services {
		for _, c := range s.Characteristics {
			if c.Type == characteristic.TypeIdentify {
				return c.SetValue(characteristic.BoolValue(true), nil)
			}
		}
	}
	return nil
}
