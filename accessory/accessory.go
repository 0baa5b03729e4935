// Package accessory implements the root of the accessory tree: a single
// root Accessory (aid = 1, the one IP accessories always use) holding a
// fixed AccessoryInformation service plus whatever device-specific
// Services a caller adds.
package accessory

import (
	"fmt"

	"github.com/hapcore/hap/characteristic"
	"github.com/hapcore/hap/service"
)

// RootAID is the fixed accessory identifier this single-accessory core
// always uses.
const RootAID uint64 = 1

// Accessory is the root node of the tree.
type Accessory struct {
	AID      uint64
	Services []*service.Service
}

// New constructs the root accessory. Info must be the result of
// service.NewAccessoryInformation and is always placed first, satisfying
// "exactly one Service of type AccessoryInformation ... is
// present" and "Information service listed first".
func New(info *service.Service) *Accessory {
	return &Accessory{
		AID:      RootAID,
		Services: []*service.Service{info},
	}
}

// AddService appends s after the AccessoryInformation service.
func (a *Accessory) AddService(s *service.Service) *Accessory {
	a.Services = append(a.Services, s)
	return a
}

// Container owns the single root accessory and performs iid assignment.
type Container struct {
	Accessory *Accessory

	byIID map[uint64]characteristicRef
}

type characteristicRef struct {
	service *service.Service
	char    *characteristic.Characteristic
}

// NewContainer wraps a (already fully populated) root accessory and
// assigns iids via a single depth-first traversal starting at 1, per
// ("Identifiers (iid) are assigned once at startup by a
// depth-first traversal starting at 1, then immutable").
func NewContainer(a *Accessory) (*Container, error) {
	if err := validate(a); err != nil {
		return nil, err
	}

	c := &Container{Accessory: a, byIID: make(map[uint64]characteristicRef)}
	next := uint64(1)
	for si, s := range a.Services {
		s.IID = next
		next++
		s.SetAccessorySlot(0)
		for _, ch := range s.Characteristics {
			ch.IID = next
			next++
			ch.SetSlots(0, si)
			c.byIID[ch.IID] = characteristicRef{service: s, char: ch}
		}
	}
	return c, nil
}

func validate(a *Accessory) error {
	if len(a.Services) == 0 {
		return fmt.Errorf("accessory: must have at least one service")
	}
	if a.Services[0].Type != service.TypeAccessoryInformation {
		return fmt.Errorf("accessory: first service must be AccessoryInformation")
	}
	count := 0
	for _, s := range a.Services {
		if s.Type == service.TypeAccessoryInformation {
			count++
		}
		if s.Type == "" {
			return fmt.Errorf("accessory: every service must have a type")
		}
	}
	if count != 1 {
		return fmt.Errorf("accessory: exactly one AccessoryInformation service is required, found %d", count)
	}
	return nil
}

// Characteristic looks up a characteristic by (aid, iid), returning ok =
// false if either is unknown, letting callers reply with NoResource.
func (c *Container) Characteristic(aid, iid uint64) (*characteristic.Characteristic, *service.Service, bool) {
	if aid != c.Accessory.AID {
		return nil, nil, false
	}
	ref, ok := c.byIID[iid]
	if !ok {
		return nil, nil, false
	}
	return ref.char, ref.service, true
}

// AllCharacteristics returns every characteristic in iid order, used by
// controller.WireChangeNotifications to attach change listeners.
func (c *Container) AllCharacteristics() []*characteristic.Characteristic {
	out := make([]*characteristic.Characteristic, 0, len(c.byIID))
	for _, s := range c.Accessory.Services {
		out = append(out, s.Characteristics...)
	}
	return out
}
