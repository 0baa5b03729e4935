// Package service implements the middle tier of the accessory tree
// : each Service owns an ordered sequence of Characteristics
// and declares a HAP service type.
package service

import "github.com/hapcore/hap/characteristic"

// HAP short-UUIDs for the service types this module wires up.
const (
	TypeAccessoryInformation = "3E"
	TypeSwitch               = "49"
	TypeLightSensor          = "8A"
)

// Service is one node of the accessory tree between Accessory and
// Characteristic.
type Service struct {
	IID             uint64
	Type            string
	Characteristics []*characteristic.Characteristic

	accessorySlot int
}

// New constructs an empty service of the given HAP type.
func New(hapType string) *Service {
	return &Service{Type: hapType}
}

// AddCharacteristic appends c to this service in declaration order —
// order is significant because iid assignment is a single depth-first
// walk over this order.
func (s *Service) AddCharacteristic(c *characteristic.Characteristic) *Service {
	s.Characteristics = append(s.Characteristics, c)
	return s
}

// SetAccessorySlot records this service's owning accessory index; called
// once by accessory.Container during tree assembly.
func (s *Service) SetAccessorySlot(slot int) { s.accessorySlot = slot }

// AccessorySlot returns the owning accessory's index in the container.
func (s *Service) AccessorySlot() int { return s.accessorySlot }

// NewAccessoryInformation builds the mandatory AccessoryInformation
// service every accessory must expose exactly once, with the Identify
// characteristic wired to identifyFn.
func NewAccessoryInformation(name, manufacturer, model, serial, firmware string, identifyFn func(characteristic.Value) error) *Service {
	s := New(TypeAccessoryInformation)

	identify := characteristic.NewIdentify()
	if identifyFn != nil {
		identify.Set = identifyFn
	}

	s.AddCharacteristic(characteristic.NewName(name))
	s.AddCharacteristic(characteristic.NewManufacturer(manufacturer))
	s.AddCharacteristic(characteristic.NewModel(model))
	s.AddCharacteristic(characteristic.NewSerialNumber(serial))
	s.AddCharacteristic(characteristic.NewFirmwareRevision(firmware))
	s.AddCharacteristic(identify)
	return s
}

// NewSwitch builds a minimal Switch service with one On characteristic.
func NewSwitch() (*Service, *characteristic.Characteristic) {
	s := New(TypeSwitch)
	on := characteristic.NewOn()
	s.AddCharacteristic(on)
	return s, on
}

// NewLightSensor builds a minimal LightSensor service with one
// CurrentAmbientLightLevel characteristic.
func NewLightSensor() (*Service, *characteristic.Characteristic) {
	s := New(TypeLightSensor)
	level := characteristic.NewCurrentAmbientLightLevel()
	s.AddCharacteristic(level)
	return s, level
}
