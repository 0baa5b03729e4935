package characteristic

// HAP short-UUIDs for the characteristic types this module wires up,
// matching the numbers Apple's HAP specification assigns.
const (
	TypeName              = "23"
	TypeManufacturer       = "20"
	TypeModel              = "21"
	TypeSerialNumber       = "30"
	TypeFirmwareRevision   = "52"
	TypeIdentify           = "14"
	TypeOn                 = "25"
)

// NewBool builds a bool-format characteristic initialized to false.
func NewBool(hapType string) *Characteristic {
	c := New(hapType, FormatBool)
	c.value = BoolValue(false)
	return c
}

// NewString builds a string-format characteristic initialized to s.
func NewString(hapType, s string) *Characteristic {
	c := New(hapType, FormatString)
	c.value = StringValue(s)
	return c
}

// NewFloat builds a float-format characteristic initialized to 0.
func NewFloat(hapType string) *Characteristic {
	c := New(hapType, FormatFloat)
	c.value = FloatValue(0)
	return c
}

// NewUint8 builds a uint8-format characteristic initialized to 0.
func NewUint8(hapType string) *Characteristic {
	c := New(hapType, FormatUint8)
	c.value = UintValue(0, 8)
	return c
}

// NewName builds the AccessoryInformation service's mandatory Name
// characteristic.
func NewName(name string) *Characteristic {
	c := NewString(TypeName, name)
	c.SetPerms(PermPairedRead)
	return c
}

func NewManufacturer(manufacturer string) *Characteristic {
	c := NewString(TypeManufacturer, manufacturer)
	c.SetPerms(PermPairedRead)
	return c
}

func NewModel(model string) *Characteristic {
	c := NewString(TypeModel, model)
	c.SetPerms(PermPairedRead)
	return c
}

func NewSerialNumber(serial string) *Characteristic {
	c := NewString(TypeSerialNumber, serial)
	c.SetPerms(PermPairedRead)
	return c
}

func NewFirmwareRevision(rev string) *Characteristic {
	c := NewString(TypeFirmwareRevision, rev)
	c.SetPerms(PermPairedRead)
	return c
}

// NewIdentify builds the write-only Identify characteristic; the
// accessory's device code supplies the actual blink/beep behavior via Set.
func NewIdentify() *Characteristic {
	c := NewBool(TypeIdentify)
	c.SetPerms(PermPairedWrite)
	return c
}

// NewOn builds a Switch/Outlet/Lightbulb's primary On characteristic.
func NewOn() *Characteristic {
	c := NewBool(TypeOn)
	c.SetPerms(PermPairedRead, PermPairedWrite, PermNotify)
	return c
}
