// Package characteristic implements the leaf node of the accessory tree
// and the built-in characteristic types a HAP accessory needs. Each
// built-in characteristic is a small generated-looking constructor
// function around a tagged-union Value.
package characteristic

// Format is the wire/storage format of a characteristic's value.
type Format string

const (
	FormatBool     Format = "bool"
	FormatUint8    Format = "uint8"
	FormatUint16   Format = "uint16"
	FormatUint32   Format = "uint32"
	FormatUint64   Format = "uint64"
	FormatInt      Format = "int"
	FormatFloat    Format = "float"
	FormatString   Format = "string"
	FormatTlv8     Format = "tlv8"
	FormatData     Format = "data"
)

// Perm is one bit of a characteristic's permission set, named with the
// abbreviations HAP's JSON characteristic bodies use.
type Perm string

const (
	PermPairedRead             Perm = "pr"
	PermPairedWrite            Perm = "pw"
	PermNotify                 Perm = "ev"
	PermAdditionalAuthorization Perm = "aa"
	PermTimedWrite             Perm = "tw"
	PermHidden                 Perm = "hd"
)

// ValidValuesRange is an inclusive [Start, End] range of legal integer
// values, one entry of a characteristic's validValuesRanges.
type ValidValuesRange struct {
	Start, End int64
}

// GetFunc is invoked on a paired read when the characteristic declares a
// read hook; SetFunc on a paired write. The accessory-side device code
// owns these, never the core.
type GetFunc func() (Value, error)
type SetFunc func(Value) error

// ChangeListener is notified whenever a characteristic's value changes,
// with the originating session opaque to this package (the event
// dispatcher uses it to exclude the writer from its own notification).
type ChangeListener func(c *Characteristic, old, new Value, origin interface{})

// Characteristic is one leaf of the accessory tree. Identifiers, parent
// linkage, format, permissions and constraints are immutable after
// construction; Value, Get and Set may change over the accessory's life.
type Characteristic struct {
	IID  uint64
	Type string // HAP UUID/short-UUID for this characteristic type
	Format Format
	Perms  []Perm

	Unit string

	MinValue, MaxValue *float64
	MinStep            *float64
	ValidValues        []int64
	ValidValuesRanges  []ValidValuesRange
	MaxLen             *int // string/data max length

	value Value
	Get   GetFunc
	Set   SetFunc

	// serviceSlot/accessorySlot are the ascending indices that stand in
	// for a parent pointer back to this characteristic's owning service
	// and accessory; populated by the container during iid assignment.
	serviceSlot   int
	accessorySlot int

	listeners []ChangeListener
}

// New constructs a characteristic of the given HAP type and format with
// no permissions or constraints set; callers add those via the Set*
// helpers below.
func New(hapType string, format Format) *Characteristic {
	return &Characteristic{
		Type:   hapType,
		Format: format,
		value:  Null(),
	}
}

func (c *Characteristic) SetPerms(perms ...Perm) *Characteristic {
	c.Perms = perms
	return c
}

func (c *Characteristic) HasPerm(p Perm) bool {
	for _, have := range c.Perms {
		if have == p {
			return true
		}
	}
	return false
}

func (c *Characteristic) SetUnit(u string) *Characteristic { c.Unit = u; return c }

func (c *Characteristic) SetMinValue(v float64) *Characteristic { c.MinValue = &v; return c }
func (c *Characteristic) SetMaxValue(v float64) *Characteristic { c.MaxValue = &v; return c }
func (c *Characteristic) SetStepValue(v float64) *Characteristic { c.MinStep = &v; return c }
func (c *Characteristic) SetMaxLen(n int) *Characteristic { c.MaxLen = &n; return c }

func (c *Characteristic) SetValidValues(vv ...int64) *Characteristic {
	c.ValidValues = vv
	return c
}

func (c *Characteristic) SetValidValuesRanges(rs ...ValidValuesRange) *Characteristic {
	c.ValidValuesRanges = rs
	return c
}

// SetSlots records this characteristic's owning service/accessory
// indices; called once by accessory.Container during tree assembly.
func (c *Characteristic) SetSlots(accessorySlot, serviceSlot int) {
	c.accessorySlot = accessorySlot
	c.serviceSlot = serviceSlot
}

func (c *Characteristic) AccessorySlot() int { return c.accessorySlot }
func (c *Characteristic) ServiceSlot() int   { return c.serviceSlot }

// Value returns the current value, preferring a live Get hook when the
// characteristic declares one — the core never owns device-side state,
// it only calls back into whatever does.
func (c *Characteristic) Value() (Value, error) {
	if c.Get != nil {
		return c.Get()
	}
	return c.value, nil
}

// SetValue stores a new value (calling the Set hook if present) and
// notifies every registered listener with the old/new pair.
func (c *Characteristic) SetValue(v Value, origin interface{}) error {
	old := c.value
	if c.Get != nil {
		var err error
		old, err = c.Get()
		if err != nil {
			return err
		}
	}

	if c.Set != nil {
		if err := c.Set(v); err != nil {
			return err
		}
	}
	c.value = v

	if !old.Equal(v) {
		for _, l := range c.listeners {
			l(c, old, v, origin)
		}
	}
	return nil
}

// OnChange registers a listener invoked whenever SetValue observes an
// actual value change. Used by event.Dispatcher to enqueue notifications.
func (c *Characteristic) OnChange(l ChangeListener) {
	c.listeners = append(c.listeners, l)
}
