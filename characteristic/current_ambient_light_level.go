package characteristic

// TypeCurrentAmbientLightLevel is HAP's short-UUID for CurrentAmbientLightLevel.
const TypeCurrentAmbientLightLevel = "6B"

// NewCurrentAmbientLightLevel builds a LightSensor's primary characteristic,
// readable and notifiable, with the lux range and step Apple specifies.
func NewCurrentAmbientLightLevel() *Characteristic {
	c := NewFloat(TypeCurrentAmbientLightLevel)
	c.SetPerms(PermPairedRead, PermNotify)
	c.SetMinValue(0.0001)
	c.SetMaxValue(100000)
	c.SetStepValue(0.0001)
	c.value = FloatValue(0.0001)
	return c
}
