package metering

import (
	"time"

	"ocppcs/types"
)

// Sample is one timestamped measurement, already lifted out of the dialect
// specific payload shape.
type Sample struct {
	Timestamp time.Time
	Value     float64
	Measurand types.Measurand
	Unit      types.UnitOfMeasure
	Phase     types.Phase
	Location  types.Location
}

// Reading is the normalized result of a set of samples: energy in kWh, power
// in kW, state of charge in percent. Nil means the sample set carried no
// value of that kind.
type Reading struct {
	EnergyKWh  *float64
	EnergyTime time.Time
	PowerKW    *float64
	SoC        *float64
	// Unrecognized collects samples whose unit could not be interpreted;
	// their raw value is still applied, the caller decides whether to log.
	Unrecognized []Sample
}

// Interpret normalizes a set of samples. Later samples of the same kind win,
// so callers should pass samples in wire order. The function is pure; it
// keeps no state between calls.
func Interpret(samples []Sample) Reading {
	var reading Reading
	for _, sample := range samples {
		switch {
		case isPower(sample.Measurand):
			value, ok := toKilo(sample.Value, sample.Unit, types.UnitOfMeasureW, types.UnitOfMeasureVA, types.UnitOfMeasureVar)
			if !ok {
				if !isKilo(sample.Unit, types.UnitOfMeasureKW, types.UnitOfMeasureKVA, types.UnitOfMeasureKvar) {
					reading.Unrecognized = append(reading.Unrecognized, sample)
				}
			}
			reading.PowerKW = &value
		case isEnergy(sample.Measurand):
			value, ok := toKilo(sample.Value, sample.Unit, types.UnitOfMeasureWh, types.UnitOfMeasureVarh, "VAh")
			if !ok {
				if !isKilo(sample.Unit, types.UnitOfMeasureKWh, types.UnitOfMeasureKvarh, "kVAh") {
					reading.Unrecognized = append(reading.Unrecognized, sample)
				}
			}
			reading.EnergyKWh = &value
			// the sample's own timestamp is the authoritative meter time
			reading.EnergyTime = sample.Timestamp
		case sample.Measurand == types.MeasurandSoC:
			value := sample.Value
			reading.SoC = &value
		}
	}
	return reading
}

// isEnergy reports whether the measurand is an energy register. An absent
// measurand defaults to Energy.Active.Import.Register per the protocol.
func isEnergy(measurand types.Measurand) bool {
	switch measurand {
	case "", types.MeasurandEnergyActiveImportRegister, types.MeasurandEnergyActiveExportRegister,
		types.MeasurandEnergyActiveImportInterval:
		return true
	}
	return false
}

func isPower(measurand types.Measurand) bool {
	switch measurand {
	case types.MeasurandPowerActiveImport, types.MeasurandPowerActiveExport, types.MeasurandPowerOffered:
		return true
	}
	return false
}

// toKilo divides by 1000 when the unit is one of the base units or absent.
// Returns the raw value and false when the unit is not a base unit.
func toKilo(value float64, unit types.UnitOfMeasure, baseUnits ...types.UnitOfMeasure) (float64, bool) {
	if unit == "" {
		return value / 1000, true
	}
	for _, base := range baseUnits {
		if unit == base {
			return value / 1000, true
		}
	}
	return value, false
}

func isKilo(unit types.UnitOfMeasure, kiloUnits ...types.UnitOfMeasure) bool {
	for _, kilo := range kiloUnits {
		if unit == kilo {
			return true
		}
	}
	return false
}
