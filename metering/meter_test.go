package metering

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"ocppcs/types"
)

func TestInterpret_PowerWattsToKilowatts(t *testing.T) {
	reading := Interpret([]Sample{
		{Value: 1500, Measurand: types.MeasurandPowerActiveImport, Unit: types.UnitOfMeasureW},
	})
	assert.NotNil(t, reading.PowerKW)
	assert.Equal(t, 1.5, *reading.PowerKW)
	assert.Nil(t, reading.EnergyKWh)
	assert.Empty(t, reading.Unrecognized)
}

func TestInterpret_PowerKilowattsPassThrough(t *testing.T) {
	reading := Interpret([]Sample{
		{Value: 7.4, Measurand: types.MeasurandPowerActiveImport, Unit: types.UnitOfMeasureKW},
	})
	assert.NotNil(t, reading.PowerKW)
	assert.Equal(t, 7.4, *reading.PowerKW)
	assert.Empty(t, reading.Unrecognized)
}

func TestInterpret_EnergyWattHoursToKilowattHours(t *testing.T) {
	ts := time.Date(2024, 5, 10, 12, 30, 0, 0, time.UTC)
	reading := Interpret([]Sample{
		{Timestamp: ts, Value: 2000, Measurand: types.MeasurandEnergyActiveImportRegister, Unit: types.UnitOfMeasureWh},
	})
	assert.NotNil(t, reading.EnergyKWh)
	assert.Equal(t, 2.0, *reading.EnergyKWh)
	assert.Equal(t, ts, reading.EnergyTime)
}

func TestInterpret_EnergyKilowattHoursPassThrough(t *testing.T) {
	reading := Interpret([]Sample{
		{Value: 12.5, Unit: types.UnitOfMeasureKWh},
	})
	assert.NotNil(t, reading.EnergyKWh)
	assert.Equal(t, 12.5, *reading.EnergyKWh)
	assert.Empty(t, reading.Unrecognized)
}

func TestInterpret_DefaultMeasurandIsEnergy(t *testing.T) {
	// no measurand, no unit: protocol default is the active import register in Wh
	reading := Interpret([]Sample{{Value: 5000}})
	assert.NotNil(t, reading.EnergyKWh)
	assert.Equal(t, 5.0, *reading.EnergyKWh)
}

func TestInterpret_StateOfChargeUnscaled(t *testing.T) {
	reading := Interpret([]Sample{
		{Value: 81, Measurand: types.MeasurandSoC, Unit: types.UnitOfMeasurePercent},
	})
	assert.NotNil(t, reading.SoC)
	assert.Equal(t, 81.0, *reading.SoC)
}

func TestInterpret_UnrecognizedUnitPassedRaw(t *testing.T) {
	reading := Interpret([]Sample{
		{Value: 42, Measurand: types.MeasurandEnergyActiveImportRegister, Unit: "furlongs"},
	})
	assert.NotNil(t, reading.EnergyKWh)
	assert.Equal(t, 42.0, *reading.EnergyKWh)
	assert.Len(t, reading.Unrecognized, 1)
}

func TestInterpret_IgnoresOtherMeasurands(t *testing.T) {
	reading := Interpret([]Sample{
		{Value: 230, Measurand: types.MeasurandVoltage, Unit: types.UnitOfMeasureV},
		{Value: 16, Measurand: types.MeasurandCurrentImport, Unit: types.UnitOfMeasureA},
	})
	assert.Nil(t, reading.EnergyKWh)
	assert.Nil(t, reading.PowerKW)
	assert.Nil(t, reading.SoC)
}

func TestInterpret_LastSampleWins(t *testing.T) {
	first := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	second := first.Add(time.Minute)
	reading := Interpret([]Sample{
		{Timestamp: first, Value: 1000, Unit: types.UnitOfMeasureWh},
		{Timestamp: second, Value: 1500, Unit: types.UnitOfMeasureWh},
	})
	assert.Equal(t, 1.5, *reading.EnergyKWh)
	assert.Equal(t, second, reading.EnergyTime)
}
