package sensor

import (
	"context"

	"aqmonitor-go/drivers/aht2x"
	"aqmonitor-go/drivers/ens160"
	"aqmonitor-go/types"
)

// Source is the sensor collaborator. Each call may block for the duration
// of one bus transaction (or one conversion).
type Source interface {
	ReadAirQuality(ctx context.Context) (types.AirSample, error)
	ReadTempHumidity(ctx context.Context) (types.ClimateSample, error)
}

// Sleeper is implemented by sources that power down between cycles.
type Sleeper interface {
	Wake(ctx context.Context) error
	Sleep(ctx context.Context) error
}

// Compensator is implemented by sources that take ambient conditions into
// account for the air-quality read.
type Compensator interface {
	Compensate(ctx context.Context, deciC, deciRH int32) error
}

// DeviceSource reads an ENS160 and an AHT2x sharing one bus.
type DeviceSource struct {
	Air     *ens160.Device
	Climate *aht2x.Device
}

var (
	_ Source      = (*DeviceSource)(nil)
	_ Sleeper     = (*DeviceSource)(nil)
	_ Compensator = (*DeviceSource)(nil)
)

// Configure brings up both parts. Any error is an initialisation failure.
func (d *DeviceSource) Configure() error {
	if err := d.Climate.Configure(); err != nil {
		return err
	}
	return d.Air.Configure()
}

func (d *DeviceSource) ReadAirQuality(ctx context.Context) (types.AirSample, error) {
	m, err := d.Air.Read(ctx)
	if err != nil {
		return types.AirSample{}, err
	}
	return types.AirSample{
		ECO2:     m.ECO2,
		TVOC:     m.TVOC,
		AQI:      types.AQI(m.AQI),
		Validity: types.Validity(m.Validity),
	}, nil
}

func (d *DeviceSource) ReadTempHumidity(ctx context.Context) (types.ClimateSample, error) {
	s, err := d.Climate.Read(ctx)
	if err != nil {
		return types.ClimateSample{}, err
	}
	return types.ClimateSample{DeciCelsius: s.DeciCelsius(), DeciRelHum: s.DeciRelHumidity()}, nil
}

func (d *DeviceSource) Wake(context.Context) error  { return d.Air.Wake() }
func (d *DeviceSource) Sleep(context.Context) error { return d.Air.Sleep() }

func (d *DeviceSource) Compensate(_ context.Context, deciC, deciRH int32) error {
	return d.Air.SetCompensation(deciC, deciRH)
}
