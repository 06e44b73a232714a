package power

import (
	"context"

	"aqmonitor-go/errcode"
	"aqmonitor-go/x/mathx"

	"github.com/chewxy/math32"
)

// Source is the power collaborator: one VSYS sample in millivolts.
type Source interface {
	SampleVSYS(ctx context.Context) (int32, error)
}

// ADC is a 16-bit left-justified converter channel (machine.ADC on RP2).
type ADC interface {
	Get() uint16
}

// ADCSource samples VSYS through a resistor divider.
type ADCSource struct {
	ADC        ADC
	VRefMilliV int32
	Divider    int32
}

// SampleVSYS reads once. A zero code means the conversion did not happen.
func (a ADCSource) SampleVSYS(ctx context.Context) (int32, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	raw := a.ADC.Get()
	if raw == 0 {
		return 0, &errcode.E{C: errcode.Malformed, Op: "power.adc", Msg: "zero code"}
	}
	return mathx.ScaleU16(raw, a.VRefMilliV, a.Divider), nil
}

// Percent maps milliV linearly onto 0..100 between empty and full.
func Percent(milliV, emptyMilliV, fullMilliV int32) uint8 {
	if fullMilliV <= emptyMilliV {
		return 0
	}
	p := float32(milliV-emptyMilliV) / float32(fullMilliV-emptyMilliV) * 100
	return uint8(mathx.Clamp(math32.Round(p), 0, 100))
}
