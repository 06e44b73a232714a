package ens160

// Default I2C address (ADDR pin high). 0x52 with ADDR low.
const (
	Address    = 0x53
	AddressAlt = 0x52
)

// Register map.
const (
	regPartID     = 0x00 // 2 bytes, LE
	regOpMode     = 0x10
	regConfig     = 0x11
	regCommand    = 0x12
	regTempIn     = 0x13 // 2 bytes, Kelvin * 64
	regRHIn       = 0x15 // 2 bytes, %RH * 512
	regDataStatus = 0x20
	regDataAQI    = 0x21 // AQI, TVOC(2), ECO2(2) are contiguous
	regDataTVOC   = 0x22
	regDataECO2   = 0x24
)

// PartID is the value of regPartID on a genuine ENS160.
const PartID = 0x0160

// Mode is an OPMODE value.
type Mode byte

const (
	ModeDeepSleep Mode = 0x00
	ModeIdle      Mode = 0x01
	ModeStandard  Mode = 0x02
	ModeReset     Mode = 0xF0
)

// DATA_STATUS bits.
const (
	statusNewGPR   = 0x01
	statusNewData  = 0x02
	statusValidity = 0x0C
	statusError    = 0x40
	statusOpMode   = 0x80
)
