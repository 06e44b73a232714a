package config

// -----------------------------------------------------------------------------
// Embedded configuration
//
// Key: board name selected at build time (see platform.Board).
// Val: YAML document; omitted fields take Default values.
// -----------------------------------------------------------------------------

const cfgPico = `
board: pico
i2c:
  frequency_hz: 400000
sensor:
  interval: 5m
  burst_size: 5
  burst_spacing: 1s
  warmup_timeout: 3m
  calibrate: true
power:
  interval: 4s
  window: 5
  burst_spacing: 20ms
  charge_on_mv: 4500
  charge_off_mv: 4350
  empty_mv: 2800
  full_mv: 4200
  vref_mv: 3300
  divider: 3
display:
  mode_interval: 10s
  address: 0x3C
watchdog:
  timeout: 15m
  check_interval: 1s
  hardware_timeout: 8s
heartbeat:
  interval: 1m
`

// Host builds run against simulated peripherals with faster cycles.
const cfgHost = `
board: host
sensor:
  interval: 20s
  burst_spacing: 100ms
  warmup_timeout: 2s
watchdog:
  timeout: 1m
  hardware_timeout: 0s
heartbeat:
  interval: 5s
`

// Linux boards have no MCU watchdog; the service manager restarts the process.
const cfgLinux = `
board: linux
watchdog:
  hardware_timeout: 0s
`

var embeddedConfigs = map[string][]byte{
	"pico":  []byte(cfgPico),
	"host":  []byte(cfgHost),
	"linux": []byte(cfgLinux),
}
