package twai

// Controller operating mode
type Mode uint8

const (
	ModeNormal Mode = iota
	ModeNoAck
	ModeListenOnly
)

// General controller configuration, mirrors the driver install tuple
type GeneralConfig struct {
	Mode          Mode
	TxPin         int
	RxPin         int
	TxQueueLen    int
	RxQueueLen    int
	AlertsEnabled uint32
}

// Bus timing configuration. Only the bitrate is meaningful to the drivers
// shipped here, the propagation segments stay with the hardware.
type TimingConfig struct {
	Bitrate int
}

func Timing125Kbits() TimingConfig {
	return TimingConfig{Bitrate: 125_000}
}

func Timing250Kbits() TimingConfig {
	return TimingConfig{Bitrate: 250_000}
}

func Timing500Kbits() TimingConfig {
	return TimingConfig{Bitrate: 500_000}
}

// Acceptance filter configuration
type FilterConfig struct {
	AcceptanceCode uint32
	AcceptanceMask uint32
	SingleFilter   bool
}

func FilterAcceptAll() FilterConfig {
	return FilterConfig{AcceptanceCode: 0, AcceptanceMask: 0xFFFFFFFF, SingleFilter: true}
}

// Full driver install configuration
type Config struct {
	General GeneralConfig
	Timing  TimingConfig
	Filter  FilterConfig
}

func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			Mode:          ModeNormal,
			TxPin:         33,
			RxPin:         32,
			TxQueueLen:    20,
			RxQueueLen:    20,
			AlertsEnabled: AlertAll,
		},
		Timing: Timing125Kbits(),
		Filter: FilterAcceptAll(),
	}
}
