package obis

import "errors"

// ErrInvalidCode is returned when an OBIS code string cannot be parsed.
// It is a configuration error and must be surfaced when the config is loaded.
var ErrInvalidCode = errors.New("invalid OBIS code")

// Code is an OBIS identifier (A.B.C.D.E.F).
// Codes are comparable and can be used directly as map keys.
type Code [6]byte

// Well known codes reported by Nordic HAN meters.
var (
	ListVersion          = Code{1, 1, 0, 2, 129, 255}
	MeterID              = Code{0, 0, 96, 1, 0, 255}
	MeterType            = Code{0, 0, 96, 1, 7, 255}
	Clock                = Code{0, 0, 1, 0, 0, 255}
	ActivePowerImport    = Code{1, 0, 1, 7, 0, 255}
	ActivePowerExport    = Code{1, 0, 2, 7, 0, 255}
	ReactivePowerImport  = Code{1, 0, 3, 7, 0, 255}
	ReactivePowerExport  = Code{1, 0, 4, 7, 0, 255}
	CurrentL1            = Code{1, 0, 31, 7, 0, 255}
	CurrentL2            = Code{1, 0, 51, 7, 0, 255}
	CurrentL3            = Code{1, 0, 71, 7, 0, 255}
	VoltageL1            = Code{1, 0, 32, 7, 0, 255}
	VoltageL2            = Code{1, 0, 52, 7, 0, 255}
	VoltageL3            = Code{1, 0, 72, 7, 0, 255}
	ActiveEnergyImport   = Code{1, 0, 1, 8, 0, 255}
	ActiveEnergyExport   = Code{1, 0, 2, 8, 0, 255}
	ReactiveEnergyImport = Code{1, 0, 3, 8, 0, 255}
	ReactiveEnergyExport = Code{1, 0, 4, 8, 0, 255}
)
