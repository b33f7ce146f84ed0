package amt8000

type BatteryStatus uint8

const (
	BatteryStatusUnknown BatteryStatus = iota
	BatteryStatusMissing
	BatteryStatusShortCircuited
	BatteryStatusDead
	BatteryStatusLow
	BatteryStatusMiddle
	BatteryStatusFull
)

func (b BatteryStatus) String() string {
	switch b {
	case BatteryStatusMissing:
		return "missing"
	case BatteryStatusShortCircuited:
		return "short-circuited"
	case BatteryStatusDead:
		return "dead"
	case BatteryStatusLow:
		return "low"
	case BatteryStatusMiddle:
		return "middle"
	case BatteryStatusFull:
		return "full"
	default:
		return "unknown"
	}
}

// Percentage reports the charge for the known levels.
// Missing, short-circuited and unknown batteries have no percentage.
func (b BatteryStatus) Percentage() (int, bool) {
	switch b {
	case BatteryStatusFull:
		return 100, true
	case BatteryStatusMiddle:
		return 75, true
	case BatteryStatusLow:
		return 25, true
	case BatteryStatusDead:
		return 0, true
	default:
		return 0, false
	}
}

func batteryStatusFor(resp []byte) BatteryStatus {
	generalTroubles := resp[71]
	switch {
	case generalTroubles&(1<<0x04) > 0:
		return BatteryStatusShortCircuited
	case generalTroubles&(1<<0x05) > 0:
		return BatteryStatusMissing
	}

	// the level is a value, not a bitmask: 0x03 would match the lower checks.
	switch resp[134] & 0x07 {
	case 0x01:
		return BatteryStatusDead
	case 0x02:
		return BatteryStatusLow
	case 0x03:
		return BatteryStatusMiddle
	case 0x04:
		return BatteryStatusFull
	default:
		return BatteryStatusUnknown
	}
}
