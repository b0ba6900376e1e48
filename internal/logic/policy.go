package logic

// EffectiveOutput decides the relay state. A manual override wins; in auto mode
// the relay is energized exactly when grid power is absent, so the backup
// circuit closes on power loss.
func EffectiveOutput(mode RelayMode, verdict Verdict) bool {
	if mode.Manual {
		return mode.DesiredOn
	}
	return !verdict.Online()
}

// IndicatorOutput decides the status LED. It follows the verdict only and is lit
// while the grid is offline.
func IndicatorOutput(verdict Verdict) bool {
	return !verdict.Online()
}
