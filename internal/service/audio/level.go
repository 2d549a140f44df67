// Package audio provides microphone capture, playback and authorization
// adapters built on the ffmpeg tool suite.
package audio

import (
	"math"
	"strconv"
	"strings"
)

// MinLevelDB is the meter floor; anything quieter reads as silence.
const MinLevelDB = -60.0

// NormalizeLevel maps a dBFS reading to [0, 1]: MinLevelDB and below give
// 0, 0 dB gives 1, linear in between.
func NormalizeLevel(db float64) float64 {
	if math.IsNaN(db) || db <= MinLevelDB {
		return 0
	}
	if db >= 0 {
		return 1
	}
	return (db - MinLevelDB) / -MinLevelDB
}

const levelKey = "lavfi.astats.Overall.RMS_level="

// parseLevelLine extracts the RMS level from an ametadata log line.
func parseLevelLine(line string) (float64, bool) {
	i := strings.Index(line, levelKey)
	if i < 0 {
		return 0, false
	}
	raw := strings.TrimSpace(line[i+len(levelKey):])
	db, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return db, true
}
