package archive

import (
	"fmt"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
)

// Level selects how snapshot entries are compressed.
type Level int

const (
	Optimal Level = iota
	Fastest
	NoCompression
	SmallestSize
)

var levelNames = [...]string{
	Optimal:       "Optimal",
	Fastest:       "Fastest",
	NoCompression: "NoCompression",
	SmallestSize:  "SmallestSize",
}

func (l Level) String() string {
	if l >= 0 && int(l) < len(levelNames) {
		return levelNames[l]
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Levels lists every supported level in display order.
func Levels() []Level {
	return []Level{Optimal, Fastest, NoCompression, SmallestSize}
}

// ParseLevel maps a level name, as stored in settings, to a Level.
func ParseLevel(s string) (Level, error) {
	for _, l := range Levels() {
		if l.String() == s {
			return l, nil
		}
	}
	return Optimal, fmt.Errorf("unknown compression level %q", s)
}

// method returns the zip method for entries written at this level.
func (l Level) method() uint16 {
	if l == NoCompression {
		return zip.Store
	}
	return zip.Deflate
}

func (l Level) flateLevel() int {
	switch l {
	case Fastest:
		return flate.BestSpeed
	case SmallestSize:
		return flate.BestCompression
	default:
		return flate.DefaultCompression
	}
}
