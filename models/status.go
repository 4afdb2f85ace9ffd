package models

// Status is a set of per-entry flags. Bits without a name are reserved and
// must survive every read-modify-write, so flags are only ever changed one
// bit at a time.
type Status uint32

// Flag is the bit position of one status flag
type Flag uint8

const (
	FlagRead    Flag = 0
	FlagStarred Flag = 1
)

// MaxFlag is the highest bit position a Status can hold
const MaxFlag Flag = 31

func (f Flag) mask() Status {
	return 1 << f
}

// Valid reports whether f fits in a Status
func (f Flag) Valid() bool {
	return f <= MaxFlag
}

func (f Flag) String() string {
	switch f {
	case FlagRead:
		return "read"
	case FlagStarred:
		return "starred"
	default:
		return "reserved"
	}
}

// ParseFlag maps a flag name to its bit
func ParseFlag(name string) (Flag, bool) {
	switch name {
	case "read":
		return FlagRead, true
	case "starred":
		return FlagStarred, true
	default:
		return 0, false
	}
}

func (s Status) Has(f Flag) bool {
	return f.Valid() && s&f.mask() != 0
}

// Set turns f on. Setting a flag that is already on changes nothing.
func (s *Status) Set(f Flag) {
	if f.Valid() {
		*s |= f.mask()
	}
}

// Clear turns f off and leaves every other bit alone
func (s *Status) Clear(f Flag) {
	if f.Valid() {
		*s &^= f.mask()
	}
}

// Apply sets or clears f depending on on
func (s *Status) Apply(f Flag, on bool) {
	if on {
		s.Set(f)
	} else {
		s.Clear(f)
	}
}

func (s Status) IsRead() bool    { return s.Has(FlagRead) }
func (s Status) IsStarred() bool { return s.Has(FlagStarred) }
