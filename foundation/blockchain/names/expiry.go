package names

// Phase is the lifecycle phase of a name at a given height.
type Phase int

// Set of lifecycle phases.
const (
	Absent Phase = iota
	Active
	Expired
)

// String implements the fmt.Stringer interface.
func (p Phase) String() string {
	switch p {
	case Active:
		return "active"
	case Expired:
		return "expired"
	}

	return "absent"
}

// MarshalText implements the encoding.TextMarshaler interface.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Classify computes the phase of a record at the specified height. A record
// stays active while height - lastUpdate <= expiryPeriod. The phase is never
// stored, so a rewound chain always sees the right answer.
func Classify(rec Record, height uint64, params Params) Phase {
	if height <= rec.LastUpdateHeight {
		return Active
	}

	if height-rec.LastUpdateHeight > params.ExpiryPeriod {
		return Expired
	}

	return Active
}

// ExpiresIn returns the number of blocks left before the record expires. A
// negative value means the record has already expired.
func ExpiresIn(rec Record, height uint64, params Params) int64 {
	return int64(rec.LastUpdateHeight+params.ExpiryPeriod) - int64(height)
}
