package core

// NormalizeClock shifts a minutes-of-day clock value from its UTC offset to
// the zero reference. Window containment on both evaluation paths goes
// through here so the normalization cannot drift between them.
func NormalizeClock(minutes, offset float64) float64 {
	return minutes - offset
}

// WindowContains reports whether the point falls inside [start, end] after
// normalizing each side to the zero reference. Both boundaries are
// inclusive.
func WindowContains(point, pointOffset, start, end, windowOffset float64) bool {
	p := NormalizeClock(point, pointOffset)
	s := NormalizeClock(start, windowOffset)
	e := NormalizeClock(end, windowOffset)
	return s <= p && p <= e
}
