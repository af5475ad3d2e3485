package pk2

import "time"

// epochFileTime is the FILETIME value (100-ns intervals since
// 1601-01-01 UTC) corresponding to the Unix epoch.
const epochFileTime = 116444736000000000

// FileTime is a Windows FILETIME: two little-endian uint32 halves
// counting 100-ns intervals since 1601-01-01 UTC.
type FileTime struct {
	Low  uint32
	High uint32
}

// Now returns the current time encoded as a FileTime.
func Now() FileTime {
	return FileTimeFromTime(time.Now())
}

// FileTimeFromTime converts a wall-clock time to a FileTime.
func FileTimeFromTime(t time.Time) FileTime {
	nanos := t.UnixNano()
	ft := uint64(nanos/100) + epochFileTime
	return FileTime{
		Low:  uint32(ft),
		High: uint32(ft >> 32),
	}
}

// raw combines the two halves into a single 100-ns tick counter.
func (f FileTime) raw() uint64 {
	return uint64(f.High)<<32 | uint64(f.Low)
}

// ToTime converts f to a wall-clock time.Time. The second return value is
// false if f predates the Unix epoch, in which case the returned time is
// the zero value.
func (f FileTime) ToTime() (time.Time, bool) {
	raw := f.raw()
	if raw < epochFileTime {
		return time.Time{}, false
	}
	nanos := int64(raw-epochFileTime) * 100
	return time.Unix(0, nanos).UTC(), true
}

// ToTimeErr is identical to ToTime but returns ErrTimestampOutOfRange
// instead of a boolean when f predates the Unix epoch.
func (f FileTime) ToTimeErr() (time.Time, error) {
	t, ok := f.ToTime()
	if !ok {
		return time.Time{}, ErrTimestampOutOfRange
	}
	return t, nil
}
