package fat32nav

import (
	"time"
)

// ParseDate decodes a packed 16-bit FAT date. The layout, LSB first, is
// day (5 bits, 1-31), month (4 bits, 1-12) and years since 1980 (7 bits).
//
// Day 0 and month 0 are outside the valid ranges, so any date containing
// them decodes to time.Time{} and can be detected with time.Time.IsZero().
// The result always has a clock time of 00:00:00 UTC.
func ParseDate(input uint16) time.Time {
	day := int(input & 0x1F)
	month := int(input >> 5 & 0x0F)
	year := int(input >> 9 & 0x7F)

	if day == 0 || month == 0 {
		return time.Time{}
	}

	return time.Date(1980+year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// ParseTime decodes a packed 16-bit FAT time. The layout, LSB first, is
// half-seconds (5 bits, 0-29), minutes (6 bits, 0-59) and hours
// (5 bits, 0-23). The stored seconds field counts two-second steps.
//
// The result always has the date January 1, year 1, so midnight satisfies
// time.Time.IsZero(). A value whose out-of-range fields would roll over into
// the next day is clamped to 23:59:59; out-of-range fields that stay within
// the day are normalized by time.Date (10:60:00 becomes 11:00:00).
func ParseTime(input uint16) time.Time {
	seconds := int(input&0x1F) * 2
	minutes := int(input >> 5 & 0x3F)
	hours := int(input >> 11 & 0x1F)

	result := time.Date(1, 1, 1, hours, minutes, seconds, 0, time.UTC)
	if result.Day() > 1 {
		return time.Date(1, 1, 1, 23, 59, 59, 0, time.UTC)
	}

	return result
}

// ParseDatetime combines a packed date and time register pair into a single
// wall-clock instant, interpreted as UTC. If the date part is invalid the
// zero time.Time is returned.
func ParseDatetime(date, clock uint16) time.Time {
	day := ParseDate(date)
	if day.IsZero() {
		return time.Time{}
	}

	tod := ParseTime(clock)
	return time.Date(day.Year(), day.Month(), day.Day(),
		tod.Hour(), tod.Minute(), tod.Second(), 0, time.UTC)
}

// CreationDatetime returns the creation stamp of the entry as UTC wall-clock
// time. The sub-second tenths counter is not folded in.
func (h *EntryHeader) CreationDatetime() time.Time {
	return ParseDatetime(h.CreationDate, h.CreationTime)
}

// LastModificationDatetime returns the last-modified stamp of the entry as
// UTC wall-clock time.
func (h *EntryHeader) LastModificationDatetime() time.Time {
	return ParseDatetime(h.LastModDate, h.LastModTime)
}

// LastAccessed returns the last-access stamp of the entry. Only a date is
// stored on disk, so the clock time is always midnight.
func (h *EntryHeader) LastAccessed() time.Time {
	return ParseDate(h.LastAccessedDate)
}
