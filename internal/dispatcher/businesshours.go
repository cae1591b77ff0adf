package dispatcher

import "time"

// InBusinessHours reports whether t falls within business hours: local
// time, Monday through Friday, 09:00 up to (but not including) 17:00
// (§4.6 step 6, §9 "business-hours timezone is process-local time").
func InBusinessHours(t time.Time) bool {
	t = t.Local()
	switch t.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	hour := t.Hour()
	return hour >= 9 && hour < 17
}
