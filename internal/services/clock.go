package services

import "time"

// nowFunc lets tests pin the clock that classification and record stamps use.
type nowFunc func() time.Time

func defaultNow() time.Time { return time.Now() }
