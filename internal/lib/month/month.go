// Package month содержит календарную арифметику для окон использования.
package month

import (
	"time"
)

// NextResetTime возвращает первое мгновение календарного месяца,
// следующего за now. Граница окна всегда строго в будущем относительно now.
func NextResetTime(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
}

// Expired сообщает, закончилось ли окно с границей resetAt к моменту now.
// Граница окна исключающая: в момент resetAt окно уже считается истекшим.
func Expired(resetAt, now time.Time) bool {
	return !now.Before(resetAt)
}
