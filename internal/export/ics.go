// Package export renders agendas into calendar formats.
package export

import (
	"fmt"
	"io"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"
	"github.com/lazypower/revise/internal/agenda"
	"github.com/lazypower/revise/internal/schedule"
)

const productID = "-//revise//review agenda//EN"

// uidSpace namespaces event UIDs so the same (user, topic, date) always maps
// to the same UID and calendar clients update rather than duplicate.
var uidSpace = uuid.MustParse("6f1d2c3e-8a4b-4c5d-9e6f-7a8b9c0d1e2f")

// EventUID returns the stable UID for one review. n counts earlier identical
// items in the same agenda; the first occurrence uses n == 0.
func EventUID(userID string, it agenda.Item, n int) string {
	seed := userID + "\x00" + it.Topic + "\x00" + it.Date
	if n > 0 {
		seed += fmt.Sprintf("\x00%d", n)
	}
	return uuid.NewSHA1(uidSpace, []byte(seed)).String() + "@revise"
}

// Calendar builds an all-day VEVENT per item. Items whose date does not parse
// are skipped. stamp is written as DTSTAMP on every event.
func Calendar(userID string, items []agenda.Item, stamp time.Time) *ics.Calendar {
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(productID)
	cal.SetName(fmt.Sprintf("Reviews for user %s", userID))

	seen := map[agenda.Item]int{}
	for _, it := range items {
		day, err := schedule.ParseDate(it.Date)
		if err != nil {
			continue
		}
		n := seen[it]
		seen[it]++
		ev := cal.AddEvent(EventUID(userID, it, n))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary("Review: " + it.Topic)
		ev.SetAllDayStartAt(day)
		ev.SetAllDayEndAt(day.AddDate(0, 0, 1))
	}
	return cal
}

// WriteICS serializes the calendar for items to w.
func WriteICS(w io.Writer, userID string, items []agenda.Item, stamp time.Time) error {
	_, err := io.WriteString(w, Calendar(userID, items, stamp).Serialize())
	return err
}
