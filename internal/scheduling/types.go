// Package scheduling is the availability catalog: specialties, practitioners,
// weekly schedule templates and the concrete slots patients book.
package scheduling

import (
	"strings"
	"time"
)

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// Specialty is a medical specialty offered by the clinic.
type Specialty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Practitioner is a doctor. PriceCents is the consultation price in minor units.
type Practitioner struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Contact     string `json:"contact"`
	CRM         string `json:"crm"`
	PriceCents  int64  `json:"price_cents"`
	SpecialtyID string `json:"specialty_id"`
}

// ScheduleTemplate is a recurring weekly window of a practitioner.
// Start and End are zero-padded "HH:MM" strings, so they compare lexicographically.
type ScheduleTemplate struct {
	ID             string `json:"id"`
	Weekday        string `json:"weekday"`
	Start          string `json:"start"`
	End            string `json:"end"`
	PractitionerID string `json:"practitioner_id"`
}

// TimeRange renders the template window as "HH:MM - HH:MM".
func (t ScheduleTemplate) TimeRange() string {
	return t.Start + " - " + t.End
}

func (t ScheduleTemplate) overlaps(weekday, start, end string) bool {
	return t.Weekday == weekday && start < t.End && t.Start < end
}

// AvailableSlot is one bookable occurrence of a template on a date.
type AvailableSlot struct {
	ID         string `json:"id"`
	Date       string `json:"date"`
	Reserved   bool   `json:"reserved"`
	TemplateID string `json:"template_id"`
}

var weekdayAliases = map[string]time.Weekday{
	"sunday":        time.Sunday,
	"sun":           time.Sunday,
	"domingo":       time.Sunday,
	"monday":        time.Monday,
	"mon":           time.Monday,
	"segunda":       time.Monday,
	"segunda-feira": time.Monday,
	"tuesday":       time.Tuesday,
	"tue":           time.Tuesday,
	"terça":         time.Tuesday,
	"terca":         time.Tuesday,
	"terça-feira":   time.Tuesday,
	"terca-feira":   time.Tuesday,
	"wednesday":     time.Wednesday,
	"wed":           time.Wednesday,
	"quarta":        time.Wednesday,
	"quarta-feira":  time.Wednesday,
	"thursday":      time.Thursday,
	"thu":           time.Thursday,
	"quinta":        time.Thursday,
	"quinta-feira":  time.Thursday,
	"friday":        time.Friday,
	"fri":           time.Friday,
	"sexta":         time.Friday,
	"sexta-feira":   time.Friday,
	"saturday":      time.Saturday,
	"sat":           time.Saturday,
	"sábado":        time.Saturday,
	"sabado":        time.Saturday,
}

// ParseWeekday accepts English or Portuguese day names and returns the canonical English name.
func ParseWeekday(raw string) (string, bool) {
	day, ok := weekdayAliases[strings.ToLower(strings.TrimSpace(raw))]
	if !ok {
		return "", false
	}
	return day.String(), true
}

func validClock(s string) bool {
	if len(s) != len(clockLayout) {
		return false
	}
	_, err := time.Parse(clockLayout, s)
	return err == nil
}

func validDate(s string) bool {
	_, err := time.Parse(dateLayout, s)
	return err == nil
}
