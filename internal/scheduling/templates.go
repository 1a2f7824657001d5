package scheduling

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wolfman30/clinic-scheduler/internal/failure"
)

var (
	ErrTemplateFieldsRequired = failure.New(failure.KindInvalidInput, "weekday, start, end and practitioner are required")
	ErrTemplateWeekday        = failure.New(failure.KindInvalidInput, "unknown weekday")
	ErrTemplateClock          = failure.New(failure.KindInvalidInput, "start and end must be HH:MM")
	ErrTemplateOrder          = failure.New(failure.KindInvalidInput, "start must be before end")
	ErrTemplateOverlap        = failure.New(failure.KindConflict, "a schedule template already covers this period")
	ErrTemplateInUse          = failure.New(failure.KindConflict, "schedule template still has slots")
)

// ListTemplatesByPractitioner returns the practitioner's templates ordered by id.
func (c *Catalog) ListTemplatesByPractitioner(practitionerID string) []ScheduleTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []ScheduleTemplate
	for _, t := range c.templates {
		if t.PractitionerID == practitionerID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// RegisterTemplate validates and stores a new weekly window for a practitioner.
func (c *Catalog) RegisterTemplate(weekday, start, end, practitionerID string) (ScheduleTemplate, error) {
	day, err := validateWindow(weekday, start, end)
	if err != nil {
		return ScheduleTemplate{}, err
	}
	if practitionerID == "" {
		return ScheduleTemplate{}, ErrTemplateFieldsRequired
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.practitioners[practitionerID]; !ok {
		return ScheduleTemplate{}, ErrUnknownPractitioner
	}
	if c.overlapsLocked("", practitionerID, day, start, end) {
		return ScheduleTemplate{}, ErrTemplateOverlap
	}

	tmpl := ScheduleTemplate{
		ID:             c.nextTemplateIDLocked(),
		Weekday:        day,
		Start:          start,
		End:            end,
		PractitionerID: practitionerID,
	}
	c.templates[tmpl.ID] = tmpl
	return tmpl, nil
}

// AddTemplate stores a template with a caller-chosen id, applying the same
// validation as RegisterTemplate.
func (c *Catalog) AddTemplate(tmpl ScheduleTemplate) error {
	if tmpl.ID == "" {
		return ErrTemplateFieldsRequired
	}
	day, err := validateWindow(tmpl.Weekday, tmpl.Start, tmpl.End)
	if err != nil {
		return err
	}
	tmpl.Weekday = day

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.practitioners[tmpl.PractitionerID]; !ok {
		return ErrUnknownPractitioner
	}
	if c.overlapsLocked(tmpl.ID, tmpl.PractitionerID, day, tmpl.Start, tmpl.End) {
		return ErrTemplateOverlap
	}
	c.templates[tmpl.ID] = tmpl
	return nil
}

// UpdateTemplate moves an existing template to a new weekday and window.
func (c *Catalog) UpdateTemplate(id, weekday, start, end string) (ScheduleTemplate, error) {
	day, err := validateWindow(weekday, start, end)
	if err != nil {
		return ScheduleTemplate{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	tmpl, ok := c.templates[id]
	if !ok {
		return ScheduleTemplate{}, ErrUnknownTemplate
	}
	if c.overlapsLocked(id, tmpl.PractitionerID, day, start, end) {
		return ScheduleTemplate{}, ErrTemplateOverlap
	}
	tmpl.Weekday = day
	tmpl.Start = start
	tmpl.End = end
	c.templates[id] = tmpl
	return tmpl, nil
}

// RemoveTemplate deletes a template that no slot references.
func (c *Catalog) RemoveTemplate(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.templates[id]; !ok {
		return ErrUnknownTemplate
	}
	for _, slot := range c.slots {
		if slot.TemplateID == id {
			return ErrTemplateInUse
		}
	}
	delete(c.templates, id)
	return nil
}

func validateWindow(weekday, start, end string) (string, error) {
	if strings.TrimSpace(weekday) == "" || start == "" || end == "" {
		return "", ErrTemplateFieldsRequired
	}
	day, ok := ParseWeekday(weekday)
	if !ok {
		return "", ErrTemplateWeekday
	}
	if !validClock(start) || !validClock(end) {
		return "", ErrTemplateClock
	}
	if start >= end {
		return "", ErrTemplateOrder
	}
	return day, nil
}

func (c *Catalog) overlapsLocked(skipID, practitionerID, weekday, start, end string) bool {
	for _, t := range c.templates {
		if t.ID == skipID || t.PractitionerID != practitionerID {
			continue
		}
		if t.overlaps(weekday, start, end) {
			return true
		}
	}
	return false
}

func (c *Catalog) nextTemplateIDLocked() string {
	highest := 0
	for id := range c.templates {
		if !strings.HasPrefix(id, "H") {
			continue
		}
		if n, err := strconv.Atoi(id[1:]); err == nil && n > highest {
			highest = n
		}
	}
	return fmt.Sprintf("H%03d", highest+1)
}
