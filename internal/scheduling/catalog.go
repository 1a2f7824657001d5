package scheduling

import (
	"sort"
	"sync"

	"github.com/wolfman30/clinic-scheduler/internal/failure"
)

var (
	ErrUnknownPractitioner = failure.New(failure.KindNotFound, "practitioner not found")
	ErrUnknownTemplate     = failure.New(failure.KindNotFound, "schedule template not found")
	ErrDuplicateSlot       = failure.New(failure.KindConflict, "slot id already exists")
	ErrInvalidSlot         = failure.New(failure.KindInvalidInput, "slot requires an id, a YYYY-MM-DD date and a template")
)

// Catalog owns the reference data and the reserved flag of every slot.
// It is safe for concurrent use.
type Catalog struct {
	mu            sync.RWMutex
	specialties   map[string]Specialty
	practitioners map[string]Practitioner
	templates     map[string]ScheduleTemplate
	slots         map[string]AvailableSlot
}

// NewCatalog returns an empty catalog. Use Seed for the default clinic data.
func NewCatalog() *Catalog {
	return &Catalog{
		specialties:   make(map[string]Specialty),
		practitioners: make(map[string]Practitioner),
		templates:     make(map[string]ScheduleTemplate),
		slots:         make(map[string]AvailableSlot),
	}
}

// FindSlot looks up a slot by id.
func (c *Catalog) FindSlot(id string) (AvailableSlot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	slot, ok := c.slots[id]
	return slot, ok
}

// ListFreeSlotsByDate returns the unreserved slots on date, ordered by id.
func (c *Catalog) ListFreeSlotsByDate(date string) []AvailableSlot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []AvailableSlot
	for _, slot := range c.slots {
		if slot.Date == date && !slot.Reserved {
			out = append(out, slot)
		}
	}
	sortSlots(out)
	return out
}

// ListFreeSlotsByPractitioner returns the unreserved slots whose template belongs to practitionerID.
func (c *Catalog) ListFreeSlotsByPractitioner(practitionerID string) []AvailableSlot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []AvailableSlot
	for _, slot := range c.slots {
		if slot.Reserved {
			continue
		}
		tmpl, ok := c.templates[slot.TemplateID]
		if ok && tmpl.PractitionerID == practitionerID {
			out = append(out, slot)
		}
	}
	sortSlots(out)
	return out
}

// Reserve flips a free slot to reserved. It reports false and changes nothing
// when the slot is missing or already reserved.
func (c *Catalog) Reserve(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.slots[id]
	if !ok || slot.Reserved {
		return false
	}
	slot.Reserved = true
	c.slots[id] = slot
	return true
}

// Release frees a slot. Missing slots are ignored.
func (c *Catalog) Release(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	slot, ok := c.slots[id]
	if !ok {
		return
	}
	slot.Reserved = false
	c.slots[id] = slot
}

// SyncReservations marks exactly the slots in active as reserved and frees the rest.
// It returns the active ids that do not name a known slot.
func (c *Catalog) SyncReservations(active []string) []string {
	set := make(map[string]struct{}, len(active))
	for _, id := range active {
		set[id] = struct{}{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for id, slot := range c.slots {
		_, reserved := set[id]
		if slot.Reserved != reserved {
			slot.Reserved = reserved
			c.slots[id] = slot
		}
		delete(set, id)
	}

	var unknown []string
	for id := range set {
		unknown = append(unknown, id)
	}
	sort.Strings(unknown)
	return unknown
}

func (c *Catalog) Practitioner(id string) (Practitioner, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.practitioners[id]
	return p, ok
}

func (c *Catalog) Specialty(id string) (Specialty, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.specialties[id]
	return s, ok
}

func (c *Catalog) Template(id string) (ScheduleTemplate, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.templates[id]
	return t, ok
}

// ListPractitioners returns every practitioner ordered by id.
func (c *Catalog) ListPractitioners() []Practitioner {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Practitioner, 0, len(c.practitioners))
	for _, p := range c.practitioners {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListSpecialties returns every specialty ordered by id.
func (c *Catalog) ListSpecialties() []Specialty {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Specialty, 0, len(c.specialties))
	for _, s := range c.specialties {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// AddSpecialty inserts or replaces a specialty.
func (c *Catalog) AddSpecialty(s Specialty) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.specialties[s.ID] = s
}

// AddPractitioner inserts or replaces a practitioner.
func (c *Catalog) AddPractitioner(p Practitioner) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.practitioners[p.ID] = p
}

// AddSlot registers a new slot for an existing template. New slots start free.
func (c *Catalog) AddSlot(slot AvailableSlot) error {
	if slot.ID == "" || slot.TemplateID == "" || !validDate(slot.Date) {
		return ErrInvalidSlot
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.slots[slot.ID]; exists {
		return ErrDuplicateSlot
	}
	if _, ok := c.templates[slot.TemplateID]; !ok {
		return ErrUnknownTemplate
	}
	slot.Reserved = false
	c.slots[slot.ID] = slot
	return nil
}

// ListSlots returns every slot, reserved or not, ordered by id.
func (c *Catalog) ListSlots() []AvailableSlot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]AvailableSlot, 0, len(c.slots))
	for _, slot := range c.slots {
		out = append(out, slot)
	}
	sortSlots(out)
	return out
}

func sortSlots(slots []AvailableSlot) {
	sort.Slice(slots, func(i, j int) bool { return slots[i].ID < slots[j].ID })
}
