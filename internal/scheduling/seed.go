package scheduling

import "fmt"

// Seed loads the default clinic reference data into c.
func Seed(c *Catalog) error {
	for _, s := range []Specialty{
		{ID: "E001", Name: "Cardiologia"},
		{ID: "E002", Name: "Dermatologia"},
		{ID: "E003", Name: "Clínico Geral"},
	} {
		c.AddSpecialty(s)
	}

	for _, p := range []Practitioner{
		{ID: "MD001", Name: "Dr. João Silva", Email: "dr.joao@clinica.com", Contact: "(11) 3456-7890", CRM: "12345/SP", PriceCents: 25000, SpecialtyID: "E001"},
		{ID: "MD002", Name: "Dra. Maria Santos", Email: "dra.maria@clinica.com", Contact: "(11) 3456-7891", CRM: "67890/SP", PriceCents: 30000, SpecialtyID: "E002"},
		{ID: "MD003", Name: "Dr. Pedro Costa", Email: "dr.pedro@clinica.com", Contact: "(11) 3456-7892", CRM: "11223/SP", PriceCents: 20000, SpecialtyID: "E003"},
	} {
		c.AddPractitioner(p)
	}

	templates := []ScheduleTemplate{
		{ID: "H001", Weekday: "Monday", Start: "08:00", End: "12:00", PractitionerID: "MD001"},
		{ID: "H002", Weekday: "Monday", Start: "14:00", End: "18:00", PractitionerID: "MD001"},
		{ID: "H003", Weekday: "Tuesday", Start: "08:00", End: "12:00", PractitionerID: "MD002"},
		{ID: "H004", Weekday: "Wednesday", Start: "14:00", End: "18:00", PractitionerID: "MD003"},
		{ID: "H005", Weekday: "Wednesday", Start: "08:00", End: "12:00", PractitionerID: "MD002"},
		{ID: "H006", Weekday: "Wednesday", Start: "19:00", End: "22:00", PractitionerID: "MD003"},
		{ID: "H007", Weekday: "Thursday", Start: "08:00", End: "12:00", PractitionerID: "MD002"},
		{ID: "H008", Weekday: "Thursday", Start: "14:00", End: "18:00", PractitionerID: "MD001"},
		{ID: "H009", Weekday: "Friday", Start: "08:00", End: "12:00", PractitionerID: "MD002"},
		{ID: "H010", Weekday: "Friday", Start: "14:00", End: "18:00", PractitionerID: "MD003"},
		{ID: "H011", Weekday: "Saturday", Start: "08:00", End: "12:00", PractitionerID: "MD003"},
		{ID: "H012", Weekday: "Saturday", Start: "13:00", End: "17:00", PractitionerID: "MD001"},
		{ID: "H013", Weekday: "Sunday", Start: "09:00", End: "12:00", PractitionerID: "MD001"},
		{ID: "H014", Weekday: "Sunday", Start: "14:00", End: "17:00", PractitionerID: "MD002"},
	}
	for _, t := range templates {
		if err := c.AddTemplate(t); err != nil {
			return fmt.Errorf("scheduling: seed template %s: %w", t.ID, err)
		}
	}

	slots := []AvailableSlot{
		{ID: "D001", Date: "2025-11-27", TemplateID: "H001"},
		{ID: "D002", Date: "2025-11-27", TemplateID: "H002"},
		{ID: "D003", Date: "2025-11-28", TemplateID: "H003"},
		{ID: "D004", Date: "2025-11-29", TemplateID: "H004"},
		{ID: "D005", Date: "2025-11-30", TemplateID: "H005"},
		{ID: "D006", Date: "2025-11-30", TemplateID: "H006"},
		{ID: "D007", Date: "2025-12-01", TemplateID: "H007"},
		{ID: "D008", Date: "2025-12-01", TemplateID: "H008"},
		{ID: "D009", Date: "2025-12-02", TemplateID: "H009"},
		{ID: "D010", Date: "2025-12-02", TemplateID: "H010"},
		{ID: "D011", Date: "2025-12-03", TemplateID: "H011"},
		{ID: "D012", Date: "2025-12-03", TemplateID: "H012"},
		{ID: "D013", Date: "2025-12-04", TemplateID: "H013"},
		{ID: "D014", Date: "2025-12-04", TemplateID: "H014"},
		{ID: "D015", Date: "2025-12-05", TemplateID: "H001"},
		{ID: "D016", Date: "2025-12-06", TemplateID: "H003"},
		{ID: "D017", Date: "2025-12-07", TemplateID: "H008"},
		{ID: "D018", Date: "2025-12-08", TemplateID: "H012"},
	}
	for _, s := range slots {
		if err := c.AddSlot(s); err != nil {
			return fmt.Errorf("scheduling: seed slot %s: %w", s.ID, err)
		}
	}
	return nil
}

// NewSeededCatalog returns a catalog loaded with the default clinic data.
func NewSeededCatalog() *Catalog {
	c := NewCatalog()
	if err := Seed(c); err != nil {
		panic(err)
	}
	return c
}
