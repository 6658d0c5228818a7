package ingest

import "testing"

func TestExtractContactLabelled(t *testing.T) {
	text := `Name: Asha Rao
Role: Senior QA Engineer
Company: Infosys
Email: asha.rao@example.com
Phone: +91 98765 43210
Skills: Java, Selenium, TestNG

Experienced automation engineer with 6 years in web testing.`

	c := ExtractContact(text)
	if c.Name != "Asha Rao" {
		t.Errorf("name = %q", c.Name)
	}
	if c.Email != "asha.rao@example.com" {
		t.Errorf("email = %q", c.Email)
	}
	if c.Phone == "" {
		t.Error("phone should be extracted")
	}
	if c.Role != "Senior QA Engineer" {
		t.Errorf("role = %q", c.Role)
	}
	if c.Skills != "Java, Selenium, TestNG" {
		t.Errorf("skills = %q", c.Skills)
	}
	if c.Company != "Infosys" {
		t.Errorf("company = %q", c.Company)
	}
}

func TestExtractContactHeuristics(t *testing.T) {
	// No labelled lines: name from the first short top line, role from the
	// first title-looking line.
	text := `Boris Ivanov
Backend Developer
boris@example.com

Built payment services in Go at Flipkart.`

	c := ExtractContact(text)
	if c.Name != "Boris Ivanov" {
		t.Errorf("name = %q", c.Name)
	}
	if c.Role != "Backend Developer" {
		t.Errorf("role = %q", c.Role)
	}
	if c.Email != "boris@example.com" {
		t.Errorf("email = %q", c.Email)
	}
}

func TestExtractContactMissingFields(t *testing.T) {
	c := ExtractContact("A plain paragraph with no contact details at all in a long line that is not a name because of its length and shape.")
	if c.Email != "" || c.Phone != "" {
		t.Errorf("nothing should be extracted: %+v", c)
	}
}

func TestExtractContactPhoneNotYear(t *testing.T) {
	c := ExtractContact("Worked from 2019 to 2023 on several projects.")
	if c.Phone != "" {
		t.Errorf("year ranges must not parse as phone numbers, got %q", c.Phone)
	}
}

func TestExtractContactSkipsResumeHeading(t *testing.T) {
	text := `RESUME
Chitra Nair
chitra@example.com`

	c := ExtractContact(text)
	if c.Name != "Chitra Nair" {
		t.Errorf("heading lines should be skipped, name = %q", c.Name)
	}
}
