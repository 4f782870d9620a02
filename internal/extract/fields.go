// Package extract turns unstructured resume text into structured fields.
package extract

import (
	"strings"

	"github.com/spigell/cv-matcher/internal/models"
)

type section int

const (
	sectionNone section = iota
	sectionEducation
	sectionExperience
	sectionSkills
	sectionCertifications
	sectionAchievements
	sectionTechStack
)

// Order matters: the first keyword that prefixes a line wins.
var sectionKeywords = []struct {
	section  section
	keywords []string
}{
	{sectionEducation, []string{"education"}},
	{sectionExperience, []string{"work experience", "professional experience"}},
	{sectionSkills, []string{"skills", "technical skills"}},
	{sectionCertifications, []string{"certifications"}},
	{sectionAchievements, []string{"achievements", "accomplishments"}},
	{sectionTechStack, []string{"tech stack", "technology stack", "tools"}},
}

var labels = []struct {
	label string
	set   func(f *models.Fields, v string)
}{
	{"name:", func(f *models.Fields, v string) { f.Name = v }},
	{"email:", func(f *models.Fields, v string) { f.Email = v }},
	{"phone:", func(f *models.Fields, v string) { f.Phone = v }},
}

// Fields extracts name, email and phone from "label: value" lines and the
// remaining attributes from the bodies of recognized section headers.
// Absent attributes are empty strings.
func Fields(text string) models.Fields {
	var (
		fields  models.Fields
		current = sectionNone
		buffer  []string
	)

	flush := func() {
		if current != sectionNone && len(buffer) > 0 {
			setSection(&fields, current, strings.TrimSpace(strings.Join(buffer, " ")))
		}
		buffer = buffer[:0]
	}

	for _, line := range Lines(text) {
		lower := strings.ToLower(line)

		if applyLabel(&fields, line, lower) {
			continue
		}

		if next := headerSection(lower); next != sectionNone {
			flush()
			current = next
			continue
		}

		if current != sectionNone {
			buffer = append(buffer, line)
		}
	}
	flush()

	return fields
}

// Lines returns the non-empty trimmed lines of text.
func Lines(text string) []string {
	raw := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}

func applyLabel(fields *models.Fields, line, lower string) bool {
	for _, l := range labels {
		if !strings.Contains(lower, l.label) {
			continue
		}
		_, value, _ := strings.Cut(line, ":")
		l.set(fields, strings.TrimSpace(value))
		return true
	}
	return false
}

func headerSection(lower string) section {
	for _, s := range sectionKeywords {
		for _, keyword := range s.keywords {
			if strings.HasPrefix(lower, keyword) {
				return s.section
			}
		}
	}
	return sectionNone
}

func setSection(fields *models.Fields, s section, value string) {
	switch s {
	case sectionEducation:
		fields.Education = value
	case sectionExperience:
		fields.Experience = value
	case sectionSkills:
		fields.Skills = value
	case sectionCertifications:
		fields.Certifications = value
	case sectionAchievements:
		fields.Achievements = value
	case sectionTechStack:
		fields.TechStack = value
	}
}
