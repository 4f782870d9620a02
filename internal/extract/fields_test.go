package extract

import (
	"testing"

	"github.com/spigell/cv-matcher/internal/models"
)

func TestFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		expect models.Fields
	}{
		{
			name:  "labels and sections",
			input: "Name: Jane Doe\nEmail: jane@x.com\nSkills\nPython, SQL\nEducation\nBS CS\n",
			expect: models.Fields{
				Name:      "Jane Doe",
				Email:     "jane@x.com",
				Skills:    "Python, SQL",
				Education: "BS CS",
			},
		},
		{
			name: "multi line sections are joined with spaces",
			input: "  Phone: +1 555 0100  \r\n\r\nProfessional Experience\nAcme Corp\n  Built pipelines  \n" +
				"Technical Skills\nGo\nKubernetes\nAccomplishments\nShipped v1\nTools\nDocker, Git",
			expect: models.Fields{
				Phone:        "+1 555 0100",
				Experience:   "Acme Corp Built pipelines",
				Skills:       "Go Kubernetes",
				Achievements: "Shipped v1",
				TechStack:    "Docker, Git",
			},
		},
		{
			name:  "labels inside a section are not buffered",
			input: "Work Experience\nGlobex\nEmail: jd@globex.io\nStaff engineer\nCertifications\nCKA",
			expect: models.Fields{
				Email:          "jd@globex.io",
				Experience:     "Globex Staff engineer",
				Certifications: "CKA",
			},
		},
		{
			name:  "value keeps colons after the first one",
			input: "name: Dr. John: Smith",
			expect: models.Fields{
				Name: "Dr. John: Smith",
			},
		},
		{
			name:  "text before the first header is ignored",
			input: "Summary line\nanother line\nTech Stack\nGo, Postgres",
			expect: models.Fields{
				TechStack: "Go, Postgres",
			},
		},
		{
			name:  "empty section keeps field empty",
			input: "Skills\nEducation\nMIT",
			expect: models.Fields{
				Education: "MIT",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Fields(tt.input)
			if got != tt.expect {
				t.Fatalf("unexpected fields:\n got: %+v\nwant: %+v", got, tt.expect)
			}
		})
	}
}

func TestFieldsWithoutHeaders(t *testing.T) {
	got := Fields("Jane Doe\nSenior engineer with ten years in distributed systems.\nLikes Go.")

	if got.Education != "" || got.Experience != "" || got.Skills != "" ||
		got.Certifications != "" || got.Achievements != "" || got.TechStack != "" {
		t.Fatalf("expected empty section fields, got %+v", got)
	}
}

func TestLines(t *testing.T) {
	got := Lines(" a \n\n\t\nb\r\n c")
	if len(got) != 3 || got[0] != "a" || got[1] != "b" || got[2] != "c" {
		t.Fatalf("unexpected lines: %q", got)
	}
}
