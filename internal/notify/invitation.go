// Package notify sends interview invitations to matched candidates.
package notify

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/spigell/cv-matcher/internal/models"
)

const subjectTemplate = `Interview Invitation for {{.JobTitle}}`

const bodyTemplate = `Hi {{.Name}},

Congratulations! Based on your resume, you've been shortlisted for the position of {{.JobTitle}} at our company.

Match Score: {{printf "%.2f" .Score}}

Please reply to this email to confirm your availability for the interview. Here are a few tentative slots:
{{- range $i, $slot := .Slots}}
- Option {{inc $i}}: {{$slot}}
{{- end}}

Looking forward to your response.

Best regards,
Recruitment Team
`

// DefaultSlots are offered when no explicit interview slots are given.
var DefaultSlots = []string{
	"Tomorrow, 10:00 AM",
	"Day after, 2:00 PM",
	"Next Monday, 11:30 AM",
}

var (
	subjectTmpl = template.Must(template.New("subject").Parse(subjectTemplate))
	bodyTmpl    = template.Must(template.New("body").Funcs(template.FuncMap{
		"inc": func(i int) int { return i + 1 },
	}).Parse(bodyTemplate))
)

type Invitation struct {
	Name     string
	Email    string
	JobTitle string
	Score    float64
	Slots    []string
}

// Message is a rendered plain text email.
type Message struct {
	To      string
	Subject string
	Body    string
}

// InvitationFor builds the invitation for a stored match.
func InvitationFor(view models.MatchView) Invitation {
	name := strings.TrimSpace(view.Name)
	if name == "" {
		name = "Candidate"
	}
	return Invitation{
		Name:     name,
		Email:    strings.TrimSpace(view.Email),
		JobTitle: strings.TrimSpace(view.JobTitle),
		Score:    view.Score,
		Slots:    DefaultSlots,
	}
}

func Render(inv Invitation) (Message, error) {
	var subject, body bytes.Buffer

	if err := subjectTmpl.Execute(&subject, inv); err != nil {
		return Message{}, fmt.Errorf("render subject: %w", err)
	}
	if err := bodyTmpl.Execute(&body, inv); err != nil {
		return Message{}, fmt.Errorf("render body: %w", err)
	}

	return Message{
		To:      inv.Email,
		Subject: strings.TrimSpace(subject.String()),
		Body:    body.String(),
	}, nil
}
