package profile

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxSummaryChars keeps the summary to a few terminal lines.
const maxSummaryChars = 600

func summarize(p Profile) string {
	var parts []string

	name := strings.TrimSpace(p.Name + " " + p.Surname)
	switch {
	case name != "" && p.JobTitle != "":
		parts = append(parts, fmt.Sprintf("%s, %s.", name, p.JobTitle))
	case name != "":
		parts = append(parts, name+".")
	case p.JobTitle != "":
		parts = append(parts, p.JobTitle+".")
	}

	var contact []string
	for _, c := range []string{p.Email, p.Phone, p.Address} {
		if c != "" {
			contact = append(contact, c)
		}
	}
	if len(contact) > 0 {
		parts = append(parts, fmt.Sprintf("Contact: %s.", strings.Join(contact, ", ")))
	}

	if p.Pitch != "" {
		parts = append(parts, p.Pitch)
	}

	if len(p.Interests) > 0 {
		parts = append(parts, fmt.Sprintf("Interests: %s.", strings.Join(p.Interests, ", ")))
	}

	var ls []string
	for _, l := range p.Links {
		switch {
		case l.SiteName != "" && l.Link != "":
			ls = append(ls, fmt.Sprintf("%s (%s)", l.SiteName, l.Link))
		case l.Link != "":
			ls = append(ls, l.Link)
		case l.SiteName != "":
			ls = append(ls, l.SiteName)
		}
	}
	if len(ls) > 0 {
		parts = append(parts, fmt.Sprintf("Links: %s.", strings.Join(ls, ", ")))
	}

	if len(parts) == 0 {
		return "Profile: not yet filled in."
	}
	parts = append(parts, fmt.Sprintf("Visibility: %s.", p.Visibility))

	summary := strings.Join(parts, " ")
	if len(summary) > maxSummaryChars {
		// Ensure we don't split a multi-byte UTF-8 character.
		end := maxSummaryChars
		for end > 0 && !utf8.RuneStart(summary[end]) {
			end--
		}
		if idx := strings.LastIndex(summary[:end], " "); idx > 0 {
			summary = summary[:idx]
		} else {
			summary = summary[:end]
		}
	}
	return summary
}
