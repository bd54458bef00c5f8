package validate

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrUnknownField is returned when a field has no registered rule set.
var ErrUnknownField = errors.New("unknown field")

// FieldID names a scalar profile field.
type FieldID string

const (
	Name     FieldID = "name"
	Surname  FieldID = "surname"
	JobTitle FieldID = "jobTitle"
	Phone    FieldID = "phone"
	Email    FieldID = "email"
	Address  FieldID = "address"
	Pitch    FieldID = "pitch"
)

var (
	personNameRe = regexp.MustCompile(`^[\p{L}\s-]+$`)
	jobTitleRe   = regexp.MustCompile(`^[A-Za-z0-9\s-]+$`)
	phoneRe      = regexp.MustCompile(`^\+[0-9]{10,15}$`)
	emailRe      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	freeTextRe   = regexp.MustCompile(`^[A-Za-z0-9\s,.-]+$`)
)

var fieldOrder = []FieldID{Name, Surname, JobTitle, Phone, Email, Address, Pitch}

var fieldRules = map[FieldID][]Rule{
	Name: {
		Required("Name is required"),
		MinLength(2, "Name must be at least 2 characters"),
		MaxLength(50, "Name must be less than 50 characters"),
		Pattern(personNameRe, "Name can only contain letters and spaces"),
	},
	Surname: {
		Required("Surname is required"),
		MinLength(2, "Surname must be at least 2 characters"),
		MaxLength(50, "Surname must be less than 50 characters"),
		Pattern(personNameRe, "Surname can only contain letters and spaces"),
	},
	JobTitle: {
		MaxLength(100, "Job title must be less than 100 characters"),
		Pattern(jobTitleRe, "Job title can contain letters, numbers, and spaces"),
	},
	Phone: {
		Required("Phone number is required"),
		Pattern(phoneRe, `Phone number must start with "+" followed by digits, and be between 10 to 15 digits long`),
	},
	Email: {
		Required("Email is required"),
		Pattern(emailRe, "Please enter a valid email address"),
	},
	Address: {
		MaxLength(200, "Address must be less than 200 characters"),
		Pattern(freeTextRe, "Address can contain letters, numbers, spaces, commas, dots, and hyphens"),
	},
	Pitch: {
		MaxLength(300, "Pitch must be less than 300 characters"),
		Pattern(freeTextRe, "Pitch must contain valid text or tags, with no special characters."),
	},
}

// Fields returns the rule-bearing scalar fields in display order.
func Fields() []FieldID {
	out := make([]FieldID, len(fieldOrder))
	copy(out, fieldOrder)
	return out
}

// RulesFor returns the rule set registered for id.
func RulesFor(id FieldID) ([]Rule, error) {
	rules, ok := fieldRules[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownField, id)
	}
	return rules, nil
}

// Field validates value against the rule set registered for id.
func Field(id FieldID, value string) ([]string, error) {
	rules, err := RulesFor(id)
	if err != nil {
		return nil, err
	}
	return Validate(value, rules), nil
}

// Form validates every rule-bearing field. Fields missing from values are
// validated as empty. Only fields with violations appear in the result.
func Form(values map[FieldID]string) map[FieldID][]string {
	out := make(map[FieldID][]string)
	for _, id := range fieldOrder {
		if v := Validate(values[id], fieldRules[id]); len(v) > 0 {
			out[id] = v
		}
	}
	return out
}
