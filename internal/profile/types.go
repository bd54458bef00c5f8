package profile

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/profiled/internal/links"
	"github.com/kalambet/profiled/internal/validate"
)

// Visibility controls who may see the profile.
type Visibility string

const (
	VisibilityPrivate Visibility = "Private"
	VisibilityPublic  Visibility = "Public"
)

func (v Visibility) Valid() bool {
	return v == VisibilityPrivate || v == VisibilityPublic
}

// Profile is the canonical entity assembled from the editor widgets.
type Profile struct {
	Name       string        `json:"name"`
	Surname    string        `json:"surname"`
	JobTitle   string        `json:"jobTitle"`
	Phone      string        `json:"phone"`
	Address    string        `json:"address"`
	Email      string        `json:"email"`
	Pitch      string        `json:"pitch"`
	AvatarRef  string        `json:"avatarUrl"`
	Visibility Visibility    `json:"visibility"`
	Interests  Interests     `json:"interests"`
	Links      []links.Entry `json:"links"`
	SavedAt    time.Time     `json:"savedAt,omitzero"`
}

func emptyProfile() Profile {
	return Profile{
		Visibility: VisibilityPrivate,
		Interests:  Interests{},
		Links:      []links.Entry{},
	}
}

// Interests is the ordered tag list. It decodes both a JSON array and the
// legacy space-joined string form.
type Interests []string

func (in *Interests) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*in = list
		return nil
	}
	var joined string
	if err := json.Unmarshal(b, &joined); err != nil {
		return err
	}
	*in = strings.Fields(joined)
	return nil
}

// FormValues carries the scalar fields from one form pass. An empty
// Visibility keeps the current value.
type FormValues struct {
	Name       string     `json:"name"`
	Surname    string     `json:"surname"`
	JobTitle   string     `json:"jobTitle"`
	Phone      string     `json:"phone"`
	Address    string     `json:"address"`
	Email      string     `json:"email"`
	Pitch      string     `json:"pitch"`
	Visibility Visibility `json:"visibility,omitempty"`
}

func (f FormValues) apply(p *Profile) {
	p.Name = f.Name
	p.Surname = f.Surname
	p.JobTitle = f.JobTitle
	p.Phone = f.Phone
	p.Address = f.Address
	p.Email = f.Email
	p.Pitch = f.Pitch
	if f.Visibility != "" {
		p.Visibility = f.Visibility
	}
}

// Form returns the scalar fields of p as a FormValues.
func (p Profile) Form() FormValues {
	return FormValues{
		Name:       p.Name,
		Surname:    p.Surname,
		JobTitle:   p.JobTitle,
		Phone:      p.Phone,
		Address:    p.Address,
		Email:      p.Email,
		Pitch:      p.Pitch,
		Visibility: p.Visibility,
	}
}

func (p Profile) scalars() map[validate.FieldID]string {
	return map[validate.FieldID]string{
		validate.Name:     p.Name,
		validate.Surname:  p.Surname,
		validate.JobTitle: p.JobTitle,
		validate.Phone:    p.Phone,
		validate.Address:  p.Address,
		validate.Email:    p.Email,
		validate.Pitch:    p.Pitch,
	}
}

func (p *Profile) setScalar(id validate.FieldID, value string) {
	switch id {
	case validate.Name:
		p.Name = value
	case validate.Surname:
		p.Surname = value
	case validate.JobTitle:
		p.JobTitle = value
	case validate.Phone:
		p.Phone = value
	case validate.Address:
		p.Address = value
	case validate.Email:
		p.Email = value
	case validate.Pitch:
		p.Pitch = value
	}
}

// State is the validity state of the canonical profile.
type State int

const (
	StateDraft State = iota
	StateSubmittedValid
)

func (s State) String() string {
	if s == StateSubmittedValid {
		return "submitted-valid"
	}
	return "draft"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *State) UnmarshalText(b []byte) error {
	switch string(b) {
	case "draft":
		*s = StateDraft
	case "submitted-valid":
		*s = StateSubmittedValid
	default:
		return fmt.Errorf("unknown profile state %q", b)
	}
	return nil
}

// Slice names an independently persisted part of the profile.
type Slice string

const (
	SliceAvatar    Slice = "avatar"
	SliceInterests Slice = "interests"
	SliceLinks     Slice = "links"
)

// Local store keys.
const (
	KeyProfile   = "profile"
	KeyLinks     = "links"
	KeyInterests = "interests"
	KeyAvatar    = "avatar"
)

// StoredKeys lists every key the editor writes.
var StoredKeys = []string{KeyProfile, KeyLinks, KeyInterests, KeyAvatar}

func deepCopyProfile(p Profile) Profile {
	cp := p
	if p.Interests != nil {
		cp.Interests = make(Interests, len(p.Interests))
		copy(cp.Interests, p.Interests)
	}
	if p.Links != nil {
		cp.Links = make([]links.Entry, len(p.Links))
		copy(cp.Links, p.Links)
	}
	return cp
}
