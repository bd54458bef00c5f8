package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kalambet/profiled/internal/avatar"
	"github.com/kalambet/profiled/internal/links"
	"github.com/kalambet/profiled/internal/storage"
	"github.com/kalambet/profiled/internal/tags"
	"github.com/kalambet/profiled/internal/validate"
)

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithClock sets the clock used to stamp saved snapshots.
func WithClock(c Clock) Option {
	return func(a *Aggregator) { a.clock = c }
}

// WithSliceWriter replaces the inline slice writer, e.g. with an AsyncWriter.
func WithSliceWriter(w SliceWriter) Option {
	return func(a *Aggregator) { a.slices = w }
}

// WithRegistry sets where avatar preview handles are created.
func WithRegistry(r avatar.Registry) Option {
	return func(a *Aggregator) { a.registry = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(a *Aggregator) { a.logger = l }
}

// Aggregator is the only writer of the canonical Profile. Child editors
// report changes back through merge callbacks; all access is serialized by mu,
// so every exported method is one non-overlapping editor interaction.
type Aggregator struct {
	store    LocalStore
	slices   SliceWriter
	clock    Clock
	registry avatar.Registry
	logger   *slog.Logger

	mu             sync.Mutex
	profile        Profile
	state          State
	violations     map[string][]string
	linkViolations [][]string
	closed         bool

	interests *tags.Editor
	links     *links.Editor
	avatar    *avatar.Reference
	pointer   *tags.Bus
}

// NewAggregator mounts the editor: it rehydrates the profile from store and
// seeds every child widget from it.
func NewAggregator(store LocalStore, opts ...Option) *Aggregator {
	a := &Aggregator{
		store:   store,
		clock:   realClock{},
		logger:  slog.Default(),
		pointer: tags.NewBus(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.slices == nil {
		a.slices = syncWriter{store: store, logger: a.logger}
	}
	if a.registry == nil {
		a.registry = avatar.NewMemoryRegistry()
	}
	a.rehydrate()
	return a
}

// rehydrate reads the persisted snapshot once and fans it out. Slice keys are
// newer than the snapshot when present, so they take precedence.
func (a *Aggregator) rehydrate() {
	p := emptyProfile()
	var snap Profile
	if a.unmarshalKey(KeyProfile, &snap) {
		p = snap
		if !p.Visibility.Valid() {
			p.Visibility = VisibilityPrivate
		}
	}

	var ls []links.Entry
	if a.unmarshalKey(KeyLinks, &ls) {
		p.Links = ls
	}
	var in Interests
	if a.unmarshalKey(KeyInterests, &in) {
		p.Interests = in
	}
	if ref, ok := a.read(KeyAvatar); ok {
		p.AvatarRef = ref
	}

	a.interests = tags.NewEditor(p.Interests, a.mergeInterests)
	a.interests.Mount(a.pointer)
	a.links = links.NewEditor(p.Links, a.mergeLinks)
	a.avatar = avatar.NewReference(a.registry, p.AvatarRef)

	p.Interests = a.interests.Tags()
	p.Links = a.links.Entries()
	a.profile = p
	a.linkViolations = a.links.Violations()
	a.state = StateDraft
}

func (a *Aggregator) read(key string) (string, bool) {
	v, err := a.store.Get(key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			a.logger.Warn("reading stored key, treating as absent", "key", key, "error", err)
		}
		return "", false
	}
	return v, true
}

// unmarshalKey decodes a stored JSON value into target. Unparseable values are
// logged and treated as absent.
func (a *Aggregator) unmarshalKey(key string, target any) bool {
	v, ok := a.read(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(v), target); err != nil {
		a.logger.Warn("malformed stored key, skipping", "key", key, "error", err)
		return false
	}
	return true
}

// --- merges (mu held) ---

func (a *Aggregator) mergeInterests(in []string) {
	a.profile.Interests = in
	a.touch()
	a.persistSlice(KeyInterests, in)
}

func (a *Aggregator) mergeLinks(c links.Change) {
	a.profile.Links = c.Entries
	a.linkViolations = c.Violations
	a.touch()
	a.persistSlice(KeyLinks, c.Entries)
}

func (a *Aggregator) mergeAvatar(ref string) {
	a.profile.AvatarRef = ref
	a.touch()
	a.slices.WriteSlice(KeyAvatar, ref)
}

func (a *Aggregator) touch() {
	a.state = StateDraft
}

func (a *Aggregator) persistSlice(key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		a.logger.Warn("encoding slice", "key", key, "error", err)
		return
	}
	a.slices.WriteSlice(key, string(b))
}

// OnChildChange merges a slice value reported by an external widget and
// resyncs the matching child editor. Accepted values: []string for
// interests, []links.Entry for links, string for avatar.
func (a *Aggregator) OnChildChange(slice Slice, value any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}

	switch slice {
	case SliceInterests:
		v, ok := value.([]string)
		if !ok {
			return fmt.Errorf("interests slice: unexpected value type %T", value)
		}
		a.interests.Reset(v)
		a.mergeInterests(a.interests.Tags())
	case SliceLinks:
		v, ok := value.([]links.Entry)
		if !ok {
			return fmt.Errorf("links slice: unexpected value type %T", value)
		}
		a.links.Reset(v)
		a.mergeLinks(links.Change{Entries: a.links.Entries(), Violations: a.links.Violations()})
	case SliceAvatar:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("avatar slice: unexpected value type %T", value)
		}
		a.avatar.Restore(v)
		a.mergeAvatar(v)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownSlice, slice)
	}
	return nil
}

// --- interests ---

// InterestsView is the interests widget state for rendering.
type InterestsView struct {
	Tags         []string `json:"tags"`
	DropdownOpen bool     `json:"dropdownOpen"`
	Input        string   `json:"input"`
	InputVisible bool     `json:"inputVisible"`
}

func (a *Aggregator) Interests() InterestsView {
	a.mu.Lock()
	defer a.mu.Unlock()
	return InterestsView{
		Tags:         a.interests.Tags(),
		DropdownOpen: a.interests.DropdownOpen(),
		Input:        a.interests.Input(),
		InputVisible: a.interests.InputVisible(),
	}
}

// Interest and link mutators are no-ops on a closed editor: bool results
// report false and error results return ErrClosed.

func (a *Aggregator) AddCatalogInterest(tag string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	return a.interests.AddFromCatalog(tag)
}

func (a *Aggregator) AddCustomInterest(tag string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	return a.interests.AddCustom(tag)
}

// SubmitInterestInput adds the custom-tag input buffer as a tag.
func (a *Aggregator) SubmitInterestInput() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	return a.interests.SubmitInput()
}

func (a *Aggregator) SetInterestInput(s string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.interests.ShowInput()
	a.interests.SetInput(s)
}

func (a *Aggregator) RemoveInterest(tag string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	return a.interests.Remove(tag)
}

func (a *Aggregator) ToggleInterestDropdown() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return false
	}
	a.interests.ToggleDropdown()
	return a.interests.DropdownOpen()
}

func (a *Aggregator) SetInterestBounds(r tags.Rect) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.interests.SetBounds(r)
}

// Pointer dispatches a page-level pointer event to mounted widgets.
func (a *Aggregator) Pointer(ev tags.PointerEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pointer.Publish(ev)
}

// --- links ---

func (a *Aggregator) AddLink() (links.Entry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return links.Entry{}, ErrClosed
	}
	return a.links.AddRow(), nil
}

func (a *Aggregator) RemoveLink(index int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return a.links.RemoveRow(index)
}

func (a *Aggregator) SetLinkField(index int, field, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return ErrClosed
	}
	return a.links.SetField(index, field, value)
}

// LinkIndex returns the current position of the link row with the stable
// id, or -1.
func (a *Aggregator) LinkIndex(id string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.links.IndexOf(id)
}

// LinkViolations returns the per-row violations currently shown.
func (a *Aggregator) LinkViolations() [][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([][]string, len(a.linkViolations))
	for i, v := range a.linkViolations {
		out[i] = append([]string(nil), v...)
	}
	return out
}

// --- avatar ---

// SetAvatar gates c and makes it the current avatar. A rejected candidate
// leaves the previous avatar in place.
func (a *Aggregator) SetAvatar(c avatar.Candidate) (avatar.Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return avatar.Handle{}, ErrClosed
	}
	h, err := a.avatar.Accept(c)
	if err != nil {
		return avatar.Handle{}, err
	}
	a.mergeAvatar(h.Ref())
	return h, nil
}

// --- scalar fields and submit ---

// SetField updates one scalar field of the draft and returns its violations
// for inline display. Scalar fields are only persisted by Submit.
func (a *Aggregator) SetField(id validate.FieldID, value string) ([]string, error) {
	v, err := validate.Field(id, value)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return nil, ErrClosed
	}
	a.profile.setScalar(id, value)
	a.touch()
	if a.violations == nil {
		a.violations = make(map[string][]string)
	}
	if len(v) > 0 {
		a.violations[string(id)] = v
	} else {
		delete(a.violations, string(id))
	}
	return v, nil
}

// Submit merges form into the profile, validates the whole entity and, only
// if nothing is invalid, persists the snapshot and marks it submitted-valid.
// A rejected submit returns *ValidationError; a store failure returns an
// error wrapping ErrStorageUnavailable. Either way the entered values stay in
// the draft and the previously persisted snapshot is untouched.
func (a *Aggregator) Submit(form FormValues) (Profile, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return Profile{}, ErrClosed
	}

	form.apply(&a.profile)
	a.state = StateDraft

	violations := a.validateLocked()
	if len(violations) > 0 {
		a.violations = violations
		a.logger.Debug("profile submit rejected", "fields", len(violations))
		return Profile{}, &ValidationError{Fields: cloneViolations(violations)}
	}
	a.violations = nil

	snap := deepCopyProfile(a.profile)
	snap.SavedAt = a.clock.Now().UTC().Truncate(time.Second)
	b, err := json.Marshal(snap)
	if err != nil {
		return Profile{}, fmt.Errorf("encoding profile: %w", err)
	}
	if err := a.store.Set(KeyProfile, string(b)); err != nil {
		a.logger.Error("profile save failed", "error", err)
		return Profile{}, fmt.Errorf("%w: saving profile: %w", ErrStorageUnavailable, err)
	}

	a.profile.SavedAt = snap.SavedAt
	a.state = StateSubmittedValid
	a.logger.Info("profile saved", "interests", len(snap.Interests), "links", len(snap.Links))
	return snap, nil
}

func (a *Aggregator) validateLocked() map[string][]string {
	out := make(map[string][]string)
	for id, v := range validate.Form(a.profile.scalars()) {
		out[string(id)] = v
	}
	if !a.profile.Visibility.Valid() {
		out["visibility"] = []string{"Visibility must be Private or Public"}
	}
	if len(a.profile.Interests) > tags.MaxTags {
		out["interests"] = []string{fmt.Sprintf("You can select up to %d interests", tags.MaxTags)}
	}
	a.linkViolations = a.links.Revalidate()
	for i, v := range a.linkViolations {
		if len(v) > 0 {
			out[fmt.Sprintf("links[%d]", i)] = v
		}
	}
	return out
}

// --- read side ---

// Profile returns a copy of the canonical profile.
func (a *Aggregator) Profile() Profile {
	a.mu.Lock()
	defer a.mu.Unlock()
	return deepCopyProfile(a.profile)
}

func (a *Aggregator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Violations returns the field violations from the last submit or field edit.
func (a *Aggregator) Violations() map[string][]string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return cloneViolations(a.violations)
}

// Summary returns a compact text rendering of the profile.
func (a *Aggregator) Summary() string {
	return summarize(a.Profile())
}

// Close tears the editor down: the pointer subscription and the live avatar
// preview are released. Close is idempotent.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return
	}
	a.closed = true
	a.interests.Close()
	a.avatar.Close()
}
