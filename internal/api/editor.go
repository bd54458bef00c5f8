package api

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kalambet/profiled/internal/avatar"
	"github.com/kalambet/profiled/internal/links"
	"github.com/kalambet/profiled/internal/profile"
	"github.com/kalambet/profiled/internal/tags"
	"github.com/kalambet/profiled/internal/validate"
)

// PreviewOpener reads the bytes behind a live avatar preview handle.
type PreviewOpener interface {
	Open(id string) (avatar.Blob, bool)
}

type EditorDeps struct {
	Editor   *profile.Aggregator
	Previews PreviewOpener // optional; if nil, GET /avatar/{handle} is not routed
	Token    string
}

// NewEditorHandler returns the local HTTP surface of the profile editor.
// Everything except /health requires the bearer token.
func NewEditorHandler(deps EditorDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/profile", handleGetProfile(deps))
		r.Put("/profile/fields/{field}", handleSetField(deps))
		r.Post("/profile/submit", handleSubmit(deps))

		r.Get("/interests/catalog", handleCatalog)
		r.Post("/interests", handleAddInterest(deps))
		r.Delete("/interests/{tag}", handleRemoveInterest(deps))
		r.Post("/interests/dropdown", handleToggleDropdown(deps))
		r.Put("/interests/bounds", handleSetBounds(deps))
		r.Post("/pointer", handlePointer(deps))

		r.Post("/links", handleAddLink(deps))
		r.Delete("/links/{index}", handleRemoveLink(deps))
		r.Put("/links/{index}/{field}", handleSetLinkField(deps))

		r.Put("/avatar", handleSetAvatar(deps))
		if deps.Previews != nil {
			r.Get("/avatar/{handle}", handleGetAvatar(deps))
		}
	})

	return r
}

// ProfileResponse is the full editor view returned by GET /profile.
type ProfileResponse struct {
	Profile        profile.Profile       `json:"profile"`
	State          profile.State         `json:"state"`
	Violations     map[string][]string   `json:"violations,omitempty"`
	LinkViolations [][]string            `json:"linkViolations"`
	Interests      profile.InterestsView `json:"interests"`
	Summary        string                `json:"summary"`
}

func snapshot(ed *profile.Aggregator) ProfileResponse {
	return ProfileResponse{
		Profile:        ed.Profile(),
		State:          ed.State(),
		Violations:     ed.Violations(),
		LinkViolations: ed.LinkViolations(),
		Interests:      ed.Interests(),
		Summary:        ed.Summary(),
	}
}

func handleGetProfile(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, snapshot(deps.Editor))
	}
}

type valueRequest struct {
	Value string `json:"value"`
}

func handleSetField(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		field := validate.FieldID(chi.URLParam(r, "field"))
		var req valueRequest
		if !decodeBody(w, r, &req) {
			return
		}

		v, err := deps.Editor.SetField(field, req.Value)
		if errors.Is(err, validate.ErrUnknownField) {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "unknown field %q", field)
			return
		}
		if errors.Is(err, profile.ErrClosed) {
			httpError(w, http.StatusConflict, "api_error", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to set field: %v", err)
			return
		}
		if v == nil {
			v = []string{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"field": field, "violations": v})
	}
}

func handleSubmit(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var form profile.FormValues
		if !decodeBody(w, r, &form) {
			return
		}

		p, err := deps.Editor.Submit(form)
		var verr *profile.ValidationError
		switch {
		case errors.As(err, &verr):
			validationError(w, verr.Error(), verr.Fields)
		case errors.Is(err, profile.ErrStorageUnavailable):
			httpError(w, http.StatusServiceUnavailable, "storage_error", "%v", err)
		case errors.Is(err, profile.ErrClosed):
			httpError(w, http.StatusConflict, "api_error", "%v", err)
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "failed to submit profile: %v", err)
		default:
			writeJSON(w, http.StatusOK, map[string]any{
				"profile": p,
				"state":   profile.StateSubmittedValid,
			})
		}
	}
}

func handleCatalog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, tags.Catalog)
}

type addInterestRequest struct {
	Tag    string `json:"tag"`
	Custom bool   `json:"custom"`
}

func handleAddInterest(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addInterestRequest
		if !decodeBody(w, r, &req) {
			return
		}

		var added bool
		if req.Custom {
			added = deps.Editor.AddCustomInterest(req.Tag)
		} else {
			added = deps.Editor.AddCatalogInterest(req.Tag)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"added":     added,
			"interests": deps.Editor.Interests(),
		})
	}
}

func handleRemoveInterest(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tag, err := url.PathUnescape(chi.URLParam(r, "tag"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid tag: %v", err)
			return
		}
		removed := deps.Editor.RemoveInterest(tag)
		writeJSON(w, http.StatusOK, map[string]any{
			"removed":   removed,
			"interests": deps.Editor.Interests(),
		})
	}
}

func handleToggleDropdown(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		open := deps.Editor.ToggleInterestDropdown()
		writeJSON(w, http.StatusOK, map[string]bool{"dropdownOpen": open})
	}
}

func handleSetBounds(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rect tags.Rect
		if !decodeBody(w, r, &rect) {
			return
		}
		deps.Editor.SetInterestBounds(rect)
		writeJSON(w, http.StatusOK, rect)
	}
}

func handlePointer(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ev tags.PointerEvent
		if !decodeBody(w, r, &ev) {
			return
		}
		deps.Editor.Pointer(ev)
		writeJSON(w, http.StatusOK, map[string]bool{
			"dropdownOpen": deps.Editor.Interests().DropdownOpen,
		})
	}
}

func handleAddLink(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := deps.Editor.AddLink()
		if err != nil {
			writeLinksError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

// linkIndex resolves the {index} path segment, which is either a row
// position or a row's stable id.
func linkIndex(w http.ResponseWriter, r *http.Request, ed *profile.Aggregator) (int, bool) {
	param := chi.URLParam(r, "index")
	if i, err := strconv.Atoi(param); err == nil {
		return i, true
	}
	if uuid.Validate(param) != nil {
		httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid link index %q", param)
		return 0, false
	}
	i := ed.LinkIndex(param)
	if i < 0 {
		httpError(w, http.StatusNotFound, "not_found", "link %s not found", param)
		return 0, false
	}
	return i, true
}

func writeLinksError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, links.ErrIndexOutOfRange):
		httpError(w, http.StatusNotFound, "not_found", "%v", err)
	case errors.Is(err, links.ErrUnknownField):
		httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
	case errors.Is(err, profile.ErrClosed):
		httpError(w, http.StatusConflict, "api_error", "%v", err)
	default:
		httpError(w, http.StatusInternalServerError, "api_error", "%v", err)
	}
}

func linksView(ed *profile.Aggregator) map[string]any {
	return map[string]any{
		"links":      ed.Profile().Links,
		"violations": ed.LinkViolations(),
	}
}

func handleRemoveLink(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := linkIndex(w, r, deps.Editor)
		if !ok {
			return
		}
		if err := deps.Editor.RemoveLink(i); err != nil {
			writeLinksError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, linksView(deps.Editor))
	}
}

func handleSetLinkField(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		i, ok := linkIndex(w, r, deps.Editor)
		if !ok {
			return
		}
		var req valueRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if err := deps.Editor.SetLinkField(i, chi.URLParam(r, "field"), req.Value); err != nil {
			writeLinksError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, linksView(deps.Editor))
	}
}

func handleSetAvatar(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		defer r.Body.Close()
		c := avatar.Candidate{
			Name:      r.URL.Query().Get("name"),
			MediaType: r.Header.Get("Content-Type"),
		}
		// A declared oversize body is rejected without reading it.
		if r.ContentLength > avatar.MaxSize {
			c.Size = r.ContentLength
		} else {
			data, err := io.ReadAll(io.LimitReader(r.Body, avatar.MaxSize+1))
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "failed to read image: %v", err)
				return
			}
			c.Data = data
		}

		h, err := deps.Editor.SetAvatar(c)
		switch {
		case errors.Is(err, avatar.ErrUnsupportedFormat):
			httpError(w, http.StatusUnsupportedMediaType, "invalid_request_error", "%v", err)
		case errors.Is(err, avatar.ErrFileTooLarge):
			httpError(w, http.StatusRequestEntityTooLarge, "invalid_request_error", "%v", err)
		case errors.Is(err, profile.ErrClosed):
			httpError(w, http.StatusConflict, "api_error", "%v", err)
		case err != nil:
			httpError(w, http.StatusInternalServerError, "api_error", "failed to set avatar: %v", err)
		default:
			writeJSON(w, http.StatusOK, map[string]string{"handle": h.ID, "ref": h.Ref()})
		}
	}
}

func handleGetAvatar(deps EditorDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "handle")
		if parsed, ok := avatar.ParseRef(id); ok {
			id = parsed
		}
		blob, ok := deps.Previews.Open(id)
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "avatar preview not found")
			return
		}
		w.Header().Set("Content-Type", blob.MediaType)
		w.Header().Set("Content-Length", strconv.Itoa(len(blob.Data)))
		w.Write(blob.Data)
	}
}
