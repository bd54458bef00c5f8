package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kalambet/profiled/internal/api"
	"github.com/kalambet/profiled/internal/config"
	"github.com/kalambet/profiled/internal/links"
	"github.com/kalambet/profiled/internal/profile"
	"github.com/kalambet/profiled/internal/tags"
	"github.com/kalambet/profiled/internal/validate"
)

// --- profile ---

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Show, edit, and submit the profile",
}

var profileShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the current profile draft",
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, _ := cmd.Flags().GetBool("summary")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		view, err := fetchProfile(cmd, client)
		if err != nil {
			return err
		}

		if summary {
			fmt.Println(renderSummary(view))
			return nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(view)
	},
}

var profileSetCmd = &cobra.Command{
	Use:   "set <field> <value>",
	Short: "Set a profile field in the draft",
	Long: `Set a profile field in the draft. The value is checked immediately but only
saved by "profiled profile submit".

Fields: ` + fieldList(),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		field, value := args[0], args[1]

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.put(cmd.Context(), "/profile/fields/"+url.PathEscape(field), map[string]string{"value": value})
		if err != nil {
			return err
		}
		var result struct {
			Violations []string `json:"violations"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Violations) > 0 {
			printWarning("Set %s, but it is not valid yet:", field)
			printViolations(map[string][]string{field: result.Violations})
			return nil
		}
		printSuccess("Set %s = %s", field, value)
		return nil
	},
}

// formFlags maps submit flags onto form fields.
var formFlags = []struct {
	flag, usage string
	field       func(*profile.FormValues) *string
}{
	{"name", "first name", func(f *profile.FormValues) *string { return &f.Name }},
	{"surname", "last name", func(f *profile.FormValues) *string { return &f.Surname }},
	{"job-title", "job title", func(f *profile.FormValues) *string { return &f.JobTitle }},
	{"phone", "phone number, +<10-15 digits>", func(f *profile.FormValues) *string { return &f.Phone }},
	{"email", "email address", func(f *profile.FormValues) *string { return &f.Email }},
	{"address", "postal address", func(f *profile.FormValues) *string { return &f.Address }},
	{"pitch", "short pitch", func(f *profile.FormValues) *string { return &f.Pitch }},
}

// buildForm starts from the current draft and overrides every flag the user
// passed explicitly.
func buildForm(cmd *cobra.Command, current profile.Profile) profile.FormValues {
	form := current.Form()
	for _, ff := range formFlags {
		if cmd.Flags().Changed(ff.flag) {
			v, _ := cmd.Flags().GetString(ff.flag)
			*ff.field(&form) = v
		}
	}
	if cmd.Flags().Changed("visibility") {
		v, _ := cmd.Flags().GetString("visibility")
		form.Visibility = profile.Visibility(v)
	}
	return form
}

var profileSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Validate and save the profile",
	Long: `Validate and save the profile. Flags override the current draft; fields not
given keep their draft value.

Examples:
  profiled profile submit --name Ada --surname Lovelace --email ada@example.com
  profiled profile submit --visibility Public`,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}
		view, err := fetchProfile(cmd, client)
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/profile/submit", buildForm(cmd, view.Profile))
		if err != nil {
			return err
		}
		var result struct {
			Profile profile.Profile `json:"profile"`
		}
		err = decodeJSON(resp, &result)
		var apiErr *apiError
		if errors.As(err, &apiErr) && len(apiErr.Violations) > 0 {
			printError("Profile not saved; fix these fields:")
			printViolations(apiErr.Violations)
			return fmt.Errorf("%d invalid field(s)", len(apiErr.Violations))
		}
		if err != nil {
			return err
		}

		printSuccess("Profile saved")
		return nil
	},
}

func init() {
	profileShowCmd.Flags().Bool("summary", false, "print a short text summary instead of JSON")
	for _, ff := range formFlags {
		profileSubmitCmd.Flags().String(ff.flag, "", ff.usage)
	}
	profileSubmitCmd.Flags().String("visibility", "", "Private or Public")

	profileCmd.AddCommand(profileShowCmd)
	profileCmd.AddCommand(profileSetCmd)
	profileCmd.AddCommand(profileSubmitCmd)
}

func fieldList() string {
	var ids []string
	for _, id := range validate.Fields() {
		ids = append(ids, string(id))
	}
	return strings.Join(ids, ", ")
}

func fetchProfile(cmd *cobra.Command, client *apiClient) (api.ProfileResponse, error) {
	var view api.ProfileResponse
	resp, err := client.get(cmd.Context(), "/profile")
	if err != nil {
		return view, err
	}
	err = decodeJSON(resp, &view)
	return view, err
}

// renderSummary prints the server-rendered summary under a state header.
func renderSummary(view api.ProfileResponse) string {
	header := colorize(colorBold, fmt.Sprintf("Profile [%s]", view.State))
	return header + "\n  " + view.Summary
}

// --- interests ---

var interestsCmd = &cobra.Command{
	Use:   "interests",
	Short: "Manage interest tags (up to 10)",
}

type interestsResult struct {
	Added     bool                  `json:"added"`
	Removed   bool                  `json:"removed"`
	Interests profile.InterestsView `json:"interests"`
}

var interestsAddCmd = &cobra.Command{
	Use:   "add <tag>",
	Short: "Add an interest from the catalog, or a custom one with --custom",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := strings.Join(args, " ")
		custom, _ := cmd.Flags().GetBool("custom")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/interests", map[string]any{"tag": tag, "custom": custom})
		if err != nil {
			return err
		}
		var result interestsResult
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result.Added {
			printWarning("%q not added (duplicate, empty, or already %d interests)", tag, tags.MaxTags)
		} else {
			printSuccess("Added %s", tag)
		}
		fmt.Println(strings.Join(result.Interests.Tags, ", "))
		return nil
	},
}

var interestsRemoveCmd = &cobra.Command{
	Use:     "rm <tag>",
	Aliases: []string{"remove"},
	Short:   "Remove an interest",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), "/interests/"+url.PathEscape(tag))
		if err != nil {
			return err
		}
		var result interestsResult
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if !result.Removed {
			printWarning("%q is not an interest", tag)
			return nil
		}
		printSuccess("Removed %s", tag)
		return nil
	},
}

var interestsCatalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List suggested interests",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, t := range tags.Catalog {
			fmt.Println(t)
		}
		return nil
	},
}

func init() {
	interestsAddCmd.Flags().Bool("custom", false, "add a user-defined tag not in the catalog")
	interestsCmd.AddCommand(interestsAddCmd)
	interestsCmd.AddCommand(interestsRemoveCmd)
	interestsCmd.AddCommand(interestsCatalogCmd)
}

// --- links ---

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Manage profile links",
}

type linksResult struct {
	Links      []links.Entry `json:"links"`
	Violations [][]string    `json:"violations"`
}

func printLinks(res linksResult) {
	for i, l := range res.Links {
		fmt.Printf("%s  %s  %s\n", colorize(colorCyan, fmt.Sprintf("[%d]", i)), l.SiteName, l.Link)
		if i < len(res.Violations) {
			for _, msg := range res.Violations[i] {
				fmt.Printf("      %s\n", colorize(colorRed, msg))
			}
		}
	}
}

var linksAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Append a link row",
	RunE: func(cmd *cobra.Command, args []string) error {
		site, _ := cmd.Flags().GetString("site")
		link, _ := cmd.Flags().GetString("link")

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.post(cmd.Context(), "/links", nil)
		if err != nil {
			return err
		}
		var entry links.Entry
		if err := decodeJSON(resp, &entry); err != nil {
			return err
		}

		var res linksResult
		for _, f := range []struct{ field, value string }{
			{links.FieldSiteName, site},
			{links.FieldLink, link},
		} {
			if f.value == "" {
				continue
			}
			if res, err = setLinkField(cmd, client, entry.ID, f.field, f.value); err != nil {
				return err
			}
		}

		if res.Links == nil {
			printSuccess("Added link %s", entry.ID)
			return nil
		}
		index := slices.IndexFunc(res.Links, func(e links.Entry) bool { return e.ID == entry.ID })
		printSuccess("Added link %d", index)
		printLinks(res)
		return nil
	},
}

var linksRemoveCmd = &cobra.Command{
	Use:     "rm <index>",
	Aliases: []string{"remove"},
	Short:   "Remove a link row",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[0])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.delete(cmd.Context(), fmt.Sprintf("/links/%d", index))
		if err != nil {
			return err
		}
		var res linksResult
		if err := decodeJSON(resp, &res); err != nil {
			return err
		}

		printSuccess("Removed link %d", index)
		printLinks(res)
		return nil
	},
}

var linksSetCmd = &cobra.Command{
	Use:   "set <index> <siteName|link> <value>",
	Short: "Set a field on a link row",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[0])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		res, err := setLinkField(cmd, client, strconv.Itoa(index), args[1], args[2])
		if err != nil {
			return err
		}
		printLinks(res)
		return nil
	},
}

// setLinkField sets one field on the row addressed by position or stable id.
func setLinkField(cmd *cobra.Command, client *apiClient, row, field, value string) (linksResult, error) {
	var res linksResult
	resp, err := client.put(cmd.Context(), fmt.Sprintf("/links/%s/%s", url.PathEscape(row), url.PathEscape(field)), map[string]string{"value": value})
	if err != nil {
		return res, err
	}
	err = decodeJSON(resp, &res)
	return res, err
}

func init() {
	linksAddCmd.Flags().String("site", "", "site name, e.g. GitHub")
	linksAddCmd.Flags().String("link", "", "URL starting with http:// or https://")
	linksCmd.AddCommand(linksAddCmd)
	linksCmd.AddCommand(linksRemoveCmd)
	linksCmd.AddCommand(linksSetCmd)
}

// --- avatar ---

var avatarCmd = &cobra.Command{
	Use:   "avatar",
	Short: "Manage the profile avatar",
}

// mediaTypeFor picks the declared media type for an avatar file: by
// extension first, then by sniffing the content.
func mediaTypeFor(path string, data []byte) string {
	if mt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); mt != "" {
		return mt
	}
	return http.DetectContentType(data)
}

var avatarSetCmd = &cobra.Command{
	Use:   "set <file>",
	Short: "Upload a .jpg, .jpeg, or .png avatar (max 5MB)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}
		resp, err := client.putRaw(cmd.Context(), "/avatar?name="+url.QueryEscape(filepath.Base(path)), mediaTypeFor(path, data), data)
		if err != nil {
			return err
		}
		var result struct {
			Ref string `json:"ref"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Avatar set (%s)", result.Ref)
		return nil
	},
}

func init() {
	avatarCmd.AddCommand(avatarSetCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		for _, k := range config.ShowAll(cfg) {
			fmt.Printf("  %s = %s  %s\n", colorize(colorBold, k.Key), k.Value, colorize(colorCyan, "("+k.EnvVar+")"))
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long:  "Set a configuration value. Valid keys: " + strings.Join(config.ValidKeys(), ", "),
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
