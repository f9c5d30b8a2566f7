package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/msomdec/taskmate/internal/domain"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Output formats accepted by profile show.
const (
	formatText = "text"
	formatYAML = "yaml"
	formatJSON = "json"
)

func profileCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or edit your profile",
	}
	cmd.AddCommand(profileShowCmd(opts))
	cmd.AddCommand(profileSetCmd(opts))
	return cmd
}

func profileShowCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show your profile and task statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch format {
			case formatText, formatYAML, formatJSON:
			default:
				return fmt.Errorf("%w: unknown output format %q", domain.ErrInvalidInput, format)
			}

			app, err := opts.app(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			if _, err := app.requireSession(ctx); err != nil {
				return err
			}
			if err := app.profile.Fetch(ctx); err != nil {
				return fmt.Errorf("load profile: %w", err)
			}
			return printProfile(app.out, app.profile.Profile(), format)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", formatText, "Output format: text, yaml or json")
	return cmd
}

func profileSetCmd(opts *rootOptions) *cobra.Command {
	var name, role, bio, avatar string
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Update profile fields",
		Long:  "Update profile fields. Only the flags you pass are changed.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch domain.ProfilePatch
			flags := cmd.Flags()
			if flags.Changed("name") {
				patch.Name = &name
			}
			if flags.Changed("role") {
				patch.Role = &role
			}
			if flags.Changed("bio") {
				patch.Bio = &bio
			}
			if flags.Changed("avatar") {
				patch.Avatar = &avatar
			}
			if patch.Empty() {
				return fmt.Errorf("%w: pass at least one of --name, --role, --bio, --avatar", domain.ErrInvalidInput)
			}

			app, err := opts.app(cmd)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx := cmd.Context()
			if _, err := app.requireSession(ctx); err != nil {
				return err
			}
			if err := app.profile.Fetch(ctx); err != nil {
				return fmt.Errorf("load profile: %w", err)
			}
			app.profile.Update(ctx, patch)
			return printProfile(app.out, app.profile.Profile(), formatText)
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&name, "name", "", "Display name")
	flags.StringVar(&role, "role", "", "Role or title")
	flags.StringVar(&bio, "bio", "", "About me")
	flags.StringVar(&avatar, "avatar", "", "Profile image URL")
	return cmd
}

func printProfile(w io.Writer, p domain.Profile, format string) error {
	switch format {
	case formatText:
		_, err := fmt.Fprintf(w, "Name:    %s\nRole:    %s\nBio:     %s\nAvatar:  %s\nTasks:   %d (%d completed, %d pending)\n",
			p.Name, orDash(p.Role), orDash(p.Bio), orDash(p.Avatar),
			p.Stats.Total, p.Stats.Completed, p.Stats.Pending)
		return err
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(p); err != nil {
			return err
		}
		return enc.Close()
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	default:
		return fmt.Errorf("%w: unknown output format %q", domain.ErrInvalidInput, format)
	}
}
