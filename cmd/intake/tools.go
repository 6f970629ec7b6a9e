package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ehr/intake/internal/card"
	"github.com/ehr/intake/internal/config"
	"github.com/ehr/intake/internal/domain/age"
	"github.com/ehr/intake/internal/domain/attributes"
	"github.com/ehr/intake/internal/domain/registration"
	"github.com/ehr/intake/internal/registry"
)

func newRegistryClient(cfg *config.Config) *registry.Client {
	return registry.NewClient(registry.ClientConfig{
		BaseURL:  cfg.RegistryBaseURL,
		Username: cfg.RegistryUsername,
		Password: cfg.RegistryPassword,
		Timeout:  cfg.RegistryTimeout,
	}, newLogger(cfg), nil)
}

func ageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "age",
		Short: "Compute the age for a date of birth",
		RunE: func(cmd *cobra.Command, args []string) error {
			dob, _ := cmd.Flags().GetString("birthdate")
			at, _ := cmd.Flags().GetString("at")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			birth, err := registration.ParseDateOfBirth(dob, cfg.Location())
			if err != nil {
				return fmt.Errorf("--birthdate must be YYYY-MM-DD: %w", err)
			}
			now := time.Now().In(cfg.Location())
			if at != "" {
				if now, err = registration.ParseDateOfBirth(at, cfg.Location()); err != nil {
					return fmt.Errorf("--at must be YYYY-MM-DD: %w", err)
				}
			}
			return printAge(cmd.OutOrStdout(), age.Between(birth, now))
		},
	}
	cmd.Flags().String("birthdate", "", "Date of birth (YYYY-MM-DD)")
	cmd.Flags().String("at", "", "Evaluate the age on this date instead of today (YYYY-MM-DD)")
	cmd.MarkFlagRequired("birthdate")
	return cmd
}

func printAge(w io.Writer, a age.Age) error {
	_, err := fmt.Fprintf(w, "%d years %d months %d days\n", a.Years, a.Months, a.Days)
	return err
}

func attributeTypesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "attribute-types",
		Short: "List the registry's person-attribute types and the intake fields bound to them",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.RegistryBaseURL == "" {
				return fmt.Errorf("REGISTRY_BASE_URL is required")
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), cfg.RegistryTimeout+5*time.Second)
			defer cancel()
			types, err := newRegistryClient(cfg).ListAttributeTypes(ctx)
			if err != nil {
				return err
			}
			return printAttributeTypes(cmd.OutOrStdout(), types, attributes.NewResolver(nil))
		},
	}
}

func printAttributeTypes(w io.Writer, types []attributes.Type, r *attributes.Resolver) error {
	bound := make(map[string]attributes.Field)
	for _, rule := range r.Rules() {
		if t, ok := r.Match(types, rule.Field); ok {
			if _, taken := bound[t.ID]; !taken {
				bound[t.ID] = rule.Field
			}
		}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "UUID\tNAME\tFORMAT\tFIELD")
	for _, t := range types {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.DisplayName, t.Format, bound[t.ID])
	}
	return tw.Flush()
}

func registerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register one patient with the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			in := registration.Input{}
			in.GivenName, _ = flags.GetString("given-name")
			in.FamilyName, _ = flags.GetString("family-name")
			in.DateOfBirth, _ = flags.GetString("birthdate")
			gender, _ := flags.GetString("gender")
			in.Gender = registration.Gender(gender)
			in.ExistingPHN, _ = flags.GetString("phn")
			in.TelephoneResidence, _ = flags.GetString("telephone")
			in.TelephoneMobile, _ = flags.GetString("mobile")
			in.NationalID, _ = flags.GetString("national-id")
			printCard, _ := flags.GetBool("print")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger := newLogger(cfg)

			loc := registration.Location{ID: cfg.DefaultLocationUUID, Name: cfg.DefaultLocationName}
			if id, _ := flags.GetString("location"); id != "" {
				loc = registration.Location{ID: id}
			}

			client := newRegistryClient(cfg)
			svc := registration.NewService(registration.Config{
				PHNIdentifierType: cfg.PHNIdentifierType,
				TimeZone:          cfg.Location(),
				MaxPhotoBytes:     cfg.MaxPhotoBytes,
			}, client, client, nil, logger)

			var dispatcher *card.Dispatcher
			if printCard {
				printer, closePrinter, err := newPrinter(cfg)
				if err != nil {
					return err
				}
				defer closePrinter()
				dispatcher = card.NewDispatcher(card.NewRenderer(), printer, logger, nil)
				svc.SetCardDispatcher(dispatcher)
			}

			types, err := svc.AttributeTypes(cmd.Context())
			if err != nil {
				return err
			}
			out := svc.Register(cmd.Context(), loc, types, in, printCard)
			if dispatcher != nil {
				dispatcher.Wait()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return err
			}
			if !out.OK() {
				return fmt.Errorf("registration failed: %s", out.Message)
			}
			return nil
		},
	}
	cmd.Flags().String("given-name", "", "Given name")
	cmd.Flags().String("family-name", "", "Family name")
	cmd.Flags().String("birthdate", "", "Date of birth (YYYY-MM-DD)")
	cmd.Flags().String("gender", "", "Male, Female or Other")
	cmd.Flags().String("phn", "", "Existing PHN; a new one is allocated when empty")
	cmd.Flags().String("telephone", "", "Residence telephone")
	cmd.Flags().String("mobile", "", "Mobile telephone")
	cmd.Flags().String("national-id", "", "National identity card number")
	cmd.Flags().String("location", "", "Operating location uuid (defaults to DEFAULT_LOCATION_UUID)")
	cmd.Flags().Bool("print", false, "Send the identity card to the configured print sink")
	return cmd
}

func cardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "card",
		Short: "Render a patient identity card",
		RunE: func(cmd *cobra.Command, args []string) error {
			phn, _ := cmd.Flags().GetString("phn")
			name, _ := cmd.Flags().GetString("name")
			photo, _ := cmd.Flags().GetString("photo")
			out, _ := cmd.Flags().GetString("out")

			c := card.Card{PHN: phn, DisplayName: name}
			if photo != "" {
				data, err := os.ReadFile(photo)
				if err != nil {
					return fmt.Errorf("read photo: %w", err)
				}
				c.Photo = data
			}

			a, err := card.NewRenderer().Render(c)
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(a.Body)
				return err
			}
			return os.WriteFile(out, a.Body, 0o644)
		},
	}
	cmd.Flags().String("phn", "", "Patient health number")
	cmd.Flags().String("name", "", "Name printed on the card")
	cmd.Flags().String("photo", "", "Path to a profile image")
	cmd.Flags().String("out", "", "Output file (stdout when empty)")
	cmd.MarkFlagRequired("phn")
	return cmd
}
