package seed

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/vgcarvalho/techstore-backend/internal/config"
	"github.com/vgcarvalho/techstore-backend/internal/database"
	"github.com/vgcarvalho/techstore-backend/internal/tools/common"
)

type options struct {
	envFile             string
	bootstrapAdminEmail string
	ci                  bool
}

func NewRootCommand() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{Use: "seed", Short: "Catalog seed tooling"}
	cmd.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "path to env file")
	cmd.PersistentFlags().StringVar(&opts.bootstrapAdminEmail, "bootstrap-admin-email", "", "override bootstrap admin email")
	cmd.PersistentFlags().BoolVar(&opts.ci, "ci", false, "non-interactive machine-readable output")
	cmd.AddCommand(newApplyCommand(opts), newDryRunCommand(opts), newVerifyEmailCommand(opts))
	return cmd
}

func newApplyCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply",
		Short: "Apply the default catalog seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := func() ([]string, error) {
				cfg, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				if err := database.Migrate(db); err != nil {
					return nil, err
				}
				email := cfg.BootstrapAdminEmail
				if opts.bootstrapAdminEmail != "" {
					email = opts.bootstrapAdminEmail
				}
				report, err := database.SeedCatalog(db, email)
				if err != nil {
					return nil, err
				}
				details := []string{fmt.Sprintf("created %d catalog products", report.CreatedProducts)}
				if email != "" {
					details = append(details, fmt.Sprintf("admin promotion for %s: %t", email, report.AdminPromoted))
				}
				if report.Noop {
					details = append(details, "nothing to do, catalog already seeded")
				}
				return details, nil
			}()
			report(opts, "seed apply", details, err)
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func newDryRunCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "dry-run",
		Short: "Show what seeding would do",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := func() ([]string, error) {
				cfg, _, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				email := cfg.BootstrapAdminEmail
				if opts.bootstrapAdminEmail != "" {
					email = opts.bootstrapAdminEmail
				}
				details := []string{
					"would ensure default catalog products (processadores, placas de video, memorias, armazenamento)",
				}
				if email != "" {
					details = append(details, "would promote account to admin if present: "+email)
				}
				return details, nil
			}()
			report(opts, "seed dry-run", details, err)
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
}

func newVerifyEmailCommand(opts *options) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "verify-email",
		Short: "Mark an account email as verified",
		RunE: func(cmd *cobra.Command, args []string) error {
			details, err := func() ([]string, error) {
				if strings.TrimSpace(email) == "" {
					return nil, fmt.Errorf("email is required")
				}
				_, db, err := loadConfigDB(opts.envFile)
				if err != nil {
					return nil, err
				}
				if err := database.VerifyEmail(db, email); err != nil {
					return nil, err
				}
				return []string{"marked email verified: " + strings.TrimSpace(strings.ToLower(email))}, nil
			}()
			report(opts, "seed verify-email", details, err)
			if err != nil {
				os.Exit(3)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email to mark verified")
	return cmd
}

func report(opts *options, title string, details []string, err error) {
	if opts.ci {
		common.PrintCIResult(err == nil, title, details, err)
		return
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s failed: %v\n", title, err)
		return
	}
	fmt.Println(title + ":")
	for _, d := range details {
		fmt.Println("  - " + d)
	}
}

func loadConfigDB(envFile string) (*config.Config, *gorm.DB, error) {
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Open(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
