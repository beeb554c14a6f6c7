// Package main provides the bankeu administration CLI.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bankeu-api/config"
	"bankeu-api/middleware"
	"bankeu-api/models"
	"bankeu-api/services"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "bankeuctl",
		Short: "Administer the bankeu verification workflow",
		Long: `Administrative commands for the bankeu verification workflow.

Examples:
  bankeuctl migrate
  bankeuctl assign --authority dinas:4 --verifier 12 --desa 101,102
  bankeuctl coverage --authority kecamatan:7 --year 2026
  bankeuctl tracking --year 2026
`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := godotenv.Load(envFile); err != nil && cmd.Flags().Changed("env") {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			settings, err := config.LoadWorkflowSettings(os.Getenv("BANKEU_CONFIG"))
			if err != nil {
				return err
			}
			config.Workflow = settings
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&envFile, "env", ".env", "Env file to load")

	cmd.AddCommand(migrateCmd(), assignCmd(true), assignCmd(false), coverageCmd(), trackingCmd(), tokenCmd())
	return cmd
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the workflow tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			config.InitDB()
			if err := config.DB.AutoMigrate(models.AllModels()...); err != nil {
				return fmt.Errorf("auto-migrate: %w", err)
			}
			fmt.Println("Migration completed")
			return nil
		},
	}
}

// parseAuthority reads "type:id"; dpmd may omit the id.
func parseAuthority(raw string) (services.AuthorityRef, error) {
	kind, idPart, _ := strings.Cut(raw, ":")
	t := models.AuthorityType(strings.ToLower(strings.TrimSpace(kind)))
	if !t.Valid() {
		return services.AuthorityRef{}, fmt.Errorf("unknown authority %q", kind)
	}
	if t == models.AuthorityDPMD && idPart == "" {
		return services.AuthorityRef{Type: t, ID: models.DPMDAuthorityID}, nil
	}
	id, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || id == 0 {
		return services.AuthorityRef{}, fmt.Errorf("invalid authority id %q", idPart)
	}
	return services.AuthorityRef{Type: t, ID: uint(id)}, nil
}

// operator is the actor the CLI acts as.
func operator(userID uint) services.Actor {
	return services.Actor{UserID: userID, Role: services.RoleSuperAdmin}
}

func assignCmd(assign bool) *cobra.Command {
	var (
		authority  string
		verifierID uint
		desaIDs    []uint
		userID     uint
	)

	use, short := "assign", "Assign villages to a verifier"
	if !assign {
		use, short = "unassign", "Remove villages from a verifier"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseAuthority(authority)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			config.InitDB()
			svc := services.NewAssignmentService(config.DB)
			if !assign {
				removed, err := svc.Unassign(ctx, operator(userID), ref, verifierID, desaIDs)
				if err != nil {
					return err
				}
				fmt.Printf("Removed %d assignment(s)\n", removed)
				return nil
			}

			result, err := svc.Assign(ctx, operator(userID), ref, verifierID, desaIDs)
			if err != nil {
				var werr *services.Error
				if errors.As(err, &werr) {
					for _, c := range werr.Conflicts {
						fmt.Fprintf(os.Stderr, "  desa %d (%s) is held by verifier %d (%s)\n", c.DesaID, c.DesaNama, c.VerifierID, c.VerifierNama)
					}
				}
				return err
			}
			fmt.Printf("Assigned %d village(s), %d already held\n", len(result.Assigned), len(result.AlreadyHeld))
			return nil
		},
	}

	cmd.Flags().StringVar(&authority, "authority", "", "Authority as type:id (dinas:4, kecamatan:7, dpmd)")
	cmd.Flags().UintVar(&verifierID, "verifier", 0, "Verifier id")
	cmd.Flags().UintSliceVar(&desaIDs, "desa", nil, "Comma separated village ids")
	cmd.Flags().UintVar(&userID, "as-user", 1, "User id recorded as the operator")
	_ = cmd.MarkFlagRequired("authority")
	_ = cmd.MarkFlagRequired("verifier")
	_ = cmd.MarkFlagRequired("desa")
	return cmd
}

func coverageCmd() *cobra.Command {
	var (
		authority string
		year      int
	)
	cmd := &cobra.Command{
		Use:   "coverage",
		Short: "Print per-verifier workload of an authority",
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := parseAuthority(authority)
			if err != nil {
				return err
			}
			ctx, stop := signalContext()
			defer stop()

			config.InitDB()
			report, err := services.NewAssignmentService(config.DB).CoverageStats(ctx, operator(0), ref, year)
			if err != nil {
				return err
			}
			return printJSON(report)
		},
	}
	cmd.Flags().StringVar(&authority, "authority", "", "Authority as type:id")
	cmd.Flags().IntVar(&year, "year", 0, "Budget year (default: configured year)")
	_ = cmd.MarkFlagRequired("authority")
	return cmd
}

func trackingCmd() *cobra.Command {
	var (
		year       int
		invalidate bool
	)
	cmd := &cobra.Command{
		Use:   "tracking",
		Short: "Print or invalidate the public tracking summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signalContext()
			defer stop()

			config.InitDB()
			config.InitRedis()
			svc := services.NewTrackingService(config.DB, nil, config.Redis, config.Workflow)
			if invalidate {
				y := config.Workflow.YearOrDefault(year)
				if err := svc.Invalidate(ctx, y); err != nil {
					return err
				}
				fmt.Printf("Tracking cache for %d invalidated\n", y)
				return nil
			}
			summary, err := svc.Summary(ctx, year)
			if err != nil {
				return err
			}
			return printJSON(summary)
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Budget year (default: configured year)")
	cmd.Flags().BoolVar(&invalidate, "invalidate", false, "Drop the cached summary instead of printing it")
	return cmd
}

// tokenCmd issues a development token; JWT_SECRET must be set.
func tokenCmd() *cobra.Command {
	var (
		claims middleware.Claims
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign an access token for local testing",
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("JWT_SECRET is not set")
			}
			now := time.Now()
			claims.IssuedAt = jwt.NewNumericDate(now)
			claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
			token, err := middleware.SignToken(claims, []byte(secret))
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().UintVar(&claims.UserID, "user", 0, "User id")
	cmd.Flags().StringVar(&claims.Role, "role", "", "Role (desa, dinas, verifikator_dinas, kecamatan, ...)")
	cmd.Flags().UintVar(&claims.DesaID, "desa", 0, "Village id")
	cmd.Flags().UintVar(&claims.DinasID, "dinas", 0, "Dinas id")
	cmd.Flags().UintVar(&claims.KecamatanID, "kecamatan", 0, "Kecamatan id")
	cmd.Flags().UintVar(&claims.VerifierID, "verifier", 0, "Verifier id")
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
