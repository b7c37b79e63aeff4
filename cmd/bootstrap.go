package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opentrusty/opentrusty/internal/apperr"
	"github.com/opentrusty/opentrusty/internal/auth"
	"github.com/opentrusty/opentrusty/internal/cache"
	"github.com/opentrusty/opentrusty/internal/db/bunx"
	"github.com/opentrusty/opentrusty/internal/db/models"
	"github.com/opentrusty/opentrusty/internal/permissions"
	"github.com/opentrusty/opentrusty/internal/repository"
	"github.com/opentrusty/opentrusty/internal/services/iam"
	oauth2svc "github.com/opentrusty/opentrusty/internal/services/oauth2"
)

var (
	bootstrapUsername     string
	bootstrapEmail        string
	bootstrapPassword     string
	bootstrapStdin        bool
	bootstrapClientID     string
	bootstrapClientName   string
	bootstrapRedirectURIs []string
)

// bootstrapCmd seeds the first platform administrator and, when client
// flags are given, a first-party confidential OAuth client for the
// console.
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "Create the initial platform administrator",
	Long: `Creates the first user and grants the PlatformAdmin role at the
platform root. Every later user and grant can be managed through the
API; this command only exists to break the bootstrapping circle.

With --client-id the command also registers a confidential OAuth client
and prints its generated secret once.

Example:
  trustyd bootstrap \
    --username admin --email admin@example.com --stdin \
    --client-id web-console --redirect-uri https://console.example.com/callback
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if bootstrapUsername == "" || bootstrapEmail == "" {
			return fmt.Errorf("--username and --email are required")
		}

		password := bootstrapPassword
		if bootstrapStdin {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
		}
		if password == "" {
			return fmt.Errorf("password is required (use --password or --stdin)")
		}

		db, err := bunx.NewDB(cfg.DatabaseURL, cfg.MaxDBConnections)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer bunx.Close(db)

		revocations, err := cache.NewRevocationSet("")
		if err != nil {
			return err
		}
		defer revocations.Close()

		ctx := context.Background()
		store := repository.NewStore(db)
		iamService := iam.NewService(store, nil, revocations, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

		user, err := iamService.Register(ctx, iam.RegisterInput{
			Username: bootstrapUsername,
			Email:    bootstrapEmail,
			Password: password,
		})
		switch {
		case err == nil:
			fmt.Printf("Created user %s (%s)\n", user.Username, user.ID)
		case apperr.IsKind(err, apperr.KindConflict):
			user, err = store.Users.GetByUsername(ctx, bootstrapUsername)
			if err != nil {
				return fmt.Errorf("user exists but lookup failed: %w", err)
			}
			fmt.Printf("User %s already exists, reusing\n", user.Username)
		default:
			return err
		}

		role, err := store.Roles.GetByName(ctx, permissions.RolePlatformAdmin)
		if err != nil {
			return fmt.Errorf("seed roles missing, run 'trustyd db migrate' first: %w", err)
		}
		err = store.RoleAssignments.Create(ctx, &models.RoleAssignment{
			ID:         bunx.NewUUIDv7(),
			TargetID:   user.ID,
			RoleID:     role.ID,
			ResourceID: models.PlatformResourceID,
			AssignedAt: time.Now(),
			AssignedBy: user.ID,
		})
		switch {
		case err == nil:
			fmt.Printf("Granted %s at the platform root\n", role.Name)
		case apperr.IsKind(err, apperr.KindConflict):
			fmt.Printf("%s is already granted\n", role.Name)
		default:
			return err
		}

		if bootstrapClientID != "" {
			if err := bootstrapClient(ctx, store); err != nil {
				return err
			}
		}

		fmt.Println("Bootstrap complete")
		return nil
	},
}

// bootstrapClient registers the first-party console client with a
// generated secret.
func bootstrapClient(ctx context.Context, store *repository.Store) error {
	if len(bootstrapRedirectURIs) == 0 {
		return fmt.Errorf("--redirect-uri is required with --client-id")
	}
	if _, err := store.Clients.GetByClientID(ctx, bootstrapClientID); err == nil {
		fmt.Printf("Client %s already exists, skipping\n", bootstrapClientID)
		return nil
	} else if !apperr.IsKind(err, apperr.KindNotFound) {
		return err
	}

	secret, err := auth.GenerateOpaqueToken()
	if err != nil {
		return fmt.Errorf("failed to generate client secret: %w", err)
	}
	name := bootstrapClientName
	if name == "" {
		name = bootstrapClientID
	}
	client := &models.OAuthClient{
		ID:                bunx.NewUUIDv7(),
		ClientID:          bootstrapClientID,
		ClientSecret:      &secret,
		ClientType:        models.ClientTypeConfidential,
		Name:              name,
		RedirectURIs:      models.StringSlice(bootstrapRedirectURIs),
		AllowedScopes:     models.StringSlice{"openid", "profile", "email", "offline_access"},
		AllowedGrantTypes: models.StringSlice{oauth2svc.GrantTypeAuthorizationCode, oauth2svc.GrantTypeRefreshToken},
	}
	if err := store.Clients.Create(ctx, client); err != nil {
		return err
	}

	fmt.Printf("Created client %s\n", client.ClientID)
	fmt.Printf("Client secret (shown once): %s\n", secret)
	return nil
}

func init() {
	bootstrapCmd.Flags().StringVar(&bootstrapUsername, "username", "", "Administrator username")
	bootstrapCmd.Flags().StringVar(&bootstrapEmail, "email", "", "Administrator email")
	bootstrapCmd.Flags().StringVar(&bootstrapPassword, "password", "", "Administrator password")
	bootstrapCmd.Flags().BoolVar(&bootstrapStdin, "stdin", false, "Read the password from stdin")
	bootstrapCmd.Flags().StringVar(&bootstrapClientID, "client-id", "", "First-party OAuth client id to register")
	bootstrapCmd.Flags().StringVar(&bootstrapClientName, "client-name", "", "Display name for the OAuth client")
	bootstrapCmd.Flags().StringSliceVar(&bootstrapRedirectURIs, "redirect-uri", nil, "Redirect URI for the OAuth client (repeatable)")
	_ = bootstrapCmd.MarkFlagRequired("username")
	_ = bootstrapCmd.MarkFlagRequired("email")
	rootCmd.AddCommand(bootstrapCmd)
}
