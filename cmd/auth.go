package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/soundstats/internal/server"
	"github.com/desertthunder/soundstats/internal/services"
	"github.com/desertthunder/soundstats/internal/shared"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// AuthLogin performs the OAuth2 authorization-code flow for Spotify.
//
// Starts a local HTTP server, opens the browser for user authorization,
// exchanges the auth code for tokens, and saves them back to the config file.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")
	if err := r.applyConfigFlag(cmd); err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Validate(); err != nil {
		return err
	}

	if r.spotify == nil {
		svc, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map())
		if err != nil {
			return fmt.Errorf("failed to create Spotify service: %w", err)
		}
		r.spotify = svc
	}

	oauthSvc, ok := r.spotify.(services.OAuthService)
	if !ok {
		return fmt.Errorf("%w: service does not support OAuth", shared.ErrInvalidArgument)
	}

	token, err := r.doOAuth(oauthSvc)
	if err != nil {
		return err
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if err := shared.SaveConfig(configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", configPath)
	r.writePlain("You can now use: soundstats ingest top\n")

	return nil
}

// AuthStatus reports whether a token is cached and whether it has expired.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	if err := r.applyConfigFlag(cmd); err != nil {
		return err
	}

	token := r.config.Credentials.Spotify.Token()
	if token == nil {
		r.writePlain("Not authenticated. Run: soundstats auth login\n")
		return nil
	}

	r.writePlain("Token cached.\n")
	if token.RefreshToken != "" {
		r.writePlain("  Refresh token: present\n")
	}
	if !token.Expiry.IsZero() {
		if token.Expiry.Before(time.Now()) {
			r.writePlain("  Access token expired at %s (will refresh on use)\n", token.Expiry.Format(time.RFC3339))
		} else {
			r.writePlain("  Access token valid until %s\n", token.Expiry.Format(time.RFC3339))
		}
	}

	return nil
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(oauthSrv services.OAuthService) (*oauth2.Token, error) {
	state, err := shared.GenerateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state token: %w", err)
	}

	authURL := oauthSrv.GetAuthURL(state)
	oauthHandler := server.NewOAuthHandler(oauthSrv.GetOAuthConfig(), state)
	router := server.NewBasicRouter()
	router.Use(server.LoggingMiddleware(r.logger))
	router.Handler(oauthHandler)

	serverAddr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
		// Got result from callback
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("no token received")
	}

	return result.Token, nil
}
