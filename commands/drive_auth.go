package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	neturl "net/url"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/iziiz/EGL314-photobooth/boothconfig"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
)

// --- OAuth2 & Client Setup ---

const tokenFileName = "google_drive_token.json"

// GetAuthenticatedDriveHTTPClient creates an authenticated HTTP client using
// OAuth2 credentials. It handles token loading, refreshing, and saving.
// Takes configDir to locate the token file.
// The client's base transport retries transient failures with exponential
// backoff, so individual Drive calls need no retry loop of their own.
func GetAuthenticatedDriveHTTPClient(ctx context.Context, config boothconfig.BoothConfig, configDir string) (*http.Client, error) {
	if config.GoogleDrive.ClientId == "" || config.GoogleDrive.ClientSecret == "" {
		return nil, fmt.Errorf("google Drive ClientId or ClientSecret not configured")
	}

	redirectURI := config.GoogleDrive.RedirectURI
	if redirectURI == "" {
		redirectURI = "http://localhost:8080/"
		logger.Warn("google_drive.redirect_uri not set in config, using default",
			"redirect_uri", redirectURI)
	}

	conf := &oauth2.Config{
		ClientID:     config.GoogleDrive.ClientId,
		ClientSecret: config.GoogleDrive.ClientSecret,
		RedirectURL:  redirectURI,
		Scopes:       []string{drive.DriveFileScope},
		Endpoint:     google.Endpoint,
	}

	tokenFilePath, err := getTokenFilePath(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to get token file path: %w", err)
	}

	token, err := loadToken(tokenFilePath)
	if err != nil {
		return nil, err
	}

	// The underlying transport the oauth2 client wraps. Retries 429s and 5xx
	// responses with backoff.
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 4
	retryClient.Logger = nil
	ctx = context.WithValue(ctx, oauth2.HTTPClient, retryClient.StandardClient())

	if token == nil || (!token.Valid() && token.RefreshToken == "") {
		logger.Info("OAuth token is invalid or missing, starting auth flow")
		token, err = getTokenFromWeb(ctx, conf)
		if err != nil {
			return nil, err
		}
	} else if !token.Valid() {
		// Expired but refreshable: refresh now so the fresh token can be
		// persisted for the next process start.
		token, err = conf.TokenSource(ctx, token).Token()
		if err != nil {
			return nil, fmt.Errorf("failed to refresh token: %w", err)
		}
		logger.Debug("refreshed expired OAuth token")
	}

	if err := saveToken(tokenFilePath, token); err != nil {
		// Log but continue, the token is still usable in memory.
		logger.Warn("failed to save token", "path", tokenFilePath, "error", err)
	}

	return conf.Client(ctx, token), nil
}

// getTokenFilePath constructs the path to the token file based on the config directory.
func getTokenFilePath(configDir string) (string, error) {
	if configDir == "." || configDir == "" {
		return "", fmt.Errorf("config directory path is empty or invalid")
	}
	return filepath.Join(configDir, tokenFileName), nil
}

// loadToken reads a previously saved OAuth2 token. Returns (nil, nil) if the
// token file does not exist. The file round-trips through oauth2.Token JSON
// unchanged.
func loadToken(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open token file %s: %w", path, err)
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		logger.Warn("failed to decode token file, requesting new token",
			"path", path, "error", err)
		return nil, nil
	}
	return token, nil
}

// saveToken saves the OAuth2 token to the specified file path.
func saveToken(path string, token *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("unable to cache oauth token: %w", err)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(token)
}

// getTokenFromWeb guides the operator through the web-based OAuth2 flow. A
// temporary local listener captures the authorization code from the redirect,
// so the operator only has to approve access in the browser.
func getTokenFromWeb(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	authURL := conf.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Go to the following link in your browser and approve access:\n%v\n", authURL)

	code, err := waitForAuthCode(ctx, conf.RedirectURL)
	if err != nil {
		// Fall back to manual paste, e.g. when the redirect port is taken.
		logger.Warn("local redirect listener failed, falling back to manual code entry", "error", err)
		fmt.Print("Enter the authorization code: ")
		if _, err := fmt.Scan(&code); err != nil {
			return nil, fmt.Errorf("unable to read authorization code: %w", err)
		}
	}

	tok, err := conf.Exchange(ctx, code, oauth2.AccessTypeOffline)
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve token from web: %w", err)
	}
	return tok, nil
}

// waitForAuthCode runs a one-shot HTTP listener on the redirect URI's port
// and blocks until the OAuth redirect delivers the authorization code.
func waitForAuthCode(ctx context.Context, redirectURL string) (string, error) {
	u, err := neturl.Parse(redirectURL)
	if err != nil {
		return "", fmt.Errorf("invalid redirect URI %q: %w", redirectURL, err)
	}

	listener, err := net.Listen("tcp", u.Host)
	if err != nil {
		return "", fmt.Errorf("unable to listen on %s: %w", u.Host, err)
	}
	defer listener.Close()

	codeCh := make(chan string, 1)
	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.FormValue("code")
			if code == "" {
				http.Error(w, "missing code parameter", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, "Success! You can safely close this tab.")
			select {
			case codeCh <- code:
			default:
			}
		}),
	}
	go srv.Serve(listener)
	defer srv.Close()

	select {
	case code := <-codeCh:
		return code, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}
