package credentials

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/term"
)

// tasksScope is the OAuth scope for Google Tasks.
const tasksScope = "https://www.googleapis.com/auth/tasks"

// googleEndpoint is Google's OAuth2 endpoint, declared locally so the
// dependency stays on the oauth2 core package.
var googleEndpoint = oauth2.Endpoint{
	AuthURL:  "https://accounts.google.com/o/oauth2/auth",
	TokenURL: "https://oauth2.googleapis.com/token",
}

// WithEndpoint overrides the OAuth2 endpoint (for testing).
func WithEndpoint(ep oauth2.Endpoint) ManagerOption {
	return func(m *Manager) { m.endpoint = &ep }
}

// Login runs the manual OAuth2 authorization-code flow: it prints the
// consent URL, reads the code the user pastes back, exchanges it for
// a token pair and stores the pair in the keyring.
func (m *Manager) Login(ctx context.Context, clientID, clientSecret string, in io.Reader, out io.Writer) error {
	endpoint := googleEndpoint
	if m.endpoint != nil {
		endpoint = *m.endpoint
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     endpoint,
		RedirectURL:  "urn:ietf:wg:oauth:2.0:oob",
		Scopes:       []string{tasksScope},
	}

	url := conf.AuthCodeURL("state", oauth2.AccessTypeOffline)
	fmt.Fprintf(out, "Open this URL in your browser and approve access:\n\n  %s\n\nAuthorization code: ", url)

	code, err := readLine(in)
	if err != nil {
		return fmt.Errorf("failed to read authorization code: %w", err)
	}

	tok, err := conf.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("token exchange failed: %w", err)
	}

	return m.Store(&Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
	})
}

// PromptSecret reads a secret from the terminal without echo, falling
// back to a plain line read when stdin is not a terminal.
func PromptSecret(prompt string, in io.Reader, out io.Writer) (string, error) {
	fmt.Fprint(out, prompt)

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	return readLine(in)
}

func readLine(in io.Reader) (string, error) {
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
