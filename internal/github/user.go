package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"sort"
)

type Owner struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
}

// Repo is the subset of a repository object the dashboard shows.
type Repo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	Description     string `json:"description"`
	Private         bool   `json:"private"`
	HTMLURL         string `json:"html_url"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	UpdatedAt       string `json:"updated_at"`
	Owner           Owner  `json:"owner"`
}

type User struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// ListRepos lists the signed-in user's repositories, most recently updated
// first. It needs a token in ctx.
func (c *Client) ListRepos(ctx context.Context) ([]Repo, error) {
	if TokenFrom(ctx) == "" {
		return nil, ErrUnauthorized
	}
	q := url.Values{"sort": {"updated"}, "per_page": {"100"}}
	var repos []Repo
	if err := c.get(ctx, "/user/repos", q, &repos); err != nil {
		return nil, err
	}
	return repos, nil
}

func (c *Client) User(ctx context.Context) (*User, error) {
	if TokenFrom(ctx) == "" {
		return nil, ErrUnauthorized
	}
	var u User
	if err := c.get(ctx, "/user", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

var languageColors = map[string]string{
	"JavaScript": "#f1e05a",
	"TypeScript": "#3178c6",
	"Python":     "#3572A5",
	"Java":       "#b07219",
	"Ruby":       "#701516",
	"Go":         "#00ADD8",
	"Rust":       "#dea584",
	"HTML":       "#e34c26",
	"CSS":        "#563d7c",
	"Shell":      "#89e051",
	"Vue":        "#41b883",
	"PHP":        "#4F5D95",
	"C":          "#555555",
	"C++":        "#f34b7d",
	"C#":         "#178600",
}

const defaultLanguageColor = "#858585"

func LanguageColor(name string) string {
	if c, ok := languageColors[name]; ok {
		return c
	}
	return defaultLanguageColor
}

// LanguageShare is one language's share of the repository's bytes.
type LanguageShare struct {
	Name       string  `json:"name"`
	Percentage float64 `json:"percentage"`
	Bytes      int64   `json:"bytes"`
	Color      string  `json:"color"`
}

// Languages returns the language breakdown, largest first, with
// percentages rounded to one decimal.
func (c *Client) Languages(ctx context.Context, owner, repo string) ([]LanguageShare, error) {
	if err := ValidateRepo(owner, repo); err != nil {
		return nil, err
	}
	var raw map[string]int64
	if err := c.get(ctx, repoPath(owner, repo)+"/languages", nil, &raw); err != nil {
		return nil, err
	}
	return Shares(raw), nil
}

// Shares converts byte counts into sorted LanguageShares.
func Shares(bytesByLang map[string]int64) []LanguageShare {
	var total int64
	for _, b := range bytesByLang {
		total += b
	}
	out := make([]LanguageShare, 0, len(bytesByLang))
	if total <= 0 {
		return out
	}
	for name, b := range bytesByLang {
		out = append(out, LanguageShare{
			Name:       name,
			Percentage: math.Round(float64(b)*1000/float64(total)) / 10,
			Bytes:      b,
			Color:      LanguageColor(name),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Bytes != out[j].Bytes {
			return out[i].Bytes > out[j].Bytes
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// OAuthError is an error reported by GitHub during the code exchange.
type OAuthError struct {
	Code        string
	Description string
}

func (e *OAuthError) Error() string {
	return "github oauth: " + e.Description
}

var ErrNoAccessToken = errors.New("github oauth: no access token in response")

// AuthorizeURL is where a user is sent to grant the app access.
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{"client_id": {c.clientID}, "scope": {"repo"}}
	if c.redirectURL != "" {
		q.Set("redirect_uri", c.redirectURL)
	}
	if state != "" {
		q.Set("state", state)
	}
	return c.oauth + "/login/oauth/authorize?" + q.Encode()
}

// ExchangeCode trades an OAuth callback code for a user access token.
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"client_id":     c.clientID,
		"client_secret": c.clientSecret,
		"code":          code,
		"redirect_uri":  c.redirectURL,
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.oauth+"/login/oauth/access_token", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("github oauth: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Path: "/login/oauth/access_token", Code: resp.StatusCode, Status: resp.Status}
	}

	var out struct {
		AccessToken      string `json:"access_token"`
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("github oauth: decode: %w", err)
	}
	if out.ErrorDescription != "" || out.Error != "" {
		return "", &OAuthError{Code: out.Error, Description: out.ErrorDescription}
	}
	if out.AccessToken == "" {
		return "", ErrNoAccessToken
	}
	return out.AccessToken, nil
}
