package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SupabaseProvider asks the Supabase auth API who owns a token.
type SupabaseProvider struct {
	baseURL string
	anonKey string
	http    *http.Client
}

func NewSupabaseProvider(baseURL, anonKey string) *SupabaseProvider {
	return &SupabaseProvider{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		anonKey: anonKey,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

func (p *SupabaseProvider) GetUser(ctx context.Context, token string) (User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/auth/v1/user", nil)
	if err != nil {
		return User{}, err
	}
	req.Header.Set("apikey", p.anonKey)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := p.http.Do(req)
	if err != nil {
		return User{}, fmt.Errorf("identity: supabase request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return User{}, ErrInvalidToken
	case resp.StatusCode != http.StatusOK:
		return User{}, fmt.Errorf("identity: supabase get user: %s", resp.Status)
	}

	var body struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return User{}, fmt.Errorf("identity: decode supabase user: %w", err)
	}
	if body.ID == "" {
		return User{}, ErrInvalidToken
	}
	return User{ID: body.ID, Email: body.Email}, nil
}
