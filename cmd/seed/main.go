// Package main seeds a running OakMirror API with demo accounts and posts.
// Everything goes through the public HTTP API, so the server's validation
// and role rules apply to seeded data too.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	pkgconfig "github.com/Shahil0511/OakMirror/pkg/config"
	apperrors "github.com/Shahil0511/OakMirror/pkg/errors"
	"github.com/Shahil0511/OakMirror/pkg/httpclient"
	"github.com/Shahil0511/OakMirror/pkg/logger"
)

type seedConfig struct {
	BaseURL  string        `env:"OAKMIRROR_URL" envDefault:"http://localhost:4000"`
	Password string        `env:"SEED_PASSWORD" envDefault:"oakmirror-demo-1"`
	Domain   string        `env:"SEED_EMAIL_DOMAIN" envDefault:"oakmirror.local"`
	Timeout  time.Duration `env:"SEED_TIMEOUT" envDefault:"2m"`
	LogLevel string        `env:"LOG_LEVEL" envDefault:"info"`
}

type accountDef struct {
	first, last, role string
}

type postDef struct {
	author   string
	title    string
	content  string
	postType string
	company  string
	jobTitle string
	tags     []string
}

var accounts = []accountDef{
	{"Ada", "Admin", "admin"},
	{"Eddie", "Editor", "editor"},
	{"Uma", "User", "user"},
}

var posts = []postDef{
	{"editor", "Interview loop at a payments startup", "Four rounds: system design, two coding, one values chat. Recruiters replied within a week.", "review", "Northwind Pay", "Backend Engineer", []string{"interview", "fintech"}},
	{"editor", "Remote policy changes this quarter", "Leadership announced two office days a week starting next month.", "news", "Contoso", "", []string{"remote", "policy"}},
	{"user", "How do you negotiate a counter offer?", "Got an offer 10% under my current salary. Is it worth pushing back?", "question", "", "Data Analyst", []string{"salary", "negotiation"}},
	{"user", "Team culture after the reorg", "Managers changed twice in six months but the on-call rotation finally got fair.", "review", "Fabrikam", "SRE", []string{"culture"}},
	{"admin", "Welcome to OakMirror", "Share honest workplace experiences. Keep it respectful and anonymous where needed.", "general", "", "", []string{"announcement"}},
}

type authResult struct {
	User struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	} `json:"user"`
	Tokens struct {
		Access  string `json:"access"`
		Refresh string `json:"refresh"`
	} `json:"tokens"`
}

type seeder struct {
	cfg    seedConfig
	client *httpclient.Client
	logger *slog.Logger
}

func main() {
	var cfg seedConfig
	if err := pkgconfig.Load(&cfg); err != nil {
		fmt.Fprintf(os.Stderr, "load seed config: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithWriter("oakmirror-seed", cfg.LogLevel, "text", os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	s := &seeder{
		cfg:    cfg,
		client: httpclient.New(httpclient.DefaultConfig()),
		logger: log,
	}
	if err := s.run(ctx); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info("seed complete")
}

func (s *seeder) run(ctx context.Context) error {
	if err := s.client.DoJSON(ctx, http.MethodGet, s.url("/health/ready"), "", nil, nil); err != nil {
		return fmt.Errorf("server not ready at %s: %w", s.cfg.BaseURL, err)
	}

	tokens := make(map[string]string, len(accounts))
	for _, a := range accounts {
		res, err := s.ensureAccount(ctx, a)
		if err != nil {
			return err
		}
		tokens[a.role] = res.Tokens.Access
		s.logger.Info("account ready",
			slog.String("email", res.User.Email),
			slog.String("role", res.User.Role),
			slog.String("id", res.User.ID),
		)
	}

	created := 0
	for _, p := range posts {
		var out struct {
			ID string `json:"id"`
		}
		body := map[string]any{
			"title":    p.title,
			"content":  p.content,
			"postType": p.postType,
			"company":  p.company,
			"jobTitle": p.jobTitle,
			"tags":     p.tags,
		}
		if err := s.client.DoJSON(ctx, http.MethodPost, s.url("/api/posts"), tokens[p.author], body, &out); err != nil {
			s.logger.Warn("create post failed", slog.String("title", p.title), slog.String("error", err.Error()))
			continue
		}
		created++
		s.logger.Debug("post created", slog.String("id", out.ID), slog.String("title", p.title))
	}
	s.logger.Info("posts seeded", slog.Int("created", created), slog.Int("total", len(posts)))
	return nil
}

// ensureAccount registers a, or logs in when the email is already taken so
// the seed can run repeatedly.
func (s *seeder) ensureAccount(ctx context.Context, a accountDef) (*authResult, error) {
	email := fmt.Sprintf("%s@%s", strings.ToLower(a.first), s.cfg.Domain)

	var res authResult
	err := s.client.DoJSON(ctx, http.MethodPost, s.url("/api/auth/register"), "", map[string]string{
		"email":     email,
		"password":  s.cfg.Password,
		"firstName": a.first,
		"lastName":  a.last,
		"role":      a.role,
	}, &res)
	if err == nil {
		return &res, nil
	}
	if !errors.Is(err, apperrors.ErrAlreadyExists) {
		return nil, fmt.Errorf("register %s: %w", email, err)
	}

	err = s.client.DoJSON(ctx, http.MethodPost, s.url("/api/auth/login"), "", map[string]string{
		"email":    email,
		"password": s.cfg.Password,
	}, &res)
	if err != nil {
		return nil, fmt.Errorf("login %s: %w", email, err)
	}
	return &res, nil
}

func (s *seeder) url(path string) string {
	return strings.TrimRight(s.cfg.BaseURL, "/") + path
}
