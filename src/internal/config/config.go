package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"

	"github.com/honestbee/github-report-bot/src/internal/model"
)

type Config struct {
	SlackBotToken     string `env:"SLACK_BOT_TOKEN,required"`
	GithubAccessToken string `env:"GITHUB_ACCESS_TOKEN,required"`
	RepoOwner         string `env:"REPO_OWNER,required"`
	TargetChannel     string `env:"GITHUB_REPORT_TARGET_CHANNEL,required"`
	TeamsFile         string `env:"TEAMS_FILE" envDefault:"./teams.yaml"`
	ShowAllUsers      bool   `env:"SHOW_ALL_USERS" envDefault:"false"`
	ReportCron        string `env:"REPORT_CRON" envDefault:"00 30 9 * * 2-6"`
	EventPages        int    `env:"EVENT_PAGES" envDefault:"5"`
	HTTPAddr          string `env:"HTTP_ADDR" envDefault:":8080"`
	GithubAPIURL      string `env:"GITHUB_API_URL" envDefault:"https://api.github.com"`
}

func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.EventPages <= 0 {
		return Config{}, errors.New("EVENT_PAGES must be positive")
	}
	return cfg, nil
}

// LoadTeams reads the team roster file. Member order in the file is the
// order members appear in rendered reports.
func LoadTeams(path string) ([]model.Team, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read teams file: %w", err)
	}
	var doc struct {
		Teams []model.Team `yaml:"teams"`
	}
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, fmt.Errorf("parse teams file: %w", err)
	}
	if len(doc.Teams) == 0 {
		return nil, errors.New("teams file contains no teams")
	}
	for _, t := range doc.Teams {
		if t.Name == "" || t.Repo == "" {
			return nil, fmt.Errorf("team %q: name and repo are required", t.Name)
		}
		if len(t.Members) == 0 {
			return nil, fmt.Errorf("team %q: at least one member is required", t.Name)
		}
		for _, m := range t.Members {
			if m.Login == "" || m.DisplayName == "" {
				return nil, fmt.Errorf("team %q: all members need login and display_name", t.Name)
			}
		}
	}
	return doc.Teams, nil
}
