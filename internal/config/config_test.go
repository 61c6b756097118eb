package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.True(t, cfg.Server.IsDevelopment())
	assert.Equal(t, TokenStrategyJWT, cfg.Auth.TokenStrategy)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTokenDuration)
	assert.False(t, cfg.Auth.RequireVerifiedEmail)
	assert.Equal(t, HasherBcrypt, cfg.Password.Hasher)
	assert.Equal(t, 12, cfg.Password.BcryptCost)
	assert.Equal(t, 8, cfg.Password.MinLength)
	assert.Equal(t, ScoreModeInline, cfg.Engagement.ScoreMode)
	assert.Equal(t, "localhost:6379", cfg.Redis.Address())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("TOKEN_STRATEGY", "PASETO")
	t.Setenv("PASETO_KEY", testSecret)
	t.Setenv("ACCESS_TOKEN_DURATION", "900")
	t.Setenv("PASSWORD_HASHER", "argon2id")
	t.Setenv("PASSWORD_MIN_LENGTH", "6")
	t.Setenv("PASSWORD_REQUIRE_SPECIAL", "false")
	t.Setenv("SCORE_MODE", "queue")
	t.Setenv("TRUSTED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("DB_CHANNEL_BINDING", "require")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, TokenStrategyPaseto, cfg.Auth.TokenStrategy)
	assert.Equal(t, 15*time.Minute, cfg.Auth.AccessTokenDuration)
	assert.Equal(t, HasherArgon2id, cfg.Password.Hasher)
	assert.Equal(t, 6, cfg.Password.MinLength)
	assert.False(t, cfg.Password.RequireSpecial)
	assert.Equal(t, ScoreModeQueue, cfg.Engagement.ScoreMode)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.TrustedOrigins)
	assert.True(t, strings.HasSuffix(cfg.Database.ConnectionString(), "channel_binding=require"))
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "short jwt secret",
			env:     map[string]string{"JWT_SECRET": "short"},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "paseto key wrong length",
			env:     map[string]string{"TOKEN_STRATEGY": "paseto", "PASETO_KEY": "abc"},
			wantErr: "PASETO_KEY",
		},
		{
			name:    "unknown strategy",
			env:     map[string]string{"TOKEN_STRATEGY": "opaque", "JWT_SECRET": testSecret},
			wantErr: "TOKEN_STRATEGY",
		},
		{
			name:    "bcrypt cost out of range",
			env:     map[string]string{"JWT_SECRET": testSecret, "BCRYPT_COST": "4"},
			wantErr: "BCRYPT_COST",
		},
		{
			name:    "bcrypt max length",
			env:     map[string]string{"JWT_SECRET": testSecret, "PASSWORD_MAX_LENGTH": "100"},
			wantErr: "PASSWORD_MAX_LENGTH",
		},
		{
			name:    "unknown score mode",
			env:     map[string]string{"JWT_SECRET": testSecret, "SCORE_MODE": "cron"},
			wantErr: "SCORE_MODE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEmailConfig_Sender(t *testing.T) {
	c := EmailConfig{SMTPUser: "mailer@example.com"}
	assert.Equal(t, "mailer@example.com", c.Sender())

	c.FromAddress = "EventFlow <no-reply@example.com>"
	assert.Equal(t, "EventFlow <no-reply@example.com>", c.Sender())
}
