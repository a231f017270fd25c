package internal_test

import (
	"context"
	"os"
	"time"

	"github.com/frahmantamala/expense-approval/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var cfg *internal.Config

	BeforeEach(func() {
		cfg = &internal.Config{
			Env: "test",
			Server: internal.ServerConfig{
				Port:              8080,
				AllowedOrigins:    "*,http://localhost:3000",
				ReadHeaderTimeout: 5 * time.Second,
				ReadTimeout:       15 * time.Second,
			},
			Database: internal.DatabaseConfig{
				Source:       "postgres://localhost/expense_approval",
				MaxOpenConns: 10,
				MaxIdleConns: 5,
			},
			Security: internal.SecurityConfig{
				AccessTokenSecret:  "access-secret-access-secret-0123456789",
				RefreshTokenSecret: "refresh-secret-refresh-secret-0123456789",
				BCryptCost:         10,
				OTPMaxAttempts:     5,
			},
			Storage: internal.StorageConfig{
				BaseURL:        "http://localhost:54321/storage/v1",
				MaxUploadBytes: 1 << 20,
			},
			Observability: internal.ObservabilityConfig{
				Logging: internal.LoggingConfig{Level: "info", Format: "json"},
			},
		}
	})

	It("accepts a complete configuration", func() {
		Expect(cfg.Validate()).To(Succeed())
	})

	It("collects every failing section", func() {
		cfg.Server.Port = 0
		cfg.Database.Source = ""
		cfg.Observability.Logging.Level = "verbose"

		err := cfg.Validate()
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("server config"))
		Expect(err.Error()).To(ContainSubstring("database config"))
		Expect(err.Error()).To(ContainSubstring("logging config"))
	})

	It("requires distinct token secrets of sufficient length", func() {
		cfg.Security.AccessTokenSecret = "short"
		Expect(cfg.Security.Validate()).To(MatchError(ContainSubstring("access_token_secret")))

		cfg.Security.AccessTokenSecret = cfg.Security.RefreshTokenSecret
		Expect(cfg.Security.Validate()).To(MatchError(ContainSubstring("must differ")))
	})

	It("rejects more idle than open connections", func() {
		cfg.Database.MaxIdleConns = 20
		Expect(cfg.Database.Validate()).To(HaveOccurred())
	})

	It("requires a storage base url", func() {
		cfg.Storage.BaseURL = ""
		Expect(cfg.Storage.Validate()).To(HaveOccurred())
	})

	It("reads production settings from the environment", func() {
		for k, v := range map[string]string{"HTTP_PORT": "9090", "OTP_TTL": "3m", "METRICS_ENABLED": "false"} {
			Expect(os.Setenv(k, v)).To(Succeed())
			DeferCleanup(os.Unsetenv, k)
		}

		env := internal.LoadConfigFromEnv()
		Expect(env.Server.Port).To(Equal(9090))
		Expect(env.Security.OTPTTL).To(Equal(3 * time.Minute))
		Expect(env.Security.OTPMaxAttempts).To(Equal(5))
		Expect(env.Observability.Metrics.Enabled).To(BeFalse())
		Expect(env.Observability.Metrics.Path).To(Equal("/metrics"))
	})

	It("falls back to the default store timeout", func() {
		ctx, cancel := internal.WithTimeout(context.Background(), 0)
		defer cancel()

		deadline, ok := ctx.Deadline()
		Expect(ok).To(BeTrue())
		Expect(time.Until(deadline)).To(BeNumerically("~", internal.DefaultStoreTimeout, time.Second))
	})
})
