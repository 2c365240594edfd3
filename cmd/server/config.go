package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

type Config struct {
	bind    string
	port    int
	dbPath  string
	baseURL string
	verbose bool

	adminSecret     string
	adminSecretHash string
	sessionSecret   string

	genaiKey   string
	genaiModel string

	smtpHost string
	smtpPort int
	smtpUser string
	smtpPass string
	mailFrom string
}

func (c *Config) validate() error {
	if c.port < 1 || c.port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.port)
	}
	if c.adminSecret == "" && c.adminSecretHash == "" {
		return errors.New("either --admin-secret or --admin-secret-hash must be set")
	}
	if (c.smtpHost == "") != (c.mailFrom == "") {
		return errors.New("--smtp-host and --mail-from must be provided together")
	}
	return nil
}

func (c *Config) addr() string {
	return fmt.Sprintf("%s:%d", c.bind, c.port)
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("KRINGLE")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "kringle",
		Short:         "An anonymous gift-exchange server: token login, clue profiles, timed reveal.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: KRINGLE_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: KRINGLE_PORT)")
	fs.StringVar(&cfg.dbPath, "db", "", "path to sqlite database; empty keeps everything in memory (env: KRINGLE_DB)")
	fs.StringVar(&cfg.baseURL, "base-url", "http://localhost:8080", "public URL used in mails and QR cards (env: KRINGLE_BASE_URL)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "development logging (env: KRINGLE_VERBOSE)")

	fs.StringVar(&cfg.adminSecret, "admin-secret", "", "shared admin credential (env: KRINGLE_ADMIN_SECRET)")
	fs.StringVar(&cfg.adminSecretHash, "admin-secret-hash", "", "bcrypt hash of the admin credential, preferred over the plaintext form (env: KRINGLE_ADMIN_SECRET_HASH)")
	fs.StringVar(&cfg.sessionSecret, "session-secret", "", "signing key for admin session tokens; random per boot when empty (env: KRINGLE_SESSION_SECRET)")

	fs.StringVar(&cfg.genaiKey, "genai-key", "", "Gemini API key for profile generation; fallback generator is used when empty (env: KRINGLE_GENAI_KEY)")
	fs.StringVar(&cfg.genaiModel, "genai-model", "", "Gemini model name (env: KRINGLE_GENAI_MODEL)")

	fs.StringVar(&cfg.smtpHost, "smtp-host", "", "SMTP host for the token mail blast (env: KRINGLE_SMTP_HOST)")
	fs.IntVar(&cfg.smtpPort, "smtp-port", 587, "SMTP submission port (env: KRINGLE_SMTP_PORT)")
	fs.StringVar(&cfg.smtpUser, "smtp-user", "", "SMTP username (env: KRINGLE_SMTP_USER)")
	fs.StringVar(&cfg.smtpPass, "smtp-pass", "", "SMTP password (env: KRINGLE_SMTP_PASS)")
	fs.StringVar(&cfg.mailFrom, "mail-from", "", "sender address for outbound mail (env: KRINGLE_MAIL_FROM)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}
