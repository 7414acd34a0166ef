package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is read once from the environment (after godotenv.Load)
type Config struct {
	BaseURL    string
	LoginNick  string
	LoginPass  string
	CookieFile string

	SheetID         string
	ProfilesSheetID string
	CredentialsFile string
	CredentialsJSON string
	Backend         string
	XLSXPath        string

	BrowserMode string
	BrowserBin  string
	Headless    bool

	Debug        bool
	Mode         string
	MaxPostPages int
	MaxProfiles  int
	AutoPush     bool

	JournalPath   string
	ExportDir     string
	DashboardPort string

	PageTimeout   time.Duration
	SubmitSettle  time.Duration
	ReloadSettle  time.Duration
	PageSettle    time.Duration
	BetweenTarget time.Duration
}

// Load builds a Config from environment variables, filling defaults
func Load() Config {
	return Config{
		BaseURL:    strings.TrimRight(env("DD_BASE_URL", "https://damadam.pk"), "/"),
		LoginNick:  os.Getenv("DD_LOGIN_EMAIL"),
		LoginPass:  os.Getenv("DD_LOGIN_PASS"),
		CookieFile: env("COOKIE_FILE", "damadam_cookies.json"),

		SheetID:         os.Getenv("DD_SHEET_ID"),
		ProfilesSheetID: os.Getenv("DD_PROFILES_SHEET_ID"),
		CredentialsFile: env("CREDENTIALS_FILE", "credentials.json"),
		CredentialsJSON: os.Getenv("DD_CREDENTIALS_JSON"),
		Backend:         strings.ToLower(env("DD_WORKLIST_BACKEND", "sheets")),
		XLSXPath:        env("DD_WORKLIST_XLSX", "worklist.xlsx"),

		BrowserMode: strings.ToLower(env("DD_BROWSER_MODE", "rod")),
		BrowserBin:  os.Getenv("DD_BROWSER_BIN"),
		Headless:    flag("DD_HEADLESS", true),

		Debug:        flag("DD_DEBUG", false),
		Mode:         strings.ToLower(env("DD_MODE", "msg")),
		MaxPostPages: number("DD_MAX_POST_PAGES", 4),
		MaxProfiles:  number("DD_MAX_PROFILES", number("DD_BATCH_SIZE", 0)),
		AutoPush:     flag("DD_AUTO_PUSH", false),

		JournalPath:   env("DD_JOURNAL", "data/runs.ndjson"),
		ExportDir:     env("DD_EXPORT_DIR", "folderExport"),
		DashboardPort: env("PORT", "8080"),

		PageTimeout:   seconds("DD_PAGE_TIMEOUT", 10),
		SubmitSettle:  seconds("DD_SUBMIT_SETTLE", 3),
		ReloadSettle:  seconds("DD_RELOAD_SETTLE", 2),
		PageSettle:    seconds("DD_PAGE_SETTLE", 3),
		BetweenTarget: seconds("DD_TARGET_PAUSE", 2),
	}
}

// ProfilesSheet is the spreadsheet holding the Profiles lookup
func (c Config) ProfilesSheet() string {
	if c.ProfilesSheetID != "" {
		return c.ProfilesSheetID
	}
	return c.SheetID
}

func env(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func flag(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return def
}

func number(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil {
		return def
	}
	return n
}

func seconds(key string, def int) time.Duration {
	return time.Duration(number(key, def)) * time.Second
}
