package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/qepting91/threadbot/internal/domain"
	"github.com/sethvargo/go-retry"
)

var ErrLoginFailed = errors.New("login failed")

const (
	nickField   = "#nick, input[name='nick']"
	passField   = "#pass, input[name='pass']"
	loginSubmit = "button[type='submit'], form button"
)

type Credentials struct {
	BaseURL    string
	Nick       string
	Pass       string
	CookieFile string
	// Upper bound on waiting for the post-login redirect
	Settle time.Duration
	// Pause between navigation attempts
	RetryDelay time.Duration
}

// Login reuses saved cookies when they still hold a session, otherwise signs in
// with the form and saves the fresh cookies.
func Login(ctx context.Context, s domain.Session, creds Credentials, logger *slog.Logger) error {
	home := strings.TrimRight(creds.BaseURL, "/") + "/"
	if err := NavigateWithRetry(ctx, s, home, 2, creds.RetryDelay); err != nil {
		return fmt.Errorf("open home page: %w", err)
	}

	saved, err := LoadCookies(creds.CookieFile)
	if err != nil {
		logger.Warn("Cookie load failed", "file", creds.CookieFile, "err", err)
	}
	if len(saved) > 0 {
		if err := s.SetCookies(saved); err != nil {
			logger.Warn("Cookie restore failed", "err", err)
		} else if err := NavigateWithRetry(ctx, s, home, 2, creds.RetryDelay); err == nil && !onLoginPage(s.CurrentURL()) {
			logger.Info("Already logged in via cookies")
			return nil
		}
		logger.Info("Saved cookies expired, logging in")
	}

	if creds.Nick == "" || creds.Pass == "" {
		return fmt.Errorf("%w: DD_LOGIN_EMAIL and DD_LOGIN_PASS are required", ErrLoginFailed)
	}
	if err := NavigateWithRetry(ctx, s, home+"login/", 2, creds.RetryDelay); err != nil {
		return fmt.Errorf("open login page: %w", err)
	}

	nick, err := s.WaitUntilPresent(ctx, nickField, 8*time.Second)
	if err != nil {
		return fmt.Errorf("%w: nickname field: %v", ErrLoginFailed, err)
	}
	pass, err := s.Find(passField)
	if err != nil {
		return fmt.Errorf("%w: password field: %v", ErrLoginFailed, err)
	}
	btn, err := s.Find(loginSubmit)
	if err != nil {
		return fmt.Errorf("%w: submit button: %v", ErrLoginFailed, err)
	}

	for _, step := range []func() error{
		nick.Clear,
		func() error { return nick.SendKeys(creds.Nick) },
		pass.Clear,
		func() error { return pass.SendKeys(creds.Pass) },
		btn.Click,
	} {
		if err := step(); err != nil {
			return fmt.Errorf("%w: %v", ErrLoginFailed, err)
		}
	}

	if !waitForURL(ctx, s, creds.Settle, func(u string) bool { return !onLoginPage(u) }) {
		return ErrLoginFailed
	}

	cookies, err := s.Cookies()
	if err == nil {
		err = SaveCookies(creds.CookieFile, cookies)
	}
	if err != nil {
		logger.Warn("Cookie save failed", "err", err)
	}
	logger.Info("Login successful", "nick", creds.Nick)
	return nil
}

func onLoginPage(u string) bool {
	u = strings.ToLower(u)
	return strings.Contains(u, "login") || strings.Contains(u, "signup")
}

// waitForURL polls the current URL until ok holds or limit passes
func waitForURL(ctx context.Context, s domain.Session, limit time.Duration, ok func(string) bool) bool {
	deadline := time.Now().Add(limit)
	for {
		if ok(s.CurrentURL()) {
			return true
		}
		if time.Now().After(deadline) {
			return false
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(250 * time.Millisecond):
		}
	}
}

// NavigateWithRetry loads a page, stopping the load and trying again on failure.
// Only use it for plain page loads, never for anything that submits data.
func NavigateWithRetry(ctx context.Context, s domain.Session, url string, attempts int, delay time.Duration) error {
	if delay <= 0 {
		delay = time.Millisecond
	}
	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewConstant(delay))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := s.Navigate(ctx, url); err != nil {
			if stopErr := s.ExecuteScript(ctx, "() => window.stop()"); stopErr != nil && !errors.Is(stopErr, domain.ErrUnsupported) {
				return retry.RetryableError(errors.Join(err, stopErr))
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}
