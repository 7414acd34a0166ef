package domain

import (
	"context"
	"time"
)

// Cookie is the persisted form of a browser cookie
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain,omitempty"`
	Path     string  `json:"path,omitempty"`
	Expires  float64 `json:"expiry,omitempty"`
	HTTPOnly bool    `json:"httpOnly,omitempty"`
	Secure   bool    `json:"secure,omitempty"`
}

// Session is a single stateful page context. It is not safe for concurrent use.
type Session interface {
	Navigate(ctx context.Context, url string) error
	CurrentURL() string
	PageSource() (string, error)
	Find(selector string) (Element, error)
	FindAll(selector string) ([]Element, error)
	WaitUntilPresent(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	ExecuteScript(ctx context.Context, js string) error
	Cookies() ([]Cookie, error)
	SetCookies(cookies []Cookie) error
	Close() error
}

// Element is a handle to one node of the current page
type Element interface {
	Text() (string, error)
	Attribute(name string) (string, bool, error)
	IsDisplayed() (bool, error)
	Clear() error
	SendKeys(text string) error
	Click() error
	ScriptClick() error
	ScrollIntoView() error
	Find(selector string) (Element, error)
	FindAll(selector string) ([]Element, error)
}

// Grid is the spreadsheet store behind the worklist. Rows and columns are 1-based.
type Grid interface {
	GetAllRows(ctx context.Context, sheet string) ([][]string, error)
	UpdateCell(ctx context.Context, sheet string, row, col int, value string) error
	InsertRow(ctx context.Context, sheet string, values []string, at int) error
	AppendRows(ctx context.Context, sheet string, rows [][]string) error
	GetOrCreateSheet(ctx context.Context, name string, header []string) error
}
