package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/qepting91/threadbot/internal/domain"
	"github.com/qepting91/threadbot/internal/normalize"
	"github.com/qepting91/threadbot/internal/worklist"
)

// PendingTargets keeps rows whose STATUS is pending and whose NICK/URL
// resolves to something, in sheet order.
func PendingTargets(rows []worklist.Row, base string) []domain.Target {
	var targets []domain.Target
	for _, r := range rows {
		if !strings.EqualFold(r.Status, domain.RowPending) {
			continue
		}
		t := Resolve(r, base)
		if t.Destination == "" {
			continue
		}
		targets = append(targets, t)
	}
	return targets
}

// Resolve turns one typed row into a Target. Columns B and C may be swapped
// by hand; whichever looks like a URL is treated as the URL. Comment links
// are canonicalized against base.
func Resolve(r worklist.Row, base string) domain.Target {
	t := domain.Target{
		City:            r.City,
		Posts:           r.Posts,
		Followers:       r.Followers,
		MessageTemplate: r.Message,
		Row:             r.Index,
	}

	mode := strings.ToLower(strings.TrimSpace(r.Mode))
	target, name := pick(mode, r.Name, r.Target)
	t.DisplayName = name

	switch mode {
	case "url":
		t.Mode = domain.ModeURL
		t.Destination = normalize.CleanURL(target, base)
	case "nick", "":
		t.Mode = domain.ModeNick
		t.Nickname = target
		if normalize.LooksLikeURL(target) {
			t.Nickname = normalize.NicknameFromUserURL(target)
		}
		t.Destination = target
		if t.Nickname != "" {
			t.Destination = strings.TrimRight(base, "/") + "/users/" + t.Nickname + "/"
		}
	default:
		t.Mode = domain.ModeInvalid
		t.Destination = target
	}
	if t.DisplayName == "" {
		t.DisplayName = t.Nickname
	}
	return t
}

func pick(mode, b, c string) (target, name string) {
	bURL := normalize.LooksLikeURL(b)
	cURL := normalize.LooksLikeURL(c)
	if mode == "url" {
		if bURL && !cURL {
			return b, c
		}
		return c, b
	}
	if cURL && !bURL {
		return b, c
	}
	return c, b
}

// Key is the cell a target is identified by in logs and run history
func Key(t domain.Target) string {
	if t.Mode == domain.ModeNick && t.Nickname != "" {
		return t.Nickname
	}
	return t.Destination
}

// Validate reports why a resolved target cannot proceed. It makes no network calls.
func Validate(t domain.Target) error {
	switch t.Mode {
	case domain.ModeURL:
		if !normalize.LooksLikeURL(t.Destination) {
			return fmt.Errorf("invalid URL target: %s", t.Destination)
		}
	case domain.ModeNick:
		if t.Nickname == "" {
			return fmt.Errorf("no nickname in %s", t.Destination)
		}
	default:
		return errors.New("invalid mode")
	}
	return nil
}

// LoadRowsCSV reads a MsgList export. The header line is skipped and
// malformed lines are dropped.
func LoadRowsCSV(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(stripBOM(f))
	r.FieldsPerRecord = -1

	var rows [][]string
	line := 0
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			continue
		}
		line++
		if line == 1 {
			continue
		}
		if strings.TrimSpace(strings.Join(record, "")) == "" {
			continue
		}
		for len(record) < worklist.ColStatus {
			record = append(record, "")
		}
		if strings.TrimSpace(record[worklist.ColStatus-1]) == "" {
			record[worklist.ColStatus-1] = domain.RowPending
		}
		rows = append(rows, record)
	}
	return rows, nil
}

func stripBOM(r io.Reader) io.Reader {
	br := bufio.NewReader(r)
	rdr, _, err := br.ReadRune()
	if err != nil {
		return br
	}
	if rdr != '\uFEFF' {
		_ = br.UnreadRune()
	}
	return br
}
