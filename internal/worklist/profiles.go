package worklist

import (
	"context"
	"errors"
	"strings"

	"github.com/qepting91/threadbot/internal/normalize"
)

var profileSheetNames = []string{"Profiles", "PROFILES", "PROFILE"}

// ProfileRecord is what the Profiles sheet already knows about a nickname
type ProfileRecord struct {
	Nick      string
	City      string
	Followers string
	Posts     string
}

// Lookup is keyed by lowercase nickname and by ProfileKey(nickname)
type Lookup map[string]ProfileRecord

func (l Lookup) Get(key string) (ProfileRecord, bool) {
	k := strings.ToLower(strings.TrimSpace(key))
	if k == "" {
		return ProfileRecord{}, false
	}
	if r, ok := l[k]; ok {
		return r, true
	}
	r, ok := l[normalize.ProfileKey(k)]
	return r, ok
}

// LoadProfilesLookup reads the Profiles sheet. Columns: nickname B, city D, followers I, posts K.
func LoadProfilesLookup(ctx context.Context, c *Client) (Lookup, error) {
	var rows [][]string
	var err error
	for _, name := range profileSheetNames {
		rows, err = c.GetAllRows(ctx, name)
		if !errors.Is(err, ErrSheetNotFound) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	cell := func(r []string, i int) string {
		if i < len(r) {
			return normalize.CleanText(r[i])
		}
		return ""
	}
	lookup := Lookup{}
	for i := 1; i < len(rows); i++ {
		r := rows[i]
		nick := cell(r, 1)
		if nick == "" {
			continue
		}
		rec := ProfileRecord{
			Nick:      nick,
			City:      cell(r, 3),
			Followers: cell(r, 8),
			Posts:     cell(r, 10),
		}
		key := strings.ToLower(nick)
		lookup[key] = rec
		if norm := normalize.ProfileKey(key); norm != "" {
			if _, taken := lookup[norm]; !taken {
				lookup[norm] = rec
			}
		}
	}
	return lookup, nil
}
