package lc

import (
	"fmt"
	"strings"
	"time"
)

// DisplayTimeFormat is how commit timestamps are shown to users, in local time.
const DisplayTimeFormat = "2006-01-02 15:04:05"

// Commit is one snapshot event. It is immutable once created; a Ledger only
// hands out copies.
type Commit struct {
	ID               int      `toml:"id"`
	Message          string   `toml:"message"`
	CreationDatetime string   `toml:"creation_datetime"`
	ModifiedFiles    []string `toml:"modified_files"`
}

// NewCommit creates a commit stamped with now, normalized to UTC.
// The file list is copied as given; existence was checked when the files were staged.
// Invalid UTF-8 in message is replaced with U+FFFD.
func NewCommit(id int, message string, files []string, now time.Time) Commit {
	return Commit{
		ID:               id,
		Message:          strings.ToValidUTF8(message, "\uFFFD"),
		CreationDatetime: now.UTC().Format(time.RFC3339),
		ModifiedFiles:    append([]string(nil), files...),
	}
}

// CreatedAt parses the stored creation timestamp.
func (c Commit) CreatedAt() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.CreationDatetime)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing creation time of commit %d: %w", c.ID, err)
	}
	return t, nil
}

// FormattedTime returns the creation time in local time, or the raw stored
// value if it cannot be parsed.
func (c Commit) FormattedTime() string {
	t, err := c.CreatedAt()
	if err != nil {
		return c.CreationDatetime
	}
	return t.Local().Format(DisplayTimeFormat)
}

func (c Commit) clone() Commit {
	c.ModifiedFiles = append([]string(nil), c.ModifiedFiles...)
	return c
}

// String renders the commit for listing:
//
//	ID: 1
//	Message: first
//	Created at: 2024-01-15 10:30:00
//	Modified Files:
//	  a.txt
func (c Commit) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "ID: %d\nMessage: %s\nCreated at: %s\nModified Files:\n", c.ID, c.Message, c.FormattedTime())
	for _, f := range c.ModifiedFiles {
		fmt.Fprintf(&b, "  %s\n", f)
	}
	return b.String()
}
