package lc

import (
	"strings"
	"testing"
	"time"
)

func TestNewCommit(t *testing.T) {
	files := []string{"a.txt", "dir/b.txt"}
	now := time.Date(2024, 1, 15, 11, 30, 0, 0, time.FixedZone("CET", 3600))

	c := NewCommit(3, "third", files, now)
	files[0] = "changed"

	if c.ID != 3 || c.Message != "third" {
		t.Errorf("got id=%d message=%q", c.ID, c.Message)
	}
	if c.CreationDatetime != "2024-01-15T10:30:00Z" {
		t.Errorf("CreationDatetime = %q, want UTC RFC 3339", c.CreationDatetime)
	}
	if c.ModifiedFiles[0] != "a.txt" {
		t.Error("NewCommit should copy the file list")
	}

	created, err := c.CreatedAt()
	if err != nil {
		t.Fatalf("CreatedAt() error = %v", err)
	}
	if !created.Equal(now) {
		t.Errorf("CreatedAt() = %v, want %v", created, now)
	}
}

func TestNewCommit_InvalidUTF8Message(t *testing.T) {
	c := NewCommit(1, "msg\xfe", []string{"a.txt"}, testTime)
	if c.Message != "msg\uFFFD" {
		t.Errorf("Message = %q, want %q", c.Message, "msg\uFFFD")
	}
}

func TestCommit_String(t *testing.T) {
	now := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	c := NewCommit(1, "first", []string{"a.txt", "dir/b.txt"}, now)

	want := "ID: 1\n" +
		"Message: first\n" +
		"Created at: " + now.Local().Format(DisplayTimeFormat) + "\n" +
		"Modified Files:\n" +
		"  a.txt\n" +
		"  dir/b.txt\n"
	if got := c.String(); got != want {
		t.Errorf("String() =\n%s\nwant\n%s", got, want)
	}
}

func TestCommit_StringWithBadTimestamp(t *testing.T) {
	c := Commit{ID: 2, Message: "m", CreationDatetime: "yesterday"}
	if !strings.Contains(c.String(), "Created at: yesterday\n") {
		t.Errorf("String() should fall back to the stored value, got:\n%s", c.String())
	}
	if _, err := c.CreatedAt(); err == nil {
		t.Error("CreatedAt() expected error")
	}
}
