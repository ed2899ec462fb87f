package lc

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// FormatVersion is the header line of every descriptor and ledger file.
// It is compared verbatim on load; there is no migration path.
const FormatVersion = "lc/1"

type handleState int

const (
	stateOpen handleState = iota
	stateFinalized
)

// lifecycle is the state shared by Repo and Ledger:
// Open(unmodified) -> Open(modified) -> Finalized.
type lifecycle struct {
	state    handleState
	modified bool
}

// Finalized reports whether the handle has been flushed and closed for mutation.
func (l *lifecycle) Finalized() bool { return l.state == stateFinalized }

// Modified reports whether the handle holds changes not yet written to disk.
func (l *lifecycle) Modified() bool { return l.modified }

func (l *lifecycle) checkOpen(op, path string) error {
	if l.state == stateFinalized {
		return newError(op, path, ErrFinalized, nil)
	}
	return nil
}

func (l *lifecycle) markModified() { l.modified = true }

// writeVersioned writes the version header followed by body encoded as TOML.
// A body that would not decode again, such as one holding invalid UTF-8, is
// refused and the file on disk is left as it was.
func writeVersioned(path string, body any) error {
	var enc bytes.Buffer
	if err := toml.NewEncoder(&enc).Encode(body); err != nil {
		return newError("write", path, ErrIO, fmt.Errorf("encoding body: %w", err))
	}
	var check map[string]any
	if _, err := toml.Decode(enc.String(), &check); err != nil {
		return newError("write", path, ErrIO, fmt.Errorf("encoded body would not load: %w", err))
	}

	var buf bytes.Buffer
	buf.WriteString(FormatVersion + "\n")
	buf.Write(enc.Bytes())
	if err := writeFileAtomic(path, buf.Bytes()); err != nil {
		return newError("write", path, ErrIO, err)
	}
	return nil
}

// readVersioned checks the version header of path and decodes the remainder into body.
// Keys in the file that body does not declare are rejected.
func readVersioned(path string, body any) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newError("load", path, ErrNotFound, err)
		}
		return newError("load", path, ErrLoad, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	header, err := r.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && header != "") {
		return newError("load", path, ErrLoad, fmt.Errorf("reading version header: %w", err))
	}
	header = strings.TrimRight(header, "\r\n")
	if header != FormatVersion {
		return newError("load", path, ErrVersion, fmt.Errorf("found %q, want %q", header, FormatVersion))
	}

	md, err := toml.NewDecoder(r).Decode(body)
	if err != nil {
		return newError("load", path, ErrLoad, fmt.Errorf("decoding body: %w", err))
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return newError("load", path, ErrLoad, fmt.Errorf("unknown key %q", undecoded[0].String()))
	}
	return nil
}

// writeFileAtomic writes data to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("renaming temp file: %w", err)
	}

	success = true
	return nil
}
