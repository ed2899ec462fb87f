package lc_test

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"testing"

	lcfs "lc-go/internal/fs"
	"lc-go/internal/lc"
	"lc-go/internal/testutil"
)

// commitFiles stages files and commits them in one repository session.
func commitFiles(t *testing.T, root, message string, files ...string) {
	t.Helper()
	withRepo(t, root, func(r *lc.Repo) error {
		if _, err := r.Stage(files); err != nil {
			return err
		}
		_, err := r.Commit(message)
		return err
	})
}

func masterLedger(t *testing.T, root string) *lc.Ledger {
	t.Helper()
	l, err := loadRepo(t, root, newDeps()).GetBranch("master")
	if err != nil {
		t.Fatalf("GetBranch() error = %v", err)
	}
	return l
}

func snapshotPath(root string, id int, rel string) string {
	dir := filepath.Join(root, lc.DataDir, "master", "master-commit-"+strconv.Itoa(id))
	if rel == "" {
		return dir
	}
	return filepath.Join(dir, filepath.FromSlash(rel))
}

func commitIDs(l *lc.Ledger) []int {
	var ids []int
	for _, c := range l.Commits() {
		ids = append(ids, c.ID)
	}
	return ids
}

func TestScenarioInitStageCommitRemove(t *testing.T) {
	root := initRepo(t)
	testutil.WriteFiles(t, root, map[string]string{"a.txt": "hello"})

	withRepo(t, root, func(r *lc.Repo) error {
		if _, err := r.Stage([]string{"a.txt"}); err != nil {
			return err
		}
		if got := r.StagedFiles(); !slices.Equal(got, []string{"a.txt"}) {
			t.Errorf("StagedFiles() = %v, want [a.txt]", got)
		}
		return nil
	})

	withRepo(t, root, func(r *lc.Repo) error {
		n, err := r.Commit("first")
		if err != nil {
			return err
		}
		if n != 1 {
			t.Errorf("Commit() = %d, want 1", n)
		}
		return nil
	})

	l := masterLedger(t, root)
	if l.CommitCount() != 1 || l.CurrentCommit() != 1 {
		t.Fatalf("count=%d current=%d, want 1 and 1", l.CommitCount(), l.CurrentCommit())
	}
	c, ok := l.Commit(1)
	if !ok {
		t.Fatal("Commit(1) not found")
	}
	if c.Message != "first" || !slices.Equal(c.ModifiedFiles, []string{"a.txt"}) {
		t.Errorf("commit = %+v", c)
	}
	if c.CreationDatetime != "2024-01-15T10:30:00Z" {
		t.Errorf("CreationDatetime = %q", c.CreationDatetime)
	}
	if got := testutil.ReadFile(t, snapshotPath(root, 1, ""), "a.txt"); got != "hello" {
		t.Errorf("snapshot content = %q, want hello", got)
	}
	if staged := loadRepo(t, root, newDeps()).StagedFiles(); len(staged) != 0 {
		t.Errorf("StagedFiles() = %v, want empty", staged)
	}

	withRepo(t, root, func(r *lc.Repo) error {
		return r.RemoveCommit(1)
	})

	l = masterLedger(t, root)
	if l.CommitCount() != 0 || l.CurrentCommit() != 0 {
		t.Errorf("count=%d current=%d, want 0 and 0", l.CommitCount(), l.CurrentCommit())
	}
	if _, err := os.Stat(snapshotPath(root, 1, "")); !os.IsNotExist(err) {
		t.Error("snapshot directory still exists")
	}
}

func TestCommit_CopiesByteIdenticalFiles(t *testing.T) {
	root := initRepo(t)
	binary := string([]byte{0x00, 0xff, 0x10, '\n', '\r', 0x7f})
	files := map[string]string{
		"bin.dat":          binary,
		"dir/sub/deep.txt": "deep",
		"empty":            "",
	}
	testutil.WriteFiles(t, root, files)
	commitFiles(t, root, "all", "bin.dat", "dir", "empty")

	for rel, want := range files {
		if got := testutil.ReadFile(t, snapshotPath(root, 1, ""), rel); got != want {
			t.Errorf("%s: snapshot content = %q, want %q", rel, got, want)
		}
	}

	c, _ := masterLedger(t, root).Commit(1)
	want := []string{"bin.dat", "dir/sub/deep.txt", "empty"}
	if !slices.Equal(c.ModifiedFiles, want) {
		t.Errorf("ModifiedFiles = %v, want %v", c.ModifiedFiles, want)
	}
}

func TestCommit_NoStagedFiles(t *testing.T) {
	root := initRepo(t)
	r := loadRepo(t, root, newDeps())
	if _, err := r.Commit("nothing"); !errors.Is(err, lc.ErrNoStagedFiles) {
		t.Errorf("Commit() error = %v, want ErrNoStagedFiles", err)
	}
}

func TestCommit_InvalidUTF8MessageStillLoads(t *testing.T) {
	root := initRepo(t)
	testutil.WriteFiles(t, root, map[string]string{"a.txt": "a"})
	commitFiles(t, root, "msg\xfe", "a.txt")

	l := masterLedger(t, root)
	c, ok := l.Commit(1)
	if !ok {
		t.Fatal("commit 1 not found")
	}
	if c.Message != "msg\uFFFD" {
		t.Errorf("Message = %q, want %q", c.Message, "msg\uFFFD")
	}
}

func TestCommit_IDs(t *testing.T) {
	t.Run("sequential", func(t *testing.T) {
		root := initRepo(t)
		testutil.WriteFiles(t, root, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
		for _, f := range []string{"a.txt", "b.txt", "c.txt"} {
			commitFiles(t, root, f, f)
		}
		if got := commitIDs(masterLedger(t, root)); !slices.Equal(got, []int{1, 2, 3}) {
			t.Errorf("ids = %v, want [1 2 3]", got)
		}
	})

	t.Run("tail removal frees the id", func(t *testing.T) {
		root := initRepo(t)
		testutil.WriteFiles(t, root, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
		commitFiles(t, root, "one", "a.txt")
		commitFiles(t, root, "two", "b.txt")
		withRepo(t, root, func(r *lc.Repo) error { return r.RemoveCommit(2) })

		commitFiles(t, root, "two again", "c.txt")

		l := masterLedger(t, root)
		if got := commitIDs(l); !slices.Equal(got, []int{1, 2}) {
			t.Errorf("ids = %v, want [1 2]", got)
		}
		c, _ := l.Commit(2)
		if c.Message != "two again" {
			t.Errorf("Commit(2).Message = %q", c.Message)
		}
		if _, err := os.Stat(snapshotPath(root, 2, "b.txt")); !os.IsNotExist(err) {
			t.Error("reused snapshot directory holds files of the removed commit")
		}
		if got := testutil.ReadFile(t, snapshotPath(root, 2, ""), "c.txt"); got != "c" {
			t.Errorf("snapshot content = %q, want c", got)
		}
	})

	t.Run("non-tail removal collides with the tail snapshot", func(t *testing.T) {
		root := initRepo(t)
		testutil.WriteFiles(t, root, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
		commitFiles(t, root, "one", "a.txt")
		commitFiles(t, root, "two", "b.txt")
		withRepo(t, root, func(r *lc.Repo) error { return r.RemoveCommit(1) })

		r := loadRepo(t, root, newDeps())
		next, err := r.NextCommitID()
		if err != nil {
			t.Fatalf("NextCommitID() error = %v", err)
		}
		if next != 2 {
			t.Errorf("NextCommitID() = %d, want 2", next)
		}

		if _, err := r.Stage([]string{"c.txt"}); err != nil {
			t.Fatalf("Stage() error = %v", err)
		}
		if _, err := r.Commit("three"); !errors.Is(err, lc.ErrIO) {
			t.Fatalf("Commit() error = %v, want ErrIO", err)
		}
		if got := r.StagedFiles(); !slices.Equal(got, []string{"c.txt"}) {
			t.Errorf("StagedFiles() = %v, want [c.txt]", got)
		}
		if got := commitIDs(masterLedger(t, root)); !slices.Equal(got, []int{2}) {
			t.Errorf("ids = %v, want [2]", got)
		}
		if got := testutil.ReadFile(t, snapshotPath(root, 2, ""), "b.txt"); got != "b" {
			t.Errorf("existing snapshot was modified: %q", got)
		}
	})
}

func TestCommit_AbortedCopyLeavesPartialSnapshot(t *testing.T) {
	root := initRepo(t)
	testutil.WriteFiles(t, root, map[string]string{"a.txt": "a", "b.txt": "b"})

	deps := newDeps()
	deps.Collector = testutil.NewFailingFilesystemManager(lcfs.NewOSFilesystemManager(), 1)
	r := loadRepo(t, root, deps)
	if _, err := r.Stage([]string{"a.txt", "b.txt"}); err != nil {
		t.Fatalf("Stage() error = %v", err)
	}

	_, err := r.Commit("partial")
	if !errors.Is(err, lc.ErrCommitAborted) {
		t.Fatalf("Commit() error = %v, want ErrCommitAborted", err)
	}
	if !errors.Is(err, testutil.ErrInjected) {
		t.Errorf("Commit() error should carry the copy failure: %v", err)
	}

	if got := testutil.ReadFile(t, snapshotPath(root, 1, ""), "a.txt"); got != "a" {
		t.Errorf("partial snapshot content = %q, want a", got)
	}
	if _, err := os.Stat(snapshotPath(root, 1, "b.txt")); !os.IsNotExist(err) {
		t.Error("b.txt should not have been copied")
	}
	if l := masterLedger(t, root); l.CommitCount() != 0 {
		t.Errorf("CommitCount() = %d, want 0", l.CommitCount())
	}
	if got := r.StagedFiles(); !slices.Equal(got, []string{"a.txt", "b.txt"}) {
		t.Errorf("StagedFiles() = %v, want [a.txt b.txt]", got)
	}
}

func TestRemoveCommit(t *testing.T) {
	t.Run("unknown id", func(t *testing.T) {
		root := initRepo(t)
		r := loadRepo(t, root, newDeps())
		if err := r.RemoveCommit(3); !errors.Is(err, lc.ErrNotFound) {
			t.Errorf("RemoveCommit() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("stray snapshot directory", func(t *testing.T) {
		root := initRepo(t)
		stray := snapshotPath(root, 5, "")
		if err := os.Mkdir(stray, 0755); err != nil {
			t.Fatalf("creating stray dir: %v", err)
		}
		r := loadRepo(t, root, newDeps())
		if err := r.RemoveCommit(5); !errors.Is(err, lc.ErrNotFound) {
			t.Errorf("RemoveCommit() error = %v, want ErrNotFound", err)
		}
		if _, err := os.Stat(stray); !os.IsNotExist(err) {
			t.Error("stray directory should have been deleted")
		}
	})

	t.Run("middle commit", func(t *testing.T) {
		root := initRepo(t)
		testutil.WriteFiles(t, root, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})
		for _, f := range []string{"a.txt", "b.txt", "c.txt"} {
			commitFiles(t, root, f, f)
		}
		withRepo(t, root, func(r *lc.Repo) error { return r.RemoveCommit(2) })

		l := masterLedger(t, root)
		if got := commitIDs(l); !slices.Equal(got, []int{1, 3}) {
			t.Errorf("ids = %v, want [1 3]", got)
		}
		if l.CurrentCommit() != 3 {
			t.Errorf("CurrentCommit() = %d, want 3", l.CurrentCommit())
		}
		if _, ok := l.Commit(2); ok {
			t.Error("Commit(2) still present")
		}
	})
}

func TestRestoreCommit(t *testing.T) {
	root := initRepo(t)
	testutil.WriteFiles(t, root, map[string]string{"a.txt": "v1", "dir/b.txt": "b"})
	commitFiles(t, root, "first", "a.txt", "dir")

	testutil.WriteFiles(t, root, map[string]string{"a.txt": "v2", "extra.txt": "keep me"})
	if err := os.RemoveAll(filepath.Join(root, "dir")); err != nil {
		t.Fatalf("removing dir: %v", err)
	}

	var restored int
	withRepo(t, root, func(r *lc.Repo) error {
		var err error
		restored, err = r.RestoreCommit(1)
		return err
	})

	if restored != 2 {
		t.Errorf("RestoreCommit() = %d, want 2", restored)
	}
	want := map[string]string{"a.txt": "v1", "dir/b.txt": "b", "extra.txt": "keep me"}
	for rel, content := range want {
		if got := testutil.ReadFile(t, root, rel); got != content {
			t.Errorf("%s = %q, want %q", rel, got, content)
		}
	}

	t.Run("unknown id", func(t *testing.T) {
		r := loadRepo(t, root, newDeps())
		if _, err := r.RestoreCommit(9); !errors.Is(err, lc.ErrNotFound) {
			t.Errorf("RestoreCommit() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("snapshot directory missing", func(t *testing.T) {
		if err := os.RemoveAll(snapshotPath(root, 1, "")); err != nil {
			t.Fatalf("removing snapshot: %v", err)
		}
		r := loadRepo(t, root, newDeps())
		if _, err := r.RestoreCommit(1); !errors.Is(err, lc.ErrNotFound) {
			t.Errorf("RestoreCommit() error = %v, want ErrNotFound", err)
		}
	})
}
