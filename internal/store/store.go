// Package store persists JSON snapshots on the local filesystem.
//
// Two scope shapes coexist: single-slot scopes hold exactly one current
// document (metagame/<format>.json), dated scopes hold one document per
// calendar day (decks/<format>/<slug>/<YYYY-MM-DD>.json) and never delete
// older days. Reads never fail for "not found"; they report absence instead.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/law-makers/mtgmeta/internal/errs"
	"github.com/law-makers/mtgmeta/pkg/models"
	"github.com/rs/zerolog/log"
)

const (
	MetagameDir = "metagame"
	DecksDir    = "decks"

	// DateLayout is the key format of dated documents. Lexical order of
	// these keys is chronological order.
	DateLayout = "2006-01-02"

	jsonExt = ".json"
)

var (
	segmentPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Scope addresses a family of documents under the data root
type Scope struct {
	segments []string
	dated    bool
}

// MetagameScope is the single-slot scope holding the current metagame of a format
func MetagameScope(format models.Format) Scope {
	return Scope{segments: []string{MetagameDir, string(format)}}
}

// DeckScope is the dated scope holding every snapshot of one archetype
func DeckScope(format models.Format, slug string) Scope {
	return Scope{segments: []string{DecksDir, string(format), slug}, dated: true}
}

// FormatScope groups the deck scopes of a format; used for listing slugs
func FormatScope(format models.Format) Scope {
	return Scope{segments: []string{DecksDir, string(format)}}
}

// Dated reports whether the scope keeps one document per date
func (s Scope) Dated() bool {
	return s.dated
}

func (s Scope) String() string {
	return strings.Join(s.segments, "/")
}

func (s Scope) validate() error {
	if len(s.segments) == 0 {
		return errs.Validation("empty scope")
	}
	for _, seg := range s.segments {
		if !segmentPattern.MatchString(seg) {
			return errs.Validation("invalid scope segment %q", seg)
		}
	}
	return nil
}

// DateKey formats t as a document date key (UTC)
func DateKey(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// Store is a filesystem-backed snapshot store rooted at a data directory
type Store struct {
	root string
}

// New creates a Store rooted at dir. The directory is created lazily on write.
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the data directory
func (s *Store) Root() string {
	return s.root
}

func (s *Store) dir(scope Scope) string {
	return filepath.Join(append([]string{s.root}, scope.segments...)...)
}

// path resolves the file holding scope's document for date
func (s *Store) path(scope Scope, date string) (string, error) {
	if err := scope.validate(); err != nil {
		return "", err
	}
	if !scope.dated {
		return s.dir(scope) + jsonExt, nil
	}
	if !datePattern.MatchString(date) {
		return "", errs.Validation("invalid date %q: expected YYYY-MM-DD", date)
	}
	return filepath.Join(s.dir(scope), date+jsonExt), nil
}

// Write serializes doc as indented JSON into the (scope, date) slot,
// replacing any previous document. Single-slot scopes ignore date.
func (s *Store) Write(scope Scope, date string, doc interface{}) error {
	path, err := s.path(scope, date)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", scope, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return errs.StorageIO("mkdir", dir, err)
	}

	// Write to a sibling temp file and rename so readers never observe a
	// partially written document.
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return errs.StorageIO("create", dir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errs.StorageIO("write", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.StorageIO("close", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0640); err != nil {
		return errs.StorageIO("chmod", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errs.StorageIO("rename", path, err)
	}

	log.Debug().
		Str("scope", scope.String()).
		Str("path", path).
		Int("bytes", len(data)).
		Msg("Snapshot written")

	return nil
}

// ReadByDate decodes the document stored for exactly date into v.
// It returns false when no such document exists.
func (s *Store) ReadByDate(scope Scope, date string, v interface{}) (bool, error) {
	path, err := s.path(scope, date)
	if err != nil {
		return false, err
	}
	return readJSON(path, v)
}

// ReadLatest decodes the most recent document of scope into v. For dated
// scopes that is the lexically greatest date key.
func (s *Store) ReadLatest(scope Scope, v interface{}) (bool, error) {
	if !scope.dated {
		return s.ReadByDate(scope, "", v)
	}

	dates, err := s.ListDates(scope)
	if err != nil {
		return false, err
	}
	if len(dates) == 0 {
		return false, nil
	}
	return s.ReadByDate(scope, dates[0], v)
}

// ListChildren returns the names of the sub-scopes directly below scope,
// sorted ascending. A missing directory yields an empty list.
func (s *Store) ListChildren(scope Scope) ([]string, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}

	entries, err := readDir(s.dir(scope))
	if err != nil {
		return nil, err
	}

	children := []string{}
	for _, e := range entries {
		if e.IsDir() && segmentPattern.MatchString(e.Name()) {
			children = append(children, e.Name())
		}
	}
	sort.Strings(children)
	return children, nil
}

// ListDates returns every date stored in a dated scope, newest first.
// A missing directory yields an empty list.
func (s *Store) ListDates(scope Scope) ([]string, error) {
	if err := scope.validate(); err != nil {
		return nil, err
	}
	if !scope.dated {
		return nil, errs.Validation("scope %s is not dated", scope)
	}

	entries, err := readDir(s.dir(scope))
	if err != nil {
		return nil, err
	}

	dates := []string{}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), jsonExt) {
			continue
		}
		date := strings.TrimSuffix(e.Name(), jsonExt)
		if datePattern.MatchString(date) {
			dates = append(dates, date)
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates, nil
}

func readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, errs.StorageIO("read", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, errs.StorageIO("decode", path, err)
	}
	return true, nil
}

func readDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.StorageIO("list", dir, err)
	}
	return entries, nil
}
