// Package staging validates and holds candidate files before transport.
package staging

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/shopstack/shopsync/internal/models"
)

// RejectedTypeMessage is the session-level error set when any candidate
// fails the type check. Valid files in the same batch still stage.
const RejectedTypeMessage = "Only CSV files are allowed"

// Candidate is a raw file offered for staging.
type Candidate struct {
	Path      string
	Name      string
	MediaType string // declared media type, may be empty
	SizeBytes int64
}

// FromPath builds a Candidate from a file on disk.
func FromPath(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, err
	}
	return Candidate{
		Path:      path,
		Name:      filepath.Base(path),
		SizeBytes: info.Size(),
	}, nil
}

// Result is the outcome of a Stage call.
type Result struct {
	// Accepted files are staged immediately.
	Accepted []models.StagedFile
	// Pending files exceed the size threshold and need ConfirmPending
	// before they join the staged set.
	Pending []models.StagedFile
	// RejectedReason is set when any candidate failed validation. It does
	// not block the batch's valid files.
	RejectedReason string
}

// Stager holds staged files for one upload session. It owns staged files
// exclusively until they are handed to the transport engine, which only
// borrows them.
type Stager struct {
	mu        sync.Mutex
	threshold int64
	staged    []models.StagedFile
	pending   []models.StagedFile
}

// NewStager creates a stager with the given confirmation threshold in bytes.
func NewStager(threshold int64) *Stager {
	return &Stager{threshold: threshold}
}

// Stage validates candidates in order. CSV files at or below the threshold
// stage immediately; oversized CSV files go to the pending-confirmation set;
// non-CSV candidates are rejected without blocking the rest of the batch.
func (s *Stager) Stage(candidates []Candidate) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res Result
	for _, c := range candidates {
		if !isCSV(c) {
			res.RejectedReason = RejectedTypeMessage
			continue
		}

		staged := models.StagedFile{
			ID:        stagedID(c.Name),
			Name:      c.Name,
			Path:      c.Path,
			SizeBytes: c.SizeBytes,
		}

		if c.SizeBytes > s.threshold {
			s.pending = append(s.pending, staged)
			res.Pending = append(res.Pending, staged)
			continue
		}

		s.staged = append(s.staged, staged)
		res.Accepted = append(res.Accepted, staged)
	}

	return res
}

// ConfirmPending moves the entire pending batch into the staged set and
// returns it. Confirmation is all-or-nothing; there is no per-file accept.
func (s *Stager) ConfirmPending() []models.StagedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	confirmed := s.pending
	s.staged = append(s.staged, confirmed...)
	s.pending = nil
	return confirmed
}

// CancelPending discards the pending batch, leaving the staged set unchanged.
func (s *Stager) CancelPending() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = nil
}

// Remove deletes a staged file by id. Idempotent if the id is absent.
func (s *Stager) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, f := range s.staged {
		if f.ID == id {
			s.staged = append(s.staged[:i], s.staged[i+1:]...)
			return
		}
	}
}

// Staged returns a copy of the current staged set.
func (s *Stager) Staged() []models.StagedFile {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.StagedFile, len(s.staged))
	copy(out, s.staged)
	return out
}

// PendingCount returns the number of files awaiting confirmation.
func (s *Stager) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Clear drops all staged and pending files. Called when an upload session
// completes or aborts.
func (s *Stager) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.staged = nil
	s.pending = nil
}

// isCSV accepts a declared CSV media type or a .csv name, case-insensitive.
func isCSV(c Candidate) bool {
	if strings.EqualFold(c.MediaType, "text/csv") {
		return true
	}
	return strings.EqualFold(filepath.Ext(c.Name), ".csv")
}

// stagedID derives a session-unique id from the file name. Two files with
// the same name get distinct ids so the UI can address duplicates.
func stagedID(name string) string {
	return name + "-" + uuid.NewString()[:8]
}
