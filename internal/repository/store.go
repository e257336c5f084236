// Package repository persists the whole bot state as a single JSON
// document. The same document is the payload mirrored to GitHub, so every
// mutation goes through Save and the serialized form stays stable.
package repository

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/internal/model"
)

var (
	ErrIdeaNotFound   = errors.New("idea not found")
	ErrResultNotFound = errors.New("result not found")
)

// idLength is the fixed width of generated idea identifiers.
const idLength = 20

// Store owns the on-disk database document. All exported methods are
// safe for concurrent use.
type Store struct {
	mu   sync.Mutex
	path string
	db   *model.Database
}

// NewStore loads the document at path, treating a missing file as an
// empty database.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path, db: model.NewDatabase()}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			klog.V(6).Infof("database file %s not found, starting empty", path)
			return s, nil
		}
		return nil, fmt.Errorf("failed to read database: %w", err)
	}
	if err := json.Unmarshal(data, s.db); err != nil {
		return nil, fmt.Errorf("failed to parse database: %w", err)
	}
	if s.db.Users == nil {
		s.db.Users = make(map[string]*model.User)
	}
	if s.db.Ideas == nil {
		s.db.Ideas = make(map[string]*model.IdeaSubmission)
	}
	if s.db.Results == nil {
		s.db.Results = make(map[string]*model.ResultRecord)
	}
	return s, nil
}

// save writes the document atomically via a temp file in the same
// directory. Callers must hold s.mu.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.db, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize database: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write database: %w", err)
	}
	return os.Rename(tmp, s.path)
}

// nextIdeaID builds an identifier of the form idea_YYYYMMDD_<n> padded to a
// fixed width with trailing zeros, where n counts submissions made that day.
// Callers must hold s.mu.
func (s *Store) nextIdeaID(now time.Time) string {
	day := now.Format("20060102")
	prefix := "idea_" + day + "_"
	n := 1
	for id := range s.db.Ideas {
		if strings.HasPrefix(id, prefix) {
			n++
		}
	}
	// zero-padding can alias different counters (1 padded to six zeros
	// equals 10 padded to five), so probe until the id is free
	for {
		id := fmt.Sprintf("%s%d", prefix, n)
		if len(id) < idLength {
			id += strings.Repeat("0", idLength-len(id))
		}
		if _, ok := s.db.Ideas[id]; !ok {
			return id
		}
		n++
	}
}

// resultIDFor derives the result identifier from its idea: the idea_
// prefix is swapped for result_ and the rest is kept verbatim.
func resultIDFor(ideaID string) string {
	return "result_" + strings.TrimPrefix(ideaID, "idea_")
}

// RecordIdea registers the user on first contact and stores the submission.
func (s *Store) RecordIdea(userID, content string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.db.Users[userID]; !ok {
		s.db.Users[userID] = &model.User{CreatedAt: now}
	}
	id := s.nextIdeaID(now)
	s.db.Ideas[id] = &model.IdeaSubmission{
		UserID:      userID,
		Content:     content,
		SubmittedAt: now,
	}
	if err := s.save(); err != nil {
		return "", err
	}
	klog.V(6).Infof("recorded idea %s for user %s", id, userID)
	return id, nil
}

// RecordResult stores the pipeline outcome for an idea and flips the idea
// to processed in the same write.
func (s *Store) RecordResult(ideaID string, bundle *model.EnhancementBundle, mindmap string, now time.Time) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idea, ok := s.db.Ideas[ideaID]
	if !ok {
		return "", ErrIdeaNotFound
	}
	resultID := resultIDFor(ideaID)
	s.db.Results[resultID] = &model.ResultRecord{
		IdeaID:          ideaID,
		Analysis:        bundle.Analysis,
		Evaluation:      bundle.Evaluation,
		Expansion:       bundle.Expansion,
		Feasibility:     bundle.Feasibility,
		EnhancedContent: bundle.FinalEnhancement,
		MindmapContent:  mindmap,
		CreatedAt:       now,
	}
	idea.Processed = true
	if err := s.save(); err != nil {
		return "", err
	}
	klog.V(6).Infof("recorded result %s for idea %s", resultID, ideaID)
	return resultID, nil
}

// UnprocessedIdeas returns pending submissions with their map key filled
// into the ID field.
func (s *Store) UnprocessedIdeas() []*model.IdeaSubmission {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ideas []*model.IdeaSubmission
	for id, idea := range s.db.Ideas {
		if !idea.Processed {
			copied := *idea
			copied.ID = id
			ideas = append(ideas, &copied)
		}
	}
	return ideas
}

// UnsentResults returns results not yet delivered, keyed by result ID.
func (s *Store) UnsentResults() map[string]*model.ResultRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[string]*model.ResultRecord)
	for id, r := range s.db.Results {
		if !r.Sent {
			copied := *r
			out[id] = &copied
		}
	}
	return out
}

func (s *Store) FindResult(resultID string) (*model.ResultRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.db.Results[resultID]
	if !ok {
		return nil, ErrResultNotFound
	}
	copied := *r
	return &copied, nil
}

// FindIdea returns the submission with its map key filled into ID.
func (s *Store) FindIdea(ideaID string) (*model.IdeaSubmission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idea, ok := s.db.Ideas[ideaID]
	if !ok {
		return nil, ErrIdeaNotFound
	}
	copied := *idea
	copied.ID = ideaID
	return &copied, nil
}

// FindIdeaUser resolves the submitting user of an idea.
func (s *Store) FindIdeaUser(ideaID string) (string, error) {
	idea, err := s.FindIdea(ideaID)
	if err != nil {
		return "", err
	}
	return idea.UserID, nil
}

func (s *Store) MarkResultSent(resultID string) error {
	return s.updateResult(resultID, func(r *model.ResultRecord) { r.Sent = true })
}

func (s *Store) MarkImageGenerated(resultID string) error {
	return s.updateResult(resultID, func(r *model.ResultRecord) { r.ImageGenerated = true })
}

func (s *Store) updateResult(resultID string, mutate func(*model.ResultRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.db.Results[resultID]
	if !ok {
		return ErrResultNotFound
	}
	mutate(r)
	return s.save()
}

// Snapshot returns the serialized document, byte-identical to the file on
// disk. Used as the GitHub mirror payload.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.MarshalIndent(s.db, "", "  ")
}
