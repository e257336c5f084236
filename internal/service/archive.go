// Package service wires the pipeline, persistence and delivery together.
package service

import (
	"context"
	"errors"
	"time"

	"k8s.io/klog/v2"

	"github.com/masapokki/line-night-idea-enhancer/internal/model"
	"github.com/masapokki/line-night-idea-enhancer/internal/pkg/github"
	"github.com/masapokki/line-night-idea-enhancer/internal/repository"
)

// mirrorPath is where the database document lives inside the mirror repo.
const mirrorPath = "data/database.json"

// Mirror is the remote copy of the database document.
type Mirror interface {
	Enabled() bool
	GetFile(ctx context.Context, path string) ([]byte, string, error)
	PutFile(ctx context.Context, path, message string, content []byte, sha string) error
}

// ArchiveService records ideas and results locally and mirrors the whole
// document to GitHub. Mirror failures are logged and swallowed: the local
// write is the source of truth and delivery must not stall on the mirror.
type ArchiveService struct {
	store  *repository.Store
	mirror Mirror
}

func NewArchiveService(store *repository.Store, mirror Mirror) *ArchiveService {
	return &ArchiveService{store: store, mirror: mirror}
}

func (a *ArchiveService) ArchiveIdea(ctx context.Context, userID, content string) (string, error) {
	ideaID, err := a.store.RecordIdea(userID, content, time.Now())
	if err != nil {
		return "", err
	}
	a.mirrorDatabase(ctx, "Add idea "+ideaID)
	return ideaID, nil
}

func (a *ArchiveService) ArchiveResult(ctx context.Context, ideaID string, bundle *model.EnhancementBundle, mindmap string) (string, error) {
	resultID, err := a.store.RecordResult(ideaID, bundle, mindmap, time.Now())
	if err != nil {
		return "", err
	}
	a.mirrorDatabase(ctx, "Add result "+resultID)
	return resultID, nil
}

func (a *ArchiveService) MarkResultSent(ctx context.Context, resultID string) error {
	if err := a.store.MarkResultSent(resultID); err != nil {
		return err
	}
	a.mirrorDatabase(ctx, "Mark result "+resultID+" sent")
	return nil
}

func (a *ArchiveService) MarkImageGenerated(ctx context.Context, resultID string) error {
	if err := a.store.MarkImageGenerated(resultID); err != nil {
		return err
	}
	a.mirrorDatabase(ctx, "Mark result "+resultID+" image generated")
	return nil
}

func (a *ArchiveService) FindResult(resultID string) (*model.ResultRecord, error) {
	return a.store.FindResult(resultID)
}

func (a *ArchiveService) FindIdeaUser(ideaID string) (string, error) {
	return a.store.FindIdeaUser(ideaID)
}

func (a *ArchiveService) UnprocessedIdeas() []*model.IdeaSubmission {
	return a.store.UnprocessedIdeas()
}

func (a *ArchiveService) UnsentResults() map[string]*model.ResultRecord {
	return a.store.UnsentResults()
}

// mirrorDatabase pushes the current document to GitHub, fetching the blob
// SHA first so updates do not conflict. A missing remote file is created.
func (a *ArchiveService) mirrorDatabase(ctx context.Context, message string) {
	if a.mirror == nil || !a.mirror.Enabled() {
		return
	}
	snapshot, err := a.store.Snapshot()
	if err != nil {
		klog.Errorf("failed to snapshot database for mirroring: %v", err)
		return
	}
	_, sha, err := a.mirror.GetFile(ctx, mirrorPath)
	if err != nil && !errors.Is(err, github.ErrNotFound) {
		klog.Errorf("failed to fetch mirror state: %v", err)
		return
	}
	if err := a.mirror.PutFile(ctx, mirrorPath, message, snapshot, sha); err != nil {
		klog.Errorf("failed to mirror database: %v", err)
		return
	}
	klog.V(6).Infof("database mirrored: %s", message)
}
