package model

import (
	"time"
)

// IdeaSubmission is an inbound idea as received from the webhook.
// Immutable once created.
type IdeaSubmission struct {
	ID          string    `json:"-"`
	UserID      string    `json:"user_id"`
	Content     string    `json:"content"`
	SubmittedAt time.Time `json:"created_at"`
	Processed   bool      `json:"processed"`
}

// EnhancementBundle is the accumulated output of the five pipeline steps.
// Every field is populated even on partial failure; failing steps carry a
// placeholder string instead of generated text.
type EnhancementBundle struct {
	Analysis         string `json:"analysis"`
	Evaluation       string `json:"evaluation"`
	Expansion        string `json:"expansion"`
	Feasibility      string `json:"feasibility"`
	FinalEnhancement string `json:"enhanced_content"`
	Error            string `json:"error,omitempty"`
}

// ThinkingProcess is the per-user transient detail kept for the
// 「詳細を見る」 follow-up. Overwritten by each new submission, never persisted.
type ThinkingProcess struct {
	Analysis    string
	Evaluation  string
	Expansion   string
	Feasibility string
}

func (b *EnhancementBundle) ThinkingProcess() *ThinkingProcess {
	return &ThinkingProcess{
		Analysis:    b.Analysis,
		Evaluation:  b.Evaluation,
		Expansion:   b.Expansion,
		Feasibility: b.Feasibility,
	}
}

// ResultRecord is the persisted outcome of one pipeline run.
type ResultRecord struct {
	IdeaID           string    `json:"idea_id"`
	Analysis         string    `json:"analysis,omitempty"`
	Evaluation       string    `json:"evaluation,omitempty"`
	Expansion        string    `json:"expansion,omitempty"`
	Feasibility      string    `json:"feasibility,omitempty"`
	EnhancedContent  string    `json:"enhanced_content"`
	MindmapContent   string    `json:"mindmap_content"`
	ImageGenerated   bool      `json:"image_generated,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	Sent             bool      `json:"sent"`
}

type User struct {
	CreatedAt time.Time `json:"created_at"`
}

// Database is the whole JSON document persisted to data/database.json and
// mirrored to GitHub. Keys are generated identifiers.
type Database struct {
	Users   map[string]*User           `json:"users"`
	Ideas   map[string]*IdeaSubmission `json:"ideas"`
	Results map[string]*ResultRecord   `json:"results"`
}

func NewDatabase() *Database {
	return &Database{
		Users:   make(map[string]*User),
		Ideas:   make(map[string]*IdeaSubmission),
		Results: make(map[string]*ResultRecord),
	}
}
