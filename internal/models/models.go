package models

import "time"

// SubjectType enumerates the kinds of learnable items in the catalog.
type SubjectType string

const (
	SubjectRadical        SubjectType = "radical"
	SubjectKanji          SubjectType = "kanji"
	SubjectVocabulary     SubjectType = "vocabulary"
	SubjectKanaVocabulary SubjectType = "kana_vocabulary"
)

// SyncStatus enumerates the terminal and transient states of a sync attempt.
type SyncStatus string

const (
	SyncInProgress SyncStatus = "in_progress"
	SyncSuccess    SyncStatus = "success"
	SyncError      SyncStatus = "error"
)

// SyncType enumerates how a sync attempt was initiated.
type SyncType string

const (
	SyncFull        SyncType = "full"
	SyncIncremental SyncType = "incremental"
	SyncManual      SyncType = "manual"
)

// SRS stage boundaries. Stage 0 is a lesson (not yet started), stages 1-8
// are review stages with widening intervals, stage 9 is burned.
const (
	SrsStageLesson = 0
	SrsStageBurned = 9
)

// User holds a learner's identity, upstream credential and cached profile.
//
// WaniKaniAPIKey and APIKeyHash are each globally unique; the plaintext of the
// locally issued key is returned once at registration and never stored.
type User struct {
	ID                          int64
	WaniKaniAPIKey              string
	APIKeyHash                  string
	Username                    string
	Level                       int
	ProfileURL                  *string
	StartedAt                   *time.Time
	SubscriptionActive          bool
	SubscriptionType            *string
	SubscriptionMaxLevelGranted *int
	SubscriptionPeriodEndsAt    *time.Time
	CreatedAt                   time.Time
	LastSync                    *time.Time
}

// Subject is one entry in the global catalog of learnable items.
//
// Meanings and Readings hold the upstream JSON arrays verbatim; the pipeline
// never interprets them beyond storage.
type Subject struct {
	ID                     int64
	ObjectType             SubjectType
	Level                  int
	Slug                   string
	Characters             *string
	Meanings               string
	Readings               *string
	ComponentSubjectIDs    *string
	AmalgamationSubjectIDs *string
	DocumentURL            string
	HiddenAt               *time.Time
	CreatedAt              time.Time
	DataUpdatedAt          *time.Time
}

// Assignment is a user's progress record for one subject.
type Assignment struct {
	ID            int64
	UserID        int64
	SubjectID     int64
	SubjectType   SubjectType
	SrsStage      int
	UnlockedAt    *time.Time
	StartedAt     *time.Time
	PassedAt      *time.Time
	BurnedAt      *time.Time
	AvailableAt   *time.Time
	ResurrectedAt *time.Time
	Hidden        bool
	CreatedAt     time.Time
	DataUpdatedAt *time.Time
}

// Lesson reports whether the assignment is still waiting for its first lesson.
func (a *Assignment) Lesson() bool {
	return a.SrsStage == SrsStageLesson
}

// Burned reports whether the assignment reached the final SRS stage.
func (a *Assignment) Burned() bool {
	return a.SrsStage >= SrsStageBurned
}

// AvailableFor reports whether the assignment is reviewable at the given
// instant. A nil AvailableAt means immediately available.
func (a *Assignment) AvailableFor(now time.Time) bool {
	if a.Lesson() || a.Burned() || a.Hidden {
		return false
	}
	return a.AvailableAt == nil || !a.AvailableAt.After(now)
}

// ReviewStatistic holds per-subject accuracy counters for one user.
type ReviewStatistic struct {
	ID                   int64
	UserID               int64
	SubjectID            int64
	SubjectType          SubjectType
	MeaningCorrect       int
	MeaningIncorrect     int
	MeaningMaxStreak     int
	MeaningCurrentStreak int
	ReadingCorrect       int
	ReadingIncorrect     int
	ReadingMaxStreak     int
	ReadingCurrentStreak int
	PercentageCorrect    int
	Hidden               bool
	CreatedAt            time.Time
	DataUpdatedAt        *time.Time
}

// Leech thresholds. An item qualifies when recall accuracy stays below
// leechMaxPercentage and the combined error count exceeds leechMinIncorrect.
const (
	leechMaxPercentage = 70
	leechMinIncorrect  = 3
)

// Leech reports whether this statistic marks its subject as a leech, an
// item with persistently poor recall that needs extra practice.
func (r *ReviewStatistic) Leech() bool {
	return r.PercentageCorrect < leechMaxPercentage &&
		r.MeaningIncorrect+r.ReadingIncorrect > leechMinIncorrect
}

// IncorrectTotal returns the combined meaning and reading error count.
func (r *ReviewStatistic) IncorrectTotal() int {
	return r.MeaningIncorrect + r.ReadingIncorrect
}

// SyncLog is the durable record of one sync attempt.
//
// Created in [SyncInProgress] when the attempt starts and finalized exactly
// once into [SyncSuccess] or [SyncError]; rows are never deleted.
type SyncLog struct {
	ID             int64
	UserID         int64
	SyncType       SyncType
	Status         SyncStatus
	RecordsUpdated int
	ErrorMessage   *string
	StartedAt      time.Time
	CompletedAt    *time.Time
}
