package sync

import (
	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/wanikani"
)

// assignmentModel maps a normalized upstream assignment onto a store row for
// the given user. The remote id becomes the local primary key.
func assignmentModel(userID int64, rec *wanikani.AssignmentRecord) *models.Assignment {
	return &models.Assignment{
		ID:            rec.ID,
		UserID:        userID,
		SubjectID:     rec.SubjectID,
		SubjectType:   rec.SubjectType,
		SrsStage:      rec.SrsStage,
		UnlockedAt:    rec.UnlockedAt,
		StartedAt:     rec.StartedAt,
		PassedAt:      rec.PassedAt,
		BurnedAt:      rec.BurnedAt,
		AvailableAt:   rec.AvailableAt,
		ResurrectedAt: rec.ResurrectedAt,
		Hidden:        rec.Hidden,
	}
}

// reviewStatisticModel maps a normalized upstream review statistic onto a
// store row for the given user.
func reviewStatisticModel(userID int64, rec *wanikani.ReviewStatisticRecord) *models.ReviewStatistic {
	return &models.ReviewStatistic{
		ID:                   rec.ID,
		UserID:               userID,
		SubjectID:            rec.SubjectID,
		SubjectType:          rec.SubjectType,
		MeaningCorrect:       rec.MeaningCorrect,
		MeaningIncorrect:     rec.MeaningIncorrect,
		MeaningMaxStreak:     rec.MeaningMaxStreak,
		MeaningCurrentStreak: rec.MeaningCurrentStreak,
		ReadingCorrect:       rec.ReadingCorrect,
		ReadingIncorrect:     rec.ReadingIncorrect,
		ReadingMaxStreak:     rec.ReadingMaxStreak,
		ReadingCurrentStreak: rec.ReadingCurrentStreak,
		PercentageCorrect:    rec.PercentageCorrect,
		Hidden:               rec.Hidden,
		DataUpdatedAt:        rec.DataUpdatedAt,
	}
}

// subjectModel maps a normalized catalog record onto a store row. Subjects
// are global, so no user id is involved.
func subjectModel(rec *wanikani.SubjectRecord) *models.Subject {
	return &models.Subject{
		ID:                     rec.ID,
		ObjectType:             rec.ObjectType,
		Level:                  rec.Level,
		Slug:                   rec.Slug,
		Characters:             rec.Characters,
		Meanings:               rec.Meanings,
		Readings:               rec.Readings,
		ComponentSubjectIDs:    rec.ComponentSubjectIDs,
		AmalgamationSubjectIDs: rec.AmalgamationSubjectIDs,
		DocumentURL:            rec.DocumentURL,
		HiddenAt:               rec.HiddenAt,
		DataUpdatedAt:          rec.DataUpdatedAt,
	}
}

// applyProfile copies a fetched profile onto the user row.
func applyProfile(user *models.User, rec *wanikani.UserRecord) {
	user.Username = rec.Username
	user.Level = rec.Level
	user.ProfileURL = rec.ProfileURL
	user.StartedAt = rec.StartedAt
	user.SubscriptionActive = rec.SubscriptionActive
	user.SubscriptionType = rec.SubscriptionType
	user.SubscriptionMaxLevelGranted = rec.SubscriptionMaxLevelGranted
	user.SubscriptionPeriodEndsAt = rec.SubscriptionPeriodEndsAt
}
