package wanikani

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/shared"
)

// Envelope is the outer shape of one record in a collection response: the
// remote id and object type ride here, the fields ride in Data.
type Envelope struct {
	ID            int64           `json:"id"`
	Object        string          `json:"object"`
	URL           string          `json:"url"`
	DataUpdatedAt *string         `json:"data_updated_at"`
	Data          json.RawMessage `json:"data"`
}

// page is the paginated collection wrapper returned by every collection endpoint.
type page struct {
	Object string `json:"object"`
	Pages  struct {
		NextURL     *string `json:"next_url"`
		PreviousURL *string `json:"previous_url"`
		PerPage     int     `json:"per_page"`
	} `json:"pages"`
	TotalCount int        `json:"total_count"`
	Data       []Envelope `json:"data"`
}

// userEnvelope is the shape of the /user endpoint, which is not paginated.
type userEnvelope struct {
	Object string          `json:"object"`
	Data   json.RawMessage `json:"data"`
}

// ParseTimestamp converts an optional upstream ISO-8601 string into a UTC
// time. Trailing-Z forms are normalized to an explicit offset by the RFC 3339
// parser. Nil or empty input maps to nil.
func ParseTimestamp(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, *s)
	if err != nil {
		return nil, fmt.Errorf("%w: bad timestamp %q", shared.ErrMalformedRecord, *s)
	}
	t = t.UTC()
	return &t, nil
}

// UserRecord is the normalized profile payload from /user.
type UserRecord struct {
	Username                    string
	Level                       int
	ProfileURL                  *string
	StartedAt                   *time.Time
	SubscriptionActive          bool
	SubscriptionType            *string
	SubscriptionMaxLevelGranted *int
	SubscriptionPeriodEndsAt    *time.Time
}

type rawSubscription struct {
	Active          bool    `json:"active"`
	Type            string  `json:"type"`
	MaxLevelGranted int     `json:"max_level_granted"`
	PeriodEndsAt    *string `json:"period_ends_at"`
}

type rawUser struct {
	Username     *string          `json:"username"`
	Level        *int             `json:"level"`
	ProfileURL   *string          `json:"profile_url"`
	StartedAt    *string          `json:"started_at"`
	Subscription *rawSubscription `json:"subscription"`
}

// NormalizeUser parses the /user data body into a [UserRecord].
func NormalizeUser(data json.RawMessage) (*UserRecord, error) {
	var raw rawUser
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedRecord, err)
	}
	if raw.Username == nil || raw.Level == nil {
		return nil, fmt.Errorf("%w: user payload missing username or level", shared.ErrMalformedRecord)
	}

	rec := &UserRecord{
		Username:   *raw.Username,
		Level:      *raw.Level,
		ProfileURL: raw.ProfileURL,
	}

	var err error
	if rec.StartedAt, err = ParseTimestamp(raw.StartedAt); err != nil {
		return nil, err
	}

	if sub := raw.Subscription; sub != nil {
		rec.SubscriptionActive = sub.Active
		rec.SubscriptionType = &sub.Type
		rec.SubscriptionMaxLevelGranted = &sub.MaxLevelGranted
		if rec.SubscriptionPeriodEndsAt, err = ParseTimestamp(sub.PeriodEndsAt); err != nil {
			return nil, err
		}
	}

	return rec, nil
}

// AssignmentRecord is the normalized shape of one /assignments record.
type AssignmentRecord struct {
	ID            int64
	SubjectID     int64
	SubjectType   models.SubjectType
	SrsStage      int
	UnlockedAt    *time.Time
	StartedAt     *time.Time
	PassedAt      *time.Time
	BurnedAt      *time.Time
	AvailableAt   *time.Time
	ResurrectedAt *time.Time
	Hidden        bool
}

type rawAssignment struct {
	ID            int64   `json:"id"`
	SubjectID     *int64  `json:"subject_id"`
	SubjectType   *string `json:"subject_type"`
	SrsStage      *int    `json:"srs_stage"`
	UnlockedAt    *string `json:"unlocked_at"`
	StartedAt     *string `json:"started_at"`
	PassedAt      *string `json:"passed_at"`
	BurnedAt      *string `json:"burned_at"`
	AvailableAt   *string `json:"available_at"`
	ResurrectedAt *string `json:"resurrected_at"`
	Hidden        bool    `json:"hidden"`
}

// NormalizeAssignment flattens an envelope into an [AssignmentRecord].
//
// The envelope id wins; historical payloads that carry the id inside the body
// are still accepted. A record with no id anywhere, or without subject_id,
// subject_type or srs_stage, is malformed.
func NormalizeAssignment(env Envelope) (*AssignmentRecord, error) {
	body := env.Data
	if len(body) == 0 {
		body = []byte("{}")
	}

	var raw rawAssignment
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedRecord, err)
	}

	id := env.ID
	if id == 0 {
		id = raw.ID
	}
	if id == 0 {
		return nil, fmt.Errorf("%w: assignment without id", shared.ErrMalformedRecord)
	}
	if raw.SubjectID == nil || raw.SubjectType == nil || raw.SrsStage == nil {
		return nil, fmt.Errorf("%w: assignment %d missing required fields", shared.ErrMalformedRecord, id)
	}

	rec := &AssignmentRecord{
		ID:          id,
		SubjectID:   *raw.SubjectID,
		SubjectType: models.SubjectType(*raw.SubjectType),
		SrsStage:    *raw.SrsStage,
		Hidden:      raw.Hidden,
	}

	var err error
	if rec.UnlockedAt, err = ParseTimestamp(raw.UnlockedAt); err != nil {
		return nil, err
	}
	if rec.StartedAt, err = ParseTimestamp(raw.StartedAt); err != nil {
		return nil, err
	}
	if rec.PassedAt, err = ParseTimestamp(raw.PassedAt); err != nil {
		return nil, err
	}
	if rec.BurnedAt, err = ParseTimestamp(raw.BurnedAt); err != nil {
		return nil, err
	}
	if rec.AvailableAt, err = ParseTimestamp(raw.AvailableAt); err != nil {
		return nil, err
	}
	if rec.ResurrectedAt, err = ParseTimestamp(raw.ResurrectedAt); err != nil {
		return nil, err
	}

	return rec, nil
}

// ReviewStatisticRecord is the normalized shape of one /review_statistics record.
type ReviewStatisticRecord struct {
	ID                   int64
	SubjectID            int64
	SubjectType          models.SubjectType
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
	DataUpdatedAt        *time.Time
}

type rawReviewStatistic struct {
	ID                   int64   `json:"id"`
	SubjectID            *int64  `json:"subject_id"`
	SubjectType          *string `json:"subject_type"`
	MeaningCorrect       int     `json:"meaning_correct"`
	MeaningIncorrect     int     `json:"meaning_incorrect"`
	MeaningMaxStreak     int     `json:"meaning_max_streak"`
	MeaningCurrentStreak int     `json:"meaning_current_streak"`
	ReadingCorrect       int     `json:"reading_correct"`
	ReadingIncorrect     int     `json:"reading_incorrect"`
	ReadingMaxStreak     int     `json:"reading_max_streak"`
	ReadingCurrentStreak int     `json:"reading_current_streak"`
	PercentageCorrect    int     `json:"percentage_correct"`
	Hidden               bool    `json:"hidden"`
	CreatedAt            *string `json:"created_at"`
}

// NormalizeReviewStatistic flattens an envelope into a [ReviewStatisticRecord].
//
// percentage_correct is recomputed upstream and trusted as given.
func NormalizeReviewStatistic(env Envelope) (*ReviewStatisticRecord, error) {
	body := env.Data
	if len(body) == 0 {
		body = []byte("{}")
	}

	var raw rawReviewStatistic
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedRecord, err)
	}

	id := env.ID
	if id == 0 {
		id = raw.ID
	}
	if id == 0 {
		return nil, fmt.Errorf("%w: review statistic without id", shared.ErrMalformedRecord)
	}
	if raw.SubjectID == nil || raw.SubjectType == nil {
		return nil, fmt.Errorf("%w: review statistic %d missing subject", shared.ErrMalformedRecord, id)
	}

	rec := &ReviewStatisticRecord{
		ID:                   id,
		SubjectID:            *raw.SubjectID,
		SubjectType:          models.SubjectType(*raw.SubjectType),
		MeaningCorrect:       raw.MeaningCorrect,
		MeaningIncorrect:     raw.MeaningIncorrect,
		MeaningMaxStreak:     raw.MeaningMaxStreak,
		MeaningCurrentStreak: raw.MeaningCurrentStreak,
		ReadingCorrect:       raw.ReadingCorrect,
		ReadingIncorrect:     raw.ReadingIncorrect,
		ReadingMaxStreak:     raw.ReadingMaxStreak,
		ReadingCurrentStreak: raw.ReadingCurrentStreak,
		PercentageCorrect:    raw.PercentageCorrect,
		Hidden:               raw.Hidden,
	}

	var err error
	if rec.DataUpdatedAt, err = ParseTimestamp(env.DataUpdatedAt); err != nil {
		return nil, err
	}

	return rec, nil
}

// SubjectRecord is the normalized shape of one /subjects record. The object
// type and data_updated_at come from the envelope, everything else from the body.
type SubjectRecord struct {
	ID                     int64
	ObjectType             models.SubjectType
	Level                  int
	Slug                   string
	Characters             *string
	Meanings               string
	Readings               *string
	ComponentSubjectIDs    *string
	AmalgamationSubjectIDs *string
	DocumentURL            string
	HiddenAt               *time.Time
	DataUpdatedAt          *time.Time
}

type rawSubject struct {
	ID                     int64           `json:"id"`
	Level                  *int            `json:"level"`
	Slug                   *string         `json:"slug"`
	Characters             *string         `json:"characters"`
	Meanings               json.RawMessage `json:"meanings"`
	Readings               json.RawMessage `json:"readings"`
	ComponentSubjectIDs    json.RawMessage `json:"component_subject_ids"`
	AmalgamationSubjectIDs json.RawMessage `json:"amalgamation_subject_ids"`
	DocumentURL            *string         `json:"document_url"`
	HiddenAt               *string         `json:"hidden_at"`
}

// rawJSONString returns the raw JSON verbatim as a string, or nil when absent
// or an explicit null.
func rawJSONString(raw json.RawMessage) *string {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	s := string(raw)
	return &s
}

// NormalizeSubject flattens an envelope into a [SubjectRecord].
func NormalizeSubject(env Envelope) (*SubjectRecord, error) {
	body := env.Data
	if len(body) == 0 {
		body = []byte("{}")
	}

	var raw rawSubject
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrMalformedRecord, err)
	}

	id := env.ID
	if id == 0 {
		id = raw.ID
	}
	if id == 0 {
		return nil, fmt.Errorf("%w: subject without id", shared.ErrMalformedRecord)
	}
	if env.Object == "" || raw.Level == nil || raw.Slug == nil {
		return nil, fmt.Errorf("%w: subject %d missing required fields", shared.ErrMalformedRecord, id)
	}

	rec := &SubjectRecord{
		ID:                     id,
		ObjectType:             models.SubjectType(env.Object),
		Level:                  *raw.Level,
		Slug:                   *raw.Slug,
		Characters:             raw.Characters,
		Meanings:               "[]",
		Readings:               rawJSONString(raw.Readings),
		ComponentSubjectIDs:    rawJSONString(raw.ComponentSubjectIDs),
		AmalgamationSubjectIDs: rawJSONString(raw.AmalgamationSubjectIDs),
	}
	if m := rawJSONString(raw.Meanings); m != nil {
		rec.Meanings = *m
	}
	if raw.DocumentURL != nil {
		rec.DocumentURL = *raw.DocumentURL
	}

	var err error
	if rec.HiddenAt, err = ParseTimestamp(raw.HiddenAt); err != nil {
		return nil, err
	}
	if rec.DataUpdatedAt, err = ParseTimestamp(env.DataUpdatedAt); err != nil {
		return nil, err
	}

	return rec, nil
}
