package wanikani

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/wkmcp/internal/models"
	"github.com/desertthunder/wkmcp/internal/shared"
)

func strp(s string) *string { return &s }

func TestParseTimestamp(t *testing.T) {
	t.Run("Nil", func(t *testing.T) {
		ts, err := ParseTimestamp(nil)
		if err != nil || ts != nil {
			t.Errorf("nil input should map to nil, got %v, %v", ts, err)
		}
	})

	t.Run("Empty", func(t *testing.T) {
		ts, err := ParseTimestamp(strp(""))
		if err != nil || ts != nil {
			t.Errorf("empty input should map to nil, got %v, %v", ts, err)
		}
	})

	t.Run("ZuluNormalizedToUTC", func(t *testing.T) {
		ts, err := ParseTimestamp(strp("2025-03-01T09:30:00Z"))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		want := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
		if !ts.Equal(want) {
			t.Errorf("expected %v, got %v", want, ts)
		}
	})

	t.Run("OffsetNormalizedToUTC", func(t *testing.T) {
		ts, err := ParseTimestamp(strp("2025-03-01T18:30:00+09:00"))
		if err != nil {
			t.Fatalf("parse failed: %v", err)
		}
		if ts.Location() != time.UTC {
			t.Errorf("expected UTC location, got %v", ts.Location())
		}
		if ts.Hour() != 9 {
			t.Errorf("expected 09:30 UTC, got %v", ts)
		}
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := ParseTimestamp(strp("yesterday"))
		if !errors.Is(err, shared.ErrMalformedRecord) {
			t.Errorf("expected ErrMalformedRecord, got %v", err)
		}
	})
}

func TestNormalizeAssignment(t *testing.T) {
	t.Run("EnvelopeIDWins", func(t *testing.T) {
		env := Envelope{
			ID:     42,
			Object: "assignment",
			Data:   json.RawMessage(`{"id": 999, "subject_id": 7, "subject_type": "kanji", "srs_stage": 3, "available_at": "2025-05-01T00:00:00Z"}`),
		}

		rec, err := NormalizeAssignment(env)
		if err != nil {
			t.Fatalf("normalize failed: %v", err)
		}
		if rec.ID != 42 {
			t.Errorf("envelope id should win, got %d", rec.ID)
		}
		if rec.SubjectID != 7 || rec.SubjectType != models.SubjectKanji || rec.SrsStage != 3 {
			t.Errorf("unexpected record: %+v", rec)
		}
		if rec.AvailableAt == nil {
			t.Error("available_at should be parsed")
		}
	})

	t.Run("BodyIDFallback", func(t *testing.T) {
		env := Envelope{
			Data: json.RawMessage(`{"id": 77, "subject_id": 7, "subject_type": "radical", "srs_stage": 0}`),
		}

		rec, err := NormalizeAssignment(env)
		if err != nil {
			t.Fatalf("normalize failed: %v", err)
		}
		if rec.ID != 77 {
			t.Errorf("expected body id fallback, got %d", rec.ID)
		}
	})

	t.Run("MissingID", func(t *testing.T) {
		env := Envelope{Data: json.RawMessage(`{"subject_id": 7, "subject_type": "kanji", "srs_stage": 1}`)}
		if _, err := NormalizeAssignment(env); !errors.Is(err, shared.ErrMalformedRecord) {
			t.Errorf("expected ErrMalformedRecord, got %v", err)
		}
	})

	t.Run("MissingRequiredFields", func(t *testing.T) {
		env := Envelope{ID: 5, Data: json.RawMessage(`{"subject_id": 7}`)}
		if _, err := NormalizeAssignment(env); !errors.Is(err, shared.ErrMalformedRecord) {
			t.Errorf("expected ErrMalformedRecord, got %v", err)
		}
	})

	t.Run("ZeroSrsStageIsValid", func(t *testing.T) {
		env := Envelope{ID: 5, Data: json.RawMessage(`{"subject_id": 7, "subject_type": "kanji", "srs_stage": 0}`)}
		rec, err := NormalizeAssignment(env)
		if err != nil {
			t.Fatalf("srs_stage 0 must not be treated as missing: %v", err)
		}
		if rec.SrsStage != 0 {
			t.Errorf("expected stage 0, got %d", rec.SrsStage)
		}
	})
}

func TestNormalizeReviewStatistic(t *testing.T) {
	t.Run("CountersDefaultToZero", func(t *testing.T) {
		env := Envelope{
			ID:            9,
			DataUpdatedAt: strp("2025-04-01T00:00:00Z"),
			Data:          json.RawMessage(`{"subject_id": 3, "subject_type": "vocabulary"}`),
		}

		rec, err := NormalizeReviewStatistic(env)
		if err != nil {
			t.Fatalf("normalize failed: %v", err)
		}
		if rec.MeaningCorrect != 0 || rec.PercentageCorrect != 0 {
			t.Errorf("absent counters should be zero: %+v", rec)
		}
		if rec.DataUpdatedAt == nil {
			t.Error("data_updated_at should come from the envelope")
		}
	})

	t.Run("MissingSubject", func(t *testing.T) {
		env := Envelope{ID: 9, Data: json.RawMessage(`{"meaning_correct": 10}`)}
		if _, err := NormalizeReviewStatistic(env); !errors.Is(err, shared.ErrMalformedRecord) {
			t.Errorf("expected ErrMalformedRecord, got %v", err)
		}
	})
}

func TestNormalizeSubject(t *testing.T) {
	t.Run("ObjectFromEnvelope", func(t *testing.T) {
		env := Envelope{
			ID:     440,
			Object: "kanji",
			Data: json.RawMessage(`{
				"level": 5, "slug": "大", "characters": "大",
				"meanings": [{"meaning": "Big", "primary": true}],
				"readings": [{"reading": "たい", "primary": true}],
				"component_subject_ids": [1],
				"document_url": "https://www.wanikani.com/kanji/%E5%A4%A7"
			}`),
		}

		rec, err := NormalizeSubject(env)
		if err != nil {
			t.Fatalf("normalize failed: %v", err)
		}
		if rec.ObjectType != models.SubjectKanji {
			t.Errorf("object type should come from the envelope, got %v", rec.ObjectType)
		}
		if rec.Level != 5 || rec.Slug != "大" {
			t.Errorf("unexpected record: %+v", rec)
		}
		if rec.Readings == nil {
			t.Error("readings should be kept verbatim")
		} else if !json.Valid([]byte(*rec.Readings)) {
			t.Errorf("readings should stay valid JSON: %q", *rec.Readings)
		}
	})

	t.Run("RadicalWithoutReadings", func(t *testing.T) {
		env := Envelope{
			ID:     1,
			Object: "radical",
			Data:   json.RawMessage(`{"level": 1, "slug": "ground", "meanings": [{"meaning": "Ground"}], "readings": null}`),
		}

		rec, err := NormalizeSubject(env)
		if err != nil {
			t.Fatalf("normalize failed: %v", err)
		}
		if rec.Readings != nil {
			t.Errorf("null readings should map to nil, got %q", *rec.Readings)
		}
	})

	t.Run("MissingObject", func(t *testing.T) {
		env := Envelope{ID: 1, Data: json.RawMessage(`{"level": 1, "slug": "ground"}`)}
		if _, err := NormalizeSubject(env); !errors.Is(err, shared.ErrMalformedRecord) {
			t.Errorf("expected ErrMalformedRecord, got %v", err)
		}
	})
}

func TestNormalizeUser(t *testing.T) {
	t.Run("MissingUsername", func(t *testing.T) {
		_, err := NormalizeUser(json.RawMessage(`{"level": 3}`))
		if !errors.Is(err, shared.ErrMalformedRecord) {
			t.Errorf("expected ErrMalformedRecord, got %v", err)
		}
	})

	t.Run("NoSubscriptionBlock", func(t *testing.T) {
		rec, err := NormalizeUser(json.RawMessage(`{"username": "koichi", "level": 60}`))
		if err != nil {
			t.Fatalf("normalize failed: %v", err)
		}
		if rec.SubscriptionActive || rec.SubscriptionType != nil {
			t.Errorf("absent subscription should stay zero valued: %+v", rec)
		}
	})
}
