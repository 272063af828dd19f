package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/joelkehle/macro-onboarding/internal/onboarding"
)

// SQLiteStore persists sessions and completed profiles. The profile tables
// mirror the export shape so other services can query them directly.
type SQLiteStore struct {
	db    *sqlx.DB
	nowFn func() time.Time
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id     TEXT PRIMARY KEY,
	history        TEXT NOT NULL DEFAULT '[]',
	collected_data TEXT NOT NULL DEFAULT '{}',
	is_complete    INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS onboarding_profiles (
	session_id          TEXT PRIMARY KEY,
	gender              TEXT NOT NULL DEFAULT '',
	date_of_birth       TEXT NOT NULL DEFAULT '',
	current_height      REAL NOT NULL DEFAULT 0,
	current_height_unit TEXT NOT NULL DEFAULT 'cm',
	current_weight      REAL NOT NULL DEFAULT 0,
	current_weight_unit TEXT NOT NULL DEFAULT 'kg',
	target_weight       REAL NOT NULL DEFAULT 0,
	target_weight_unit  TEXT NOT NULL DEFAULT 'kg',
	goal                TEXT NOT NULL DEFAULT 'maintain',
	target_speed        TEXT NOT NULL DEFAULT 'normal',
	activity_level      TEXT NOT NULL DEFAULT 'moderate',
	vegan               INTEGER NOT NULL DEFAULT 0,
	dairy_free          INTEGER NOT NULL DEFAULT 0,
	gluten_free         INTEGER NOT NULL DEFAULT 0,
	nut_free            INTEGER NOT NULL DEFAULT 0,
	pescatarian         INTEGER NOT NULL DEFAULT 0,
	saved_at            TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS metabolic_profiles (
	session_id             TEXT PRIMARY KEY,
	daily_calorie_target   REAL NOT NULL DEFAULT 0,
	protein_g              REAL NOT NULL DEFAULT 0,
	carbs_g                REAL NOT NULL DEFAULT 0,
	fats_g                 REAL NOT NULL DEFAULT 0,
	tdee                   REAL NOT NULL DEFAULT 0,
	bmr                    REAL NOT NULL DEFAULT 0,
	estimated_days_to_goal INTEGER NOT NULL DEFAULT 0
);
`

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db, nowFn: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type sessionRow struct {
	ID            string `db:"session_id"`
	History       string `db:"history"`
	CollectedData string `db:"collected_data"`
	Complete      bool   `db:"is_complete"`
	CreatedAt     string `db:"created_at"`
	UpdatedAt     string `db:"updated_at"`
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Record, error) {
	var row sessionRow
	err := s.db.GetContext(ctx, &row, "SELECT session_id, history, collected_data, is_complete, created_at, updated_at FROM sessions WHERE session_id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("get session %s: %w", id, err)
	}
	rec := Record{ID: row.ID, Complete: row.Complete}
	if err := json.Unmarshal([]byte(row.History), &rec.Session.History); err != nil {
		return Record{}, fmt.Errorf("decode history %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(row.CollectedData), &rec.Session.Data); err != nil {
		return Record{}, fmt.Errorf("decode collected data %s: %w", id, err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, row.CreatedAt)
	rec.UpdatedAt, _ = time.Parse(time.RFC3339Nano, row.UpdatedAt)
	return rec, nil
}

func (s *SQLiteStore) Put(ctx context.Context, rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("session id is required")
	}
	stamp(&rec, s.nowFn().UTC())
	history, err := json.Marshal(rec.Session.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	data, err := json.Marshal(rec.Session.Data)
	if err != nil {
		return fmt.Errorf("encode collected data: %w", err)
	}
	// created_at is kept from the first insert.
	_, err = s.db.NamedExecContext(ctx, `
INSERT INTO sessions (session_id, history, collected_data, is_complete, created_at, updated_at)
VALUES (:session_id, :history, :collected_data, :is_complete, :created_at, :updated_at)
ON CONFLICT(session_id) DO UPDATE SET
	history = excluded.history,
	collected_data = excluded.collected_data,
	is_complete = excluded.is_complete,
	updated_at = excluded.updated_at`, sessionRow{
		ID:            rec.ID,
		History:       string(history),
		CollectedData: string(data),
		Complete:      rec.Complete,
		CreatedAt:     rec.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:     rec.UpdatedAt.Format(time.RFC3339Nano),
	})
	if err != nil {
		return fmt.Errorf("put session %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Evict(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", id)
	if err != nil {
		return fmt.Errorf("evict session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type profileRow struct {
	SessionID         string  `db:"session_id"`
	Gender            string  `db:"gender"`
	DateOfBirth       string  `db:"date_of_birth"`
	CurrentHeight     float64 `db:"current_height"`
	CurrentHeightUnit string  `db:"current_height_unit"`
	CurrentWeight     float64 `db:"current_weight"`
	CurrentWeightUnit string  `db:"current_weight_unit"`
	TargetWeight      float64 `db:"target_weight"`
	TargetWeightUnit  string  `db:"target_weight_unit"`
	Goal              string  `db:"goal"`
	TargetSpeed       string  `db:"target_speed"`
	ActivityLevel     string  `db:"activity_level"`
	Vegan             bool    `db:"vegan"`
	DairyFree         bool    `db:"dairy_free"`
	GlutenFree        bool    `db:"gluten_free"`
	NutFree           bool    `db:"nut_free"`
	Pescatarian       bool    `db:"pescatarian"`
	SavedAt           string  `db:"saved_at"`

	DailyCalorieTarget  float64 `db:"daily_calorie_target"`
	ProteinG            float64 `db:"protein_g"`
	CarbsG              float64 `db:"carbs_g"`
	FatsG               float64 `db:"fats_g"`
	TDEE                float64 `db:"tdee"`
	BMR                 float64 `db:"bmr"`
	EstimatedDaysToGoal int     `db:"estimated_days_to_goal"`
}

func profileRowFrom(sessionID string, e onboarding.Export, savedAt time.Time) profileRow {
	p, m := e.Profile, e.MetabolicProfile
	return profileRow{
		SessionID: sessionID, Gender: p.Gender, DateOfBirth: p.DateOfBirth,
		CurrentHeight: p.CurrentHeight, CurrentHeightUnit: p.CurrentHeightUnit,
		CurrentWeight: p.CurrentWeight, CurrentWeightUnit: p.CurrentWeightUnit,
		TargetWeight: p.TargetWeight, TargetWeightUnit: p.TargetWeightUnit,
		Goal: p.Goal, TargetSpeed: p.TargetSpeed, ActivityLevel: p.ActivityLevel,
		Vegan: p.DietaryPreferences.Vegan, DairyFree: p.DietaryPreferences.DairyFree,
		GlutenFree: p.DietaryPreferences.GlutenFree, NutFree: p.DietaryPreferences.NutFree,
		Pescatarian: p.DietaryPreferences.Pescatarian,
		SavedAt:     savedAt.Format(time.RFC3339Nano),

		DailyCalorieTarget: m.DailyCalorieTarget, ProteinG: m.ProteinG, CarbsG: m.CarbsG,
		FatsG: m.FatsG, TDEE: m.TDEE, BMR: m.BMR, EstimatedDaysToGoal: m.EstimatedDaysToGoal,
	}
}

func (r profileRow) export() onboarding.Export {
	return onboarding.Export{
		Profile: onboarding.ProfileExport{
			Gender: r.Gender, DateOfBirth: r.DateOfBirth,
			CurrentHeight: r.CurrentHeight, CurrentHeightUnit: r.CurrentHeightUnit,
			CurrentWeight: r.CurrentWeight, CurrentWeightUnit: r.CurrentWeightUnit,
			TargetWeight: r.TargetWeight, TargetWeightUnit: r.TargetWeightUnit,
			Goal: r.Goal, TargetSpeed: r.TargetSpeed, ActivityLevel: r.ActivityLevel,
			DietaryPreferences: onboarding.DietaryPreferences{
				Vegan: r.Vegan, DairyFree: r.DairyFree, GlutenFree: r.GlutenFree,
				NutFree: r.NutFree, Pescatarian: r.Pescatarian,
			},
		},
		MetabolicProfile: onboarding.MetabolicProfile{
			DailyCalorieTarget: r.DailyCalorieTarget, ProteinG: r.ProteinG, CarbsG: r.CarbsG,
			FatsG: r.FatsG, TDEE: r.TDEE, BMR: r.BMR, EstimatedDaysToGoal: r.EstimatedDaysToGoal,
		},
	}
}

// SaveProfile writes both profile tables in one transaction, replacing any
// earlier save for the session.
func (s *SQLiteStore) SaveProfile(ctx context.Context, sessionID string, export onboarding.Export) error {
	row := profileRowFrom(sessionID, export, s.nowFn().UTC())
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.NamedExecContext(ctx, `
INSERT OR REPLACE INTO onboarding_profiles (
	session_id, gender, date_of_birth, current_height, current_height_unit,
	current_weight, current_weight_unit, target_weight, target_weight_unit,
	goal, target_speed, activity_level,
	vegan, dairy_free, gluten_free, nut_free, pescatarian, saved_at
) VALUES (
	:session_id, :gender, :date_of_birth, :current_height, :current_height_unit,
	:current_weight, :current_weight_unit, :target_weight, :target_weight_unit,
	:goal, :target_speed, :activity_level,
	:vegan, :dairy_free, :gluten_free, :nut_free, :pescatarian, :saved_at
)`, row); err != nil {
		return fmt.Errorf("save onboarding profile: %w", err)
	}
	if _, err := tx.NamedExecContext(ctx, `
INSERT OR REPLACE INTO metabolic_profiles (
	session_id, daily_calorie_target, protein_g, carbs_g, fats_g, tdee, bmr, estimated_days_to_goal
) VALUES (
	:session_id, :daily_calorie_target, :protein_g, :carbs_g, :fats_g, :tdee, :bmr, :estimated_days_to_goal
)`, row); err != nil {
		return fmt.Errorf("save metabolic profile: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetProfile(ctx context.Context, sessionID string) (onboarding.Export, error) {
	var row profileRow
	err := s.db.GetContext(ctx, &row, `
SELECT o.session_id, o.gender, o.date_of_birth, o.current_height, o.current_height_unit,
	o.current_weight, o.current_weight_unit, o.target_weight, o.target_weight_unit,
	o.goal, o.target_speed, o.activity_level,
	o.vegan, o.dairy_free, o.gluten_free, o.nut_free, o.pescatarian, o.saved_at,
	COALESCE(m.daily_calorie_target, 0) AS daily_calorie_target,
	COALESCE(m.protein_g, 0) AS protein_g,
	COALESCE(m.carbs_g, 0) AS carbs_g,
	COALESCE(m.fats_g, 0) AS fats_g,
	COALESCE(m.tdee, 0) AS tdee,
	COALESCE(m.bmr, 0) AS bmr,
	COALESCE(m.estimated_days_to_goal, 0) AS estimated_days_to_goal
FROM onboarding_profiles o
LEFT JOIN metabolic_profiles m ON m.session_id = o.session_id
WHERE o.session_id = ?`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return onboarding.Export{}, ErrNotFound
	}
	if err != nil {
		return onboarding.Export{}, fmt.Errorf("get profile %s: %w", sessionID, err)
	}
	return row.export(), nil
}
