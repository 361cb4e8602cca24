package services

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"gopkg.in/yaml.v3"

	"github.com/kartikbazzad/bunbase/bunpress/internal/database"
	apperrors "github.com/kartikbazzad/bunbase/bunpress/internal/errors"
	"github.com/kartikbazzad/bunbase/bunpress/internal/models"
	"github.com/kartikbazzad/bunbase/bunpress/internal/validation"
)

//go:embed settings_defaults.yaml
var defaultSettingsYAML []byte

// DefaultSetting is one entry of settings_defaults.yaml.
type DefaultSetting struct {
	Key   string  `yaml:"key"`
	Value *string `yaml:"value"`
	Type  string  `yaml:"type"`
	Group string  `yaml:"group"`
	Label string  `yaml:"label"`
}

// DefaultSettings parses the embedded defaults.
func DefaultSettings() ([]DefaultSetting, error) {
	var defaults []DefaultSetting
	if err := yaml.Unmarshal(defaultSettingsYAML, &defaults); err != nil {
		return nil, fmt.Errorf("failed to parse default settings: %w", err)
	}
	for i, d := range defaults {
		if d.Key == "" {
			return nil, fmt.Errorf("default setting %d has no key", i)
		}
		if d.Type == "" {
			defaults[i].Type = models.SettingText
		}
		if d.Group == "" {
			defaults[i].Group = "general"
		}
	}
	return defaults, nil
}

var groupLabels = map[string]string{
	"general": "General",
	"home":    "Home page",
	"about":   "About page",
	"blog":    "Blog page",
	"contact": "Contact page",
	"legal":   "Legal pages",
	"social":  "Social networks",
}

// GroupLabel returns the display name of a settings group.
func GroupLabel(group string) string {
	if l, ok := groupLabels[group]; ok {
		return l
	}
	if group == "" {
		return ""
	}
	return strings.ToUpper(group[:1]) + group[1:]
}

// SettingService reads and writes site settings with an in-process cache
// of resolved values.
type SettingService struct {
	db database.DBTX

	mu    sync.RWMutex
	cache map[string]*string
	// version is bumped by every invalidation; a resolve started under an
	// older version is not cached.
	version uint64
}

func NewSettingService(db database.DBTX) *SettingService {
	return &SettingService{db: db, cache: make(map[string]*string)}
}

// SeedDefaults inserts missing default settings and returns how many were added.
func (s *SettingService) SeedDefaults(ctx context.Context) (int, error) {
	defaults, err := DefaultSettings()
	if err != nil {
		return 0, err
	}
	added := 0
	for _, d := range defaults {
		tag, err := s.db.Exec(ctx,
			`INSERT INTO settings (key, value, type, group_name, label) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (key) DO NOTHING`,
			d.Key, d.Value, d.Type, d.Group, d.Label)
		if err != nil {
			return added, fmt.Errorf("failed to seed setting %s: %w", d.Key, err)
		}
		added += int(tag.RowsAffected())
	}
	return added, nil
}

const settingSelect = "SELECT id, key, value, type, group_name, label, updated_at FROM settings"

func scanSetting(row pgx.Row) (*models.Setting, error) {
	var st models.Setting
	err := row.Scan(&st.ID, &st.Key, &st.Value, &st.Type, &st.Group, &st.Label, &st.UpdatedAt)
	return &st, err
}

// FindByKey returns the raw setting row.
func (s *SettingService) FindByKey(ctx context.Context, key string) (*models.Setting, error) {
	st, err := scanSetting(s.db.QueryRow(ctx, settingSelect+" WHERE key = $1", key))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.NotFound("Setting not found.")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get setting: %w", err)
	}
	return st, nil
}

// Get returns the value of key, or def when it is missing or empty. Image
// settings resolve to the URL of the referenced media.
func (s *SettingService) Get(ctx context.Context, key, def string) string {
	s.mu.RLock()
	v, ok := s.cache[key]
	version := s.version
	s.mu.RUnlock()
	if !ok {
		var err error
		v, err = s.resolve(ctx, key)
		if err != nil {
			return def
		}
		s.mu.Lock()
		if s.version == version {
			s.cache[key] = v
		}
		s.mu.Unlock()
	}
	if v == nil || *v == "" {
		return def
	}
	return *v
}

// Lookup is Get without a request context, for templates.
func (s *SettingService) Lookup(key string) string {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return s.Get(ctx, key, "")
}

func (s *SettingService) resolve(ctx context.Context, key string) (*string, error) {
	st, err := s.FindByKey(ctx, key)
	if apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if st.Type != models.SettingImage || st.Value == nil || *st.Value == "" {
		return st.Value, nil
	}
	id, convErr := strconv.ParseInt(*st.Value, 10, 64)
	if convErr != nil {
		return nil, nil
	}
	var path string
	err = s.db.QueryRow(ctx, "SELECT path FROM media WHERE id = $1", id).Scan(&path)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve image setting: %w", err)
	}
	url := (&models.Media{Path: path}).OriginalURL()
	return &url, nil
}

// Set stores value for an existing key and drops it from the cache.
func (s *SettingService) Set(ctx context.Context, key string, value *string) error {
	tag, err := s.db.Exec(ctx, "UPDATE settings SET value = $1, updated_at = NOW() WHERE key = $2", value, key)
	if err != nil {
		return fmt.Errorf("failed to update setting: %w", err)
	}
	s.invalidate(key)
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("Setting not found.")
	}
	return nil
}

func (s *SettingService) invalidate(keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.version++
	for _, k := range keys {
		delete(s.cache, k)
	}
}

// ClearCache drops every cached value.
func (s *SettingService) ClearCache() {
	s.mu.Lock()
	s.version++
	s.cache = make(map[string]*string)
	s.mu.Unlock()
}

// Groups lists the setting groups with their label and size.
func (s *SettingService) Groups(ctx context.Context) ([]models.SettingGroup, error) {
	rows, err := s.db.Query(ctx, "SELECT group_name, COUNT(*) FROM settings GROUP BY group_name ORDER BY group_name")
	if err != nil {
		return nil, fmt.Errorf("failed to list setting groups: %w", err)
	}
	defer rows.Close()
	var groups []models.SettingGroup
	for rows.Next() {
		var g models.SettingGroup
		if err := rows.Scan(&g.Name, &g.Count); err != nil {
			return nil, err
		}
		g.Label = GroupLabel(g.Name)
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// ByGroup returns the settings of one group in creation order.
func (s *SettingService) ByGroup(ctx context.Context, group string) ([]models.Setting, error) {
	rows, err := s.db.Query(ctx, settingSelect+" WHERE group_name = $1 ORDER BY id", group)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings: %w", err)
	}
	defer rows.Close()
	var settings []models.Setting
	for rows.Next() {
		st, err := scanSetting(rows)
		if err != nil {
			return nil, err
		}
		settings = append(settings, *st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(settings) == 0 {
		return nil, apperrors.NotFound("Settings group not found.")
	}
	return settings, nil
}

// CheckValue validates a submitted value for a setting type and returns
// what should be stored. Empty values become NULL.
func CheckValue(settingType, raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	switch settingType {
	case models.SettingImage:
		if id, err := strconv.ParseInt(raw, 10, 64); err != nil || id <= 0 {
			return nil, errors.New("Select an image from the library.")
		}
	case models.SettingURL:
		if err := validation.Var(raw, "url"); err != nil {
			return nil, errors.New("Must be a valid URL.")
		}
	}
	return &raw, nil
}

// UpdateGroup saves the submitted values of a group. Keys not present in
// values keep their current value.
func (s *SettingService) UpdateGroup(ctx context.Context, group string, values map[string]string) error {
	settings, err := s.ByGroup(ctx, group)
	if err != nil {
		return err
	}

	fields := apperrors.FieldErrors{}
	updates := make(map[string]*string)
	for _, st := range settings {
		raw, ok := values[st.Key]
		if !ok {
			continue
		}
		v, err := CheckValue(st.Type, raw)
		if err != nil {
			fields.Add(st.Key, err.Error())
			continue
		}
		updates[st.Key] = v
	}
	if err := fields.OrNil(); err != nil {
		return err
	}

	err = database.InTx(ctx, s.db, func(tx pgx.Tx) error {
		for key, v := range updates {
			if _, err := tx.Exec(ctx, "UPDATE settings SET value = $1, updated_at = NOW() WHERE key = $2", v, key); err != nil {
				return fmt.Errorf("failed to update setting %s: %w", key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.ClearCache()
	return nil
}
