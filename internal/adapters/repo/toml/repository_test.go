package toml

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bnema/huddle/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleFile = `version = 1
group_size = 3
weeks_ahead = 1
icebreakers = ["Favourite tool?", "Best bug?"]

[formation]
max_shuffle_attempts = 50
max_evictions = 4

[calendar]
id = "team@group.calendar.google.com"
token_ref = "pass://huddle/calendar-token"
duration_minutes = 45
days_of_week = ["tuesday", "Thu"]
start_times = ["10:00", "14:30"]
timezone = "America/New_York"
freebusy_batch_size = 3
mutation_pause = "250ms"

[history]
backend = "sqlite"

[email]
enabled = true
from = "huddle@example.com"
smtp_host = "smtp.example.com"
username = "apikey"
password_ref = "env://HUDDLE_SMTP_PASSWORD"
display_timezone = "Europe/Paris"

[email.templates]
no_group = "Sorry, no group this time."

[[people]]
email = "ada@example.com"
name = "Ada"

[[people]]
email = " bob@example.com "
`

func newTestRepository(t *testing.T, contents string) (*Repository, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "huddle.toml")
	if contents != "" {
		require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	}

	config := viper.New()
	config.Set(ConfigPathKey, path)

	repo, err := NewRepository(config)
	require.NoError(t, err)
	return repo, dir
}

func TestRepositoryLoadDecodesEverySection(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, sampleFile)

	config, err := repo.Load(context.Background())
	require.NoError(t, err)

	newYork, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	settings := config.Settings
	assert.Equal(t, 3, settings.GroupSize)
	assert.Equal(t, domain.FormationLimits{MaxShuffleAttempts: 50, MaxEvictions: 4}, settings.Formation)
	assert.Equal(t, 3, settings.FreeBusyBatchSize)
	assert.Equal(t, []string{"Favourite tool?", "Best bug?"}, settings.Icebreakers)
	assert.Equal(t, []time.Weekday{time.Tuesday, time.Thursday}, settings.Slots.Weekdays)
	assert.Equal(t, []domain.TimeOfDay{{Hour: 10}, {Hour: 14, Minute: 30}}, settings.Slots.StartTimes)
	assert.Equal(t, 1, settings.Slots.WeeksAhead)
	assert.Equal(t, 45*time.Minute, settings.Slots.Duration)
	assert.Equal(t, newYork.String(), settings.Slots.Location.String())
	require.NoError(t, settings.Validate())

	assert.Equal(t, "team@group.calendar.google.com", config.Calendar.ID)
	assert.Equal(t, DefaultCalendarBaseURL, config.Calendar.BaseURL)
	assert.Equal(t, "pass://huddle/calendar-token", config.Calendar.TokenRef)
	assert.Equal(t, 250*time.Millisecond, config.Calendar.MutationPause)

	assert.Equal(t, "sqlite", config.History.Backend)
	assert.Equal(t, "past_pairings.db", filepath.Base(config.History.Path))

	assert.True(t, config.Email.Enabled)
	assert.Equal(t, 587, config.Email.SMTPPort)
	assert.Equal(t, "Huddle: Mission Briefing", config.Email.Subject)
	assert.Equal(t, paris.String(), config.Email.DisplayLocation.String())
	assert.Equal(t, Templates{NoGroup: "Sorry, no group this time."}, config.Email.Templates)

	assert.Equal(t, domain.Roster{
		{ID: "ada@example.com", Name: "Ada"},
		{ID: "bob@example.com"},
	}, config.People)
}

func TestRepositoryLoadMissingFileUsesDefaults(t *testing.T) {
	t.Parallel()

	repo, dir := newTestRepository(t, "")

	config, err := repo.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, config.Settings.GroupSize)
	assert.Equal(t, domain.DefaultMaxShuffleAttempts, config.Settings.Formation.MaxShuffleAttempts)
	assert.Equal(t, domain.DefaultMaxEvictions, config.Settings.Formation.MaxEvictions)
	assert.Equal(t, 30*time.Minute, config.Settings.Slots.Duration)
	assert.Equal(t, time.Second, config.Calendar.MutationPause)
	assert.Equal(t, "text", config.History.Backend)
	assert.Equal(t, "past_pairings.txt", filepath.Base(config.History.Path))
	assert.Empty(t, config.People)

	_, err = os.Stat(filepath.Join(dir, "huddle.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRepositoryHonoursViperOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "huddle.toml")
	require.NoError(t, os.WriteFile(path, []byte("[history]\npath = \"from-file.txt\"\n"), 0o600))

	config := viper.New()
	config.Set(ConfigPathKey, path)
	config.Set(CalendarBaseURLKey, "http://127.0.0.1:9999/calendar/v3/")

	repo, err := NewRepository(config)
	require.NoError(t, err)
	loaded, err := repo.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:9999/calendar/v3", loaded.Calendar.BaseURL)
	assert.True(t, filepath.IsAbs(loaded.History.Path))
	assert.Equal(t, "from-file.txt", filepath.Base(loaded.History.Path))

	config.Set(HistoryPathKey, filepath.Join(dir, "override.txt"))
	repo, err = NewRepository(config)
	require.NoError(t, err)
	loaded, err = repo.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "override.txt"), loaded.History.Path)
}

func TestRepositoryLoadRejectsInvalidValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		contents string
	}{
		{name: "future version", contents: "version = 99\n"},
		{name: "bad timezone", contents: "[calendar]\ntimezone = \"Mars/Olympus\"\n"},
		{name: "bad weekday", contents: "[calendar]\ndays_of_week = [\"someday\"]\n"},
		{name: "bad start time", contents: "[calendar]\nstart_times = [\"25:99\"]\n"},
		{name: "bad pause", contents: "[calendar]\nmutation_pause = \"soon\"\n"},
		{name: "bad display zone", contents: "[email]\ndisplay_timezone = \"Nowhere/Land\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			repo, _ := newTestRepository(t, tt.contents)
			_, err := repo.Load(context.Background())
			assert.ErrorIs(t, err, domain.ErrInvalidConfig)
		})
	}
}

func TestRepositoryAddAndRemovePeople(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, sampleFile)
	ctx := context.Background()

	require.NoError(t, repo.AddPerson(ctx, domain.Person{ID: "cy@example.com", Name: " Cy "}))
	assert.ErrorIs(t, repo.AddPerson(ctx, domain.Person{ID: "ADA@example.com"}), domain.ErrInvalidConfig)
	assert.ErrorIs(t, repo.AddPerson(ctx, domain.Person{ID: "has space@example.com"}), domain.ErrInvalidConfig)

	roster, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.PersonID{"ada@example.com", "bob@example.com", "cy@example.com"}, roster.IDs())
	assert.Equal(t, "Cy", roster[2].Name)

	require.NoError(t, repo.RemovePerson(ctx, "bob@example.com"))
	assert.ErrorIs(t, repo.RemovePerson(ctx, "bob@example.com"), domain.ErrPersonNotFound)

	config, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.PersonID{"ada@example.com", "cy@example.com"}, config.People.IDs())
	assert.Equal(t, 3, config.Settings.GroupSize)
	assert.Equal(t, "team@group.calendar.google.com", config.Calendar.ID)
}

func TestRepositoryWritesCreateFileWithPrivateMode(t *testing.T) {
	t.Parallel()

	repo, dir := newTestRepository(t, "")
	require.NoError(t, repo.AddPerson(context.Background(), domain.Person{ID: "ada@example.com"}))

	info, err := os.Stat(repo.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	data, err := os.ReadFile(repo.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "version = 1")
	assert.Contains(t, string(data), "ada@example.com")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.False(t, strings.HasSuffix(entry.Name(), ".tmp"), entry.Name())
	}
}

func TestRepositoryConcurrentAddsKeepEveryPerson(t *testing.T) {
	t.Parallel()

	repo, _ := newTestRepository(t, "")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.PersonID("p" + string(rune('a'+i)) + "@example.com")
			assert.NoError(t, repo.AddPerson(context.Background(), domain.Person{ID: id}))
		}(i)
	}
	wg.Wait()

	roster, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, roster, 8)
}

func TestNormalizePathExpandsHome(t *testing.T) {
	t.Parallel()

	path, err := normalizePath("/home/ada", "~/.huddle/log.txt")
	require.NoError(t, err)
	assert.Equal(t, "/home/ada/.huddle/log.txt", path)

	_, err = normalizePath("/home/ada", "")
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}
