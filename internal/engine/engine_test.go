package engine_test

import (
	"sync"
	"testing"

	"squadup/backend/internal/database"
	"squadup/backend/internal/engine"
	"squadup/backend/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// testDB opens a fresh in-memory database with the full schema. A
// single connection keeps every gorm session on the same sqlite
// instance.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.Migrate(db))
	return db
}

func createUser(t *testing.T, db *gorm.DB, nickname string) *models.User {
	t.Helper()
	user := &models.User{
		Nickname:     nickname,
		Email:        nickname + "@example.com",
		PasswordHash: "irrelevant",
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	require.NoError(t, db.First(&user, id).Error)
	return &user
}

// recorder captures published events for assertions.
type recorder struct {
	mu     sync.Mutex
	topics []string
	events []engine.Event
}

func (r *recorder) Publish(topic string, event engine.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.topics = append(r.topics, topic)
	r.events = append(r.events, event)
}

func (r *recorder) byType(eventType engine.EventType) []engine.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []engine.Event
	for _, event := range r.events {
		if event.Type == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// vetoGateway rejects joins for the listed user IDs and records every
// context it is shown.
type vetoGateway struct {
	mu       sync.Mutex
	rejected map[uint]string
	seen     []engine.HookContext
}

func (g *vetoGateway) BeforeGroupJoin(user models.User, _ models.Lobby, hctx engine.HookContext) engine.HookDecision {
	g.mu.Lock()
	g.seen = append(g.seen, hctx)
	g.mu.Unlock()
	if reason, ok := g.rejected[user.ID]; ok {
		return engine.Reject(reason)
	}
	return engine.Allow()
}
