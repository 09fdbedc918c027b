package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/motlatsimoea/fnd/internal/config"
	"github.com/motlatsimoea/fnd/internal/database"
	"github.com/motlatsimoea/fnd/internal/models"
	"github.com/motlatsimoea/fnd/internal/realtime"
	"github.com/motlatsimoea/fnd/internal/services"
	"github.com/motlatsimoea/fnd/internal/store"
	"github.com/motlatsimoea/fnd/pkg/crypto"
	"github.com/motlatsimoea/fnd/pkg/logger"
	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type handlerFixture struct {
	router *gin.Engine
	store  store.Store
	codec  *crypto.Codec
	hub    *realtime.Hub
	chat   *ChatHandler
}

// asUser fakes the auth middleware: every registered route runs with the
// given user already authenticated.
func asUser(userID uint) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("userId", userID)
		c.Next()
	}
}

func setupHandlerTest(t *testing.T) *handlerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	logger.Init("test")
	config.AppConfig = &config.Config{JWTSecret: "handler-test-secret"}

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.User{}, &models.Inbox{}, &models.Message{}, &models.Notification{}))
	database.DB = db

	for _, u := range []models.User{
		{ID: 1, Username: "alice", Email: "alice@example.com", Password: "x"},
		{ID: 2, Username: "bob", Email: "bob@example.com", Password: "x"},
		{ID: 3, Username: "carol", Email: "carol@example.com", Password: "x"},
	} {
		assert.NoError(t, db.Create(&u).Error)
	}

	key, err := crypto.GenerateKey()
	assert.NoError(t, err)
	codec, err := crypto.NewCodec(key)
	assert.NoError(t, err)

	st := store.New(db)
	hub := realtime.NewHub()
	notifier := services.NewNotificationService(st, hub)
	chat := NewChatHandler(st, codec, notifier)

	return &handlerFixture{
		router: gin.New(),
		store:  st,
		codec:  codec,
		hub:    hub,
		chat:   chat,
	}
}

func performRequest(router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}
